package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/engine"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
	"github.com/noah-isme/sma-adp-results/pkg/lock"
)

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListSubjects(ctx context.Context, classID string) ([]models.ClassSubject, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type cohortReader interface {
	ListActiveCohort(ctx context.Context, classID, termID string) ([]models.CohortStudent, error)
}

type markReader interface {
	ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.MarkEntry, error)
}

type gradeScaleReader interface {
	FindDefault(ctx context.Context) (*models.GradeScale, error)
}

type termResultRepository interface {
	PublishState(ctx context.Context, termID, classID string) (int, int, error)
	ReplaceClassResults(ctx context.Context, termID, classID string, results []models.TermResult) error
	SetPublished(ctx context.Context, termID, classID string, publish bool, at time.Time) (int64, error)
	UpdateRemarks(ctx context.Context, id string, remarks *string) error
	FindByID(ctx context.Context, id string) (*models.TermResult, error)
	List(ctx context.Context, filter models.ResultFilter) ([]models.TermResult, error)
}

type eventNotifier interface {
	Notify(events ...models.NotificationEvent)
}

// ResultConfig tunes result computation.
type ResultConfig struct {
	DefaultCAMax   float64
	DefaultExamMax float64
	LockTTL        time.Duration
	CacheTTL       time.Duration
}

// ResultDeps groups the collaborators of ResultService.
type ResultDeps struct {
	Classes     classReader
	Terms       termReader
	Enrollments cohortReader
	Marks       markReader
	Scales      gradeScaleReader
	Results     termResultRepository
	Locker      lock.Locker
	Cache       *CacheService
	Notifier    eventNotifier
	Metrics     *MetricsService
}

// ResultService computes, publishes and serves term results.
type ResultService struct {
	classes     classReader
	terms       termReader
	enrollments cohortReader
	marks       markReader
	scales      gradeScaleReader
	results     termResultRepository
	locker      lock.Locker
	cache       *CacheService
	notifier    eventNotifier
	metrics     *MetricsService
	config      ResultConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewResultService constructs the service.
func NewResultService(deps ResultDeps, cfg ResultConfig, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCAMax <= 0 {
		cfg.DefaultCAMax = 40
	}
	if cfg.DefaultExamMax <= 0 {
		cfg.DefaultExamMax = 60
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	return &ResultService{
		classes:     deps.Classes,
		terms:       deps.Terms,
		enrollments: deps.Enrollments,
		marks:       deps.Marks,
		scales:      deps.Scales,
		results:     deps.Results,
		locker:      deps.Locker,
		cache:       deps.Cache,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		config:      cfg,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Compute recomputes every result of a class for a term and replaces the
// stored set in one transaction. Published results are only recomputed
// with Force, and the replacement leaves them unpublished.
func (s *ResultService) Compute(ctx context.Context, req dto.ComputeResultsRequest) (*models.ComputeSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid compute payload")
	}

	release, err := s.locker.Acquire(ctx, lock.ResultKey(req.ClassID, req.TermID), s.config.LockTTL)
	if err != nil {
		return nil, lockError(err, "class results", s.metrics)
	}
	defer release()

	start := time.Now()
	summary, err := s.compute(ctx, req)
	if err != nil {
		s.metrics.ObserveCompute(0, 0, time.Since(start), err)
		return nil, err
	}
	s.metrics.ObserveCompute(summary.Computed, summary.Failed, time.Since(start), nil)
	s.cache.Invalidate(ctx, ClassResultsPattern(req.TermID, req.ClassID))

	s.logger.Info("term results computed",
		zap.String("term_id", req.TermID),
		zap.String("class_id", req.ClassID),
		zap.String("grade_scale_id", summary.GradeScaleID),
		zap.Int("computed", summary.Computed),
		zap.Int("failed", summary.Failed),
		zap.Bool("force", req.Force),
		zap.Duration("duration", time.Since(start)))
	return summary, nil
}

func (s *ResultService) compute(ctx context.Context, req dto.ComputeResultsRequest) (*models.ComputeSummary, error) {
	term, err := s.terms.FindByID(ctx, req.TermID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	_, published, err := s.results.PublishState(ctx, req.TermID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check publish state")
	}
	if published > 0 && !req.Force {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "results are published; unpublish them or recompute with force")
	}

	scale, err := s.scales.FindDefault(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConfiguration, "no default grade scale configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scale")
	}

	subjects, err := s.classes.ListSubjects(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}
	for i := range subjects {
		if subjects[i].CAMax == 0 {
			subjects[i].CAMax = s.config.DefaultCAMax
		}
		if subjects[i].ExamMax == 0 {
			subjects[i].ExamMax = s.config.DefaultExamMax
		}
	}

	students, err := s.loadMarks(ctx, req.ClassID, req.TermID)
	if err != nil {
		return nil, err
	}

	computedAt := s.now()
	out, err := engine.ComputeTermResults(engine.TermInput{
		TermID:     req.TermID,
		ClassID:    req.ClassID,
		Scale:      *scale,
		Subjects:   subjects,
		Students:   students,
		ComputedAt: computedAt,
	})
	if err != nil {
		return nil, engineError(err, "failed to compute term results")
	}
	for i := range out.Results {
		out.Results[i].TermSequence = term.Sequence
	}

	if err := s.results.ReplaceClassResults(ctx, req.TermID, req.ClassID, out.Results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store term results")
	}
	if published > 0 {
		s.logger.Warn("published results recomputed with force",
			zap.String("term_id", req.TermID),
			zap.String("class_id", req.ClassID),
			zap.Int("unpublished", published))
	}

	errs := out.Errors
	if errs == nil {
		errs = []models.ResultError{}
	}
	return &models.ComputeSummary{
		TermID:       req.TermID,
		ClassID:      req.ClassID,
		GradeScaleID: scale.ID,
		Computed:     len(out.Results),
		Failed:       out.Failed,
		Errors:       errs,
		ComputedAt:   computedAt,
	}, nil
}

func (s *ResultService) loadMarks(ctx context.Context, classID, termID string) ([]engine.StudentMarks, error) {
	cohort, err := s.enrollments.ListActiveCohort(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class cohort")
	}
	if len(cohort) == 0 {
		return nil, nil
	}

	enrollmentIDs := make([]string, len(cohort))
	for i, student := range cohort {
		enrollmentIDs[i] = student.EnrollmentID
	}
	entries, err := s.marks.ListByEnrollments(ctx, enrollmentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	byEnrollment := make(map[string]map[string]models.MarkEntry, len(cohort))
	for _, entry := range entries {
		if byEnrollment[entry.EnrollmentID] == nil {
			byEnrollment[entry.EnrollmentID] = make(map[string]models.MarkEntry)
		}
		byEnrollment[entry.EnrollmentID][entry.SubjectID] = entry
	}

	students := make([]engine.StudentMarks, len(cohort))
	for i, student := range cohort {
		students[i] = engine.StudentMarks{
			EnrollmentID: student.EnrollmentID,
			StudentID:    student.StudentID,
			StudentName:  student.StudentName,
			Marks:        byEnrollment[student.EnrollmentID],
		}
	}
	return students, nil
}

// Publish toggles visibility of a class's results for a term. Repeating an
// action is a no-op. Unpublishing is reserved for administrators.
func (s *ResultService) Publish(ctx context.Context, req dto.PublishResultsRequest, role models.UserRole) (*models.PublishSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}
	if !role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change result visibility")
	}

	release, err := s.locker.Acquire(ctx, lock.ResultKey(req.ClassID, req.TermID), s.config.LockTTL)
	if err != nil {
		return nil, lockError(err, "class results", s.metrics)
	}
	defer release()

	total, published, err := s.results.PublishState(ctx, req.TermID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check publish state")
	}

	publish := req.Action == models.PublishActionPublish
	summary := &models.PublishSummary{TermID: req.TermID, ClassID: req.ClassID, Action: req.Action}

	if publish && total == 0 {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "no computed results to publish")
	}
	if (publish && published == total) || (!publish && published == 0) {
		if publish {
			summary.PublishedAt = s.publishedAt(ctx, req.TermID, req.ClassID)
		}
		return summary, nil
	}

	at := s.now()
	affected, err := s.results.SetPublished(ctx, req.TermID, req.ClassID, publish, at)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publish state")
	}
	summary.Affected = int(affected)
	s.cache.Invalidate(ctx, ClassResultsPattern(req.TermID, req.ClassID))
	s.metrics.RecordPublish(string(req.Action))

	if publish {
		summary.PublishedAt = &at
		results, err := s.results.List(ctx, models.ResultFilter{TermID: req.TermID, ClassID: req.ClassID})
		if err != nil {
			s.logger.Warn("failed to load published results for notification", zap.Error(err))
		} else if s.notifier != nil {
			s.notifier.Notify(ResultPublishedEvents(results, at)...)
		}
	}

	s.logger.Info("term results visibility changed",
		zap.String("term_id", req.TermID),
		zap.String("class_id", req.ClassID),
		zap.String("action", string(req.Action)),
		zap.Int64("affected", affected))
	return summary, nil
}

func (s *ResultService) publishedAt(ctx context.Context, termID, classID string) *time.Time {
	results, err := s.results.List(ctx, models.ResultFilter{TermID: termID, ClassID: classID, PublishedOnly: true})
	if err != nil || len(results) == 0 {
		return nil
	}
	return results[0].PublishedAt
}

// ClassResults lists a class's results for a term. Readers who cannot see
// drafts only get published results, served from cache when possible.
func (s *ResultService) ClassResults(ctx context.Context, termID, classID string, role models.UserRole) (*dto.ClassResultsResponse, error) {
	if termID == "" || classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and classId are required")
	}

	drafts := role.CanSeeDrafts()
	key := ClassResultsKey(termID, classID)
	if !drafts {
		var cached dto.ClassResultsResponse
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	results, err := s.results.List(ctx, models.ResultFilter{TermID: termID, ClassID: classID, PublishedOnly: !drafts})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list term results")
	}
	if results == nil {
		results = []models.TermResult{}
	}

	resp := &dto.ClassResultsResponse{TermID: termID, ClassID: classID, Results: results, Published: len(results) > 0}
	for _, r := range results {
		if !r.IsPublished {
			resp.Published = false
			break
		}
	}
	if !drafts && len(results) > 0 {
		s.cache.Set(ctx, key, resp, s.config.CacheTTL)
	}
	return resp, nil
}

// StudentResult returns one student's result for a term. Students may only
// read their own published results.
func (s *ResultService) StudentResult(ctx context.Context, termID, studentID string, claims *models.JWTClaims) (*models.TermResult, error) {
	if termID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and studentId are required")
	}
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleStudent && claims.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own results")
	}

	drafts := claims.Role.CanSeeDrafts()
	results, err := s.results.List(ctx, models.ResultFilter{TermID: termID, StudentID: studentID, PublishedOnly: !drafts})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term result")
	}
	if len(results) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "term result not found")
	}
	return &results[0], nil
}

// UpdateRemarks sets the free-text remarks on a result. Remarks survive
// recomputation.
func (s *ResultService) UpdateRemarks(ctx context.Context, id string, req dto.UpdateRemarksRequest) (*models.TermResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remarks payload")
	}
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term result")
	}

	var remarks *string
	if trimmed := strings.TrimSpace(req.Remarks); trimmed != "" {
		remarks = &trimmed
	}
	if err := s.results.UpdateRemarks(ctx, id, remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update remarks")
	}
	result.Remarks = remarks
	s.cache.Invalidate(ctx, ClassResultsPattern(result.TermID, result.ClassID))
	return result, nil
}
