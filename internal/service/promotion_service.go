package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/engine"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
	"github.com/noah-isme/sma-adp-results/pkg/lock"
)

// Per-student promotion fault codes.
const (
	PromotionErrNoActiveRule    = "NO_ACTIVE_RULE"
	PromotionErrAmbiguousRule   = "AMBIGUOUS_RULE"
	PromotionErrAlreadyExists   = "ALREADY_EXISTS"
	PromotionErrInvalidOverride = "INVALID_OVERRIDE"
)

type academicYearReader interface {
	ListByYear(ctx context.Context, academicYear string) ([]models.Term, error)
}

type yearCohortReader interface {
	ListActiveCohortForYear(ctx context.Context, classID, academicYear string) ([]models.CohortStudent, error)
}

type yearResultReader interface {
	ListPublishedForYear(ctx context.Context, studentIDs []string, academicYear string) ([]models.TermResult, error)
}

type attendanceReader interface {
	YearSummaries(ctx context.Context, studentIDs []string, academicYear string) (map[string]models.AttendanceSummary, error)
}

type activeRuleReader interface {
	ListActiveByLevel(ctx context.Context, fromLevel string) ([]models.PromotionRule, error)
}

type studentPromotionRepository interface {
	ExistingStudentIDs(ctx context.Context, studentIDs []string, academicYear string) (map[string]bool, error)
	CreateBatch(ctx context.Context, records []models.StudentPromotion) error
	Create(ctx context.Context, record *models.StudentPromotion) error
	FindByID(ctx context.Context, id string) (*models.StudentPromotion, error)
	IsSuperseded(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter models.PromotionFilter) ([]models.StudentPromotion, error)
}

// PromotionConfig tunes the bulk executor.
type PromotionConfig struct {
	LockTTL time.Duration
}

// PromotionDeps groups the collaborators of PromotionService.
type PromotionDeps struct {
	Classes     classReader
	Terms       academicYearReader
	Enrollments yearCohortReader
	Results     yearResultReader
	Attendance  attendanceReader
	Rules       activeRuleReader
	Promotions  studentPromotionRepository
	Locker      lock.Locker
	Notifier    eventNotifier
	Metrics     *MetricsService
}

// PromotionService evaluates and records end of year promotion decisions.
type PromotionService struct {
	classes     classReader
	terms       academicYearReader
	enrollments yearCohortReader
	results     yearResultReader
	attendance  attendanceReader
	rules       activeRuleReader
	promotions  studentPromotionRepository
	locker      lock.Locker
	notifier    eventNotifier
	metrics     *MetricsService
	config      PromotionConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPromotionService constructs the service.
func NewPromotionService(deps PromotionDeps, cfg PromotionConfig, validate *validator.Validate, logger *zap.Logger) *PromotionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	return &PromotionService{
		classes:     deps.Classes,
		terms:       deps.Terms,
		enrollments: deps.Enrollments,
		results:     deps.Results,
		attendance:  deps.Attendance,
		rules:       deps.Rules,
		promotions:  deps.Promotions,
		locker:      deps.Locker,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		config:      cfg,
		validator:   validate,
		logger:      logger,
	}
}

type promotionCandidate struct {
	student models.CohortStudent
	rule    models.PromotionRule
	eval    engine.Evaluation
}

type classEvaluation struct {
	class      *models.Class
	candidates []promotionCandidate
	errors     []dto.PromotionRowError
}

// Preview evaluates every student of a class without writing anything.
func (s *PromotionService) Preview(ctx context.Context, query dto.PromotionQuery) (*dto.PromotionPreview, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion query")
	}
	evaluation, err := s.evaluateClass(ctx, query.ClassID, query.AcademicYear)
	if err != nil {
		return nil, err
	}
	candidates, rowErrors, err := s.excludeDecided(ctx, evaluation.candidates, query.AcademicYear)
	if err != nil {
		return nil, err
	}

	preview := &dto.PromotionPreview{
		ClassID:      query.ClassID,
		AcademicYear: query.AcademicYear,
		FromLevel:    evaluation.class.Level,
		Groups:       make(map[models.PromotionStatus][]dto.PromotionCandidate),
		Counts:       make(map[models.PromotionStatus]int),
		Errors:       append(evaluation.errors, rowErrors...),
	}
	for _, c := range candidates {
		status := c.eval.Status
		preview.Groups[status] = append(preview.Groups[status], toCandidateDTO(c, status))
		preview.Counts[status]++
	}
	if preview.Errors == nil {
		preview.Errors = []dto.PromotionRowError{}
	}
	return preview, nil
}

// Execute writes one decision per eligible student in a single transaction.
// Overrides replace the recommended status and need a reason. Students who
// already have a decision for the year are reported and skipped.
func (s *PromotionService) Execute(ctx context.Context, req dto.ExecutePromotionsRequest, actorID string) (*dto.ExecutePromotionsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion execution payload")
	}
	overrides, err := indexOverrides(req.Overrides)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.PromotionKey(req.ClassID, req.AcademicYear), s.config.LockTTL)
	if err != nil {
		return nil, lockError(err, "class promotions", s.metrics)
	}
	defer release()

	evaluation, err := s.evaluateClass(ctx, req.ClassID, req.AcademicYear)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(evaluation.candidates))
	for _, c := range evaluation.candidates {
		known[c.student.StudentID] = true
	}
	for _, row := range evaluation.errors {
		known[row.StudentID] = true
	}
	for studentID := range overrides {
		if !known[studentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("override for student %s who is not enrolled in the class", studentID))
		}
	}

	candidates, rowErrors, err := s.excludeDecided(ctx, evaluation.candidates, req.AcademicYear)
	if err != nil {
		return nil, err
	}
	rowErrors = append(append([]dto.PromotionRowError{}, evaluation.errors...), rowErrors...)
	rowErrors = append(rowErrors, unappliedOverrides(rowErrors, overrides)...)

	records := make([]models.StudentPromotion, 0, len(candidates))
	for _, c := range candidates {
		record := newPromotionRecord(c, req.ClassID, req.AcademicYear, actorID)
		if override, ok := overrides[c.student.StudentID]; ok {
			if msg := overrideConflict(override.Status, c.rule); msg != "" {
				rowErrors = append(rowErrors, dto.PromotionRowError{StudentID: c.student.StudentID, Code: PromotionErrInvalidOverride, Message: msg})
				continue
			}
			reason := strings.TrimSpace(override.Reason)
			record.Status = override.Status
			record.Source = models.PromotionSourceOverride
			record.OverrideReason = &reason
			record.ApprovedBy = stringPtr(actorID)
		}
		records = append(records, record)
	}

	if err := s.promotions.CreateBatch(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store promotion decisions")
	}

	resp := &dto.ExecutePromotionsResponse{
		ClassID:      req.ClassID,
		AcademicYear: req.AcademicYear,
		Written:      len(records),
		Counts:       make(map[models.PromotionStatus]int),
		Records:      records,
		Errors:       rowErrors,
	}
	for _, r := range records {
		resp.Counts[r.Status]++
		s.metrics.RecordPromotion(string(r.Status), string(r.Source))
	}
	if resp.Errors == nil {
		resp.Errors = []dto.PromotionRowError{}
	}
	if s.notifier != nil {
		s.notifier.Notify(PromotionDecidedEvents(records)...)
	}

	s.logger.Info("promotions executed",
		zap.String("class_id", req.ClassID),
		zap.String("academic_year", req.AcademicYear),
		zap.Int("written", len(records)),
		zap.Int("overrides", len(overrides)),
		zap.Int("errors", len(resp.Errors)))
	return resp, nil
}

// unappliedOverrides reports one INVALID_OVERRIDE row per override whose
// student already carries a row error.
func unappliedOverrides(rowErrors []dto.PromotionRowError, overrides map[string]dto.PromotionOverride) []dto.PromotionRowError {
	var out []dto.PromotionRowError
	reported := make(map[string]bool)
	for _, row := range rowErrors {
		if _, ok := overrides[row.StudentID]; !ok || reported[row.StudentID] {
			continue
		}
		reported[row.StudentID] = true
		out = append(out, dto.PromotionRowError{
			StudentID: row.StudentID,
			Code:      PromotionErrInvalidOverride,
			Message:   "override not applied: " + row.Code,
		})
	}
	return out
}

// Correct appends a record superseding id. Only the latest record of a
// chain can be corrected.
func (s *PromotionService) Correct(ctx context.Context, id string, req dto.CorrectPromotionRequest, actorID string) (*models.StudentPromotion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion correction payload")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "correction reason is required")
	}

	original, err := s.promotions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion record")
	}

	release, err := s.locker.Acquire(ctx, lock.PromotionKey(original.ClassID, original.AcademicYear), s.config.LockTTL)
	if err != nil {
		return nil, lockError(err, "class promotions", s.metrics)
	}
	defer release()

	superseded, err := s.promotions.IsSuperseded(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check promotion history")
	}
	if superseded {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "promotion record was already corrected; correct the latest record")
	}

	correction := *original
	correction.ID = ""
	correction.CreatedAt = time.Time{}
	correction.Status = req.Status
	correction.Source = models.PromotionSourceCorrection
	correction.OverrideReason = &reason
	correction.ExecutedBy = actorID
	correction.ApprovedBy = stringPtr(actorID)
	correction.SupersedesID = &original.ID

	if err := s.promotions.Create(ctx, &correction); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store promotion correction")
	}
	s.metrics.RecordPromotion(string(correction.Status), string(correction.Source))
	if s.notifier != nil {
		s.notifier.Notify(PromotionDecidedEvents([]models.StudentPromotion{correction})...)
	}

	s.logger.Info("promotion corrected",
		zap.String("promotion_id", correction.ID),
		zap.String("supersedes_id", original.ID),
		zap.String("student_id", correction.StudentID),
		zap.String("from_status", string(original.Status)),
		zap.String("to_status", string(correction.Status)))
	return &correction, nil
}

// List returns the promotion history of a class for a year.
func (s *PromotionService) List(ctx context.Context, query dto.PromotionQuery) ([]models.StudentPromotion, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion query")
	}
	records, err := s.promotions.List(ctx, models.PromotionFilter{ClassID: query.ClassID, AcademicYear: query.AcademicYear})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promotions")
	}
	if records == nil {
		records = []models.StudentPromotion{}
	}
	return records, nil
}

func (s *PromotionService) evaluateClass(ctx context.Context, classID, academicYear string) (*classEvaluation, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	terms, err := s.terms.ListByYear(ctx, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if len(terms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year has no terms")
	}

	cohort, err := s.enrollments.ListActiveCohortForYear(ctx, classID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class cohort")
	}
	out := &classEvaluation{class: class}
	if len(cohort) == 0 {
		return out, nil
	}

	rules, err := s.rules.ListActiveByLevel(ctx, class.Level)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion rules")
	}
	if len(rules) != 1 {
		code, msg := PromotionErrNoActiveRule, fmt.Sprintf("no active promotion rule for level %s", class.Level)
		if len(rules) > 1 {
			code, msg = PromotionErrAmbiguousRule, fmt.Sprintf("%d active promotion rules for level %s", len(rules), class.Level)
		}
		for _, student := range cohort {
			out.errors = append(out.errors, dto.PromotionRowError{StudentID: student.StudentID, Code: code, Message: msg})
		}
		return out, nil
	}
	rule := rules[0]

	studentIDs := make([]string, len(cohort))
	for i, student := range cohort {
		studentIDs[i] = student.StudentID
	}
	results, err := s.results.ListPublishedForYear(ctx, studentIDs, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term results")
	}
	attendance, err := s.attendance.YearSummaries(ctx, studentIDs, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	snapshots := termSnapshots(results)
	for _, student := range cohort {
		input := engine.PromotionInput{
			StudentID:    student.StudentID,
			AcademicYear: academicYear,
			Terms:        snapshots[student.StudentID],
		}
		if summary, ok := attendance[student.StudentID]; ok {
			summary := summary
			input.Attendance = &summary
		}
		eval, err := engine.EvaluatePromotion(input, rule)
		if err != nil {
			var cfgErr *engine.ConfigError
			if errors.As(err, &cfgErr) {
				out.errors = append(out.errors, dto.PromotionRowError{StudentID: student.StudentID, Code: cfgErr.Code, Message: cfgErr.Message})
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate promotion")
		}
		out.candidates = append(out.candidates, promotionCandidate{student: student, rule: rule, eval: eval})
	}
	return out, nil
}

// excludeDecided drops students who already have a decision for the year.
func (s *PromotionService) excludeDecided(ctx context.Context, candidates []promotionCandidate, academicYear string) ([]promotionCandidate, []dto.PromotionRowError, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.student.StudentID
	}
	existing, err := s.promotions.ExistingStudentIDs(ctx, ids, academicYear)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing promotions")
	}

	kept := make([]promotionCandidate, 0, len(candidates))
	var rowErrors []dto.PromotionRowError
	for _, c := range candidates {
		if existing[c.student.StudentID] {
			rowErrors = append(rowErrors, dto.PromotionRowError{
				StudentID: c.student.StudentID,
				Code:      PromotionErrAlreadyExists,
				Message:   fmt.Sprintf("promotion already recorded for %s; use a correction instead", academicYear),
			})
			continue
		}
		kept = append(kept, c)
	}
	return kept, rowErrors, nil
}

func termSnapshots(results []models.TermResult) map[string][]engine.TermSnapshot {
	out := make(map[string][]engine.TermSnapshot)
	for _, r := range results {
		snapshot := engine.TermSnapshot{
			TermID:     r.TermID,
			Sequence:   r.TermSequence,
			Percentage: r.Percentage,
			Subjects:   make([]engine.SubjectScore, 0, len(r.Subjects)),
		}
		for _, subject := range r.Subjects {
			snapshot.Subjects = append(snapshot.Subjects, engine.SubjectScore{
				SubjectID:   subject.SubjectID,
				SubjectName: subject.SubjectName,
				Percentage:  subject.Percentage,
			})
		}
		out[r.StudentID] = append(out[r.StudentID], snapshot)
	}
	for id := range out {
		terms := out[id]
		sort.Slice(terms, func(i, j int) bool { return terms[i].Sequence < terms[j].Sequence })
	}
	return out
}

func indexOverrides(overrides []dto.PromotionOverride) (map[string]dto.PromotionOverride, error) {
	index := make(map[string]dto.PromotionOverride, len(overrides))
	for _, o := range overrides {
		if strings.TrimSpace(o.Reason) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("override for student %s needs a reason", o.StudentID))
		}
		if !o.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("override for student %s has invalid status %s", o.StudentID, o.Status))
		}
		if _, dup := index[o.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate override for student %s", o.StudentID))
		}
		index[o.StudentID] = o
	}
	return index, nil
}

// overrideConflict rejects statuses the student's rule cannot produce.
func overrideConflict(status models.PromotionStatus, rule models.PromotionRule) string {
	switch {
	case status == models.PromotionStatusGraduated && !rule.Graduating():
		return fmt.Sprintf("level %s does not graduate; use PROMOTED", rule.FromLevel)
	case status == models.PromotionStatusPromoted && rule.Graduating():
		return fmt.Sprintf("level %s is the final level; use GRADUATED", rule.FromLevel)
	default:
		return ""
	}
}

func newPromotionRecord(c promotionCandidate, classID, academicYear, actorID string) models.StudentPromotion {
	record := models.StudentPromotion{
		StudentID:         c.student.StudentID,
		ClassID:           classID,
		AcademicYear:      academicYear,
		TermAverages:      pq.Float64Array(c.eval.TermAverages),
		AnnualAverage:     c.eval.AnnualAverage,
		SubjectsPassed:    c.eval.SubjectsPassed,
		SubjectsFailed:    c.eval.SubjectsFailed,
		CoreSubjects:      models.CoreSubjectOutcomes(c.eval.CoreSubjects),
		AttendancePercent: c.eval.AttendancePercent,
		DaysPresent:       c.eval.DaysPresent,
		DaysTracked:       c.eval.DaysTracked,
		Status:            c.eval.Status,
		Recommended:       c.eval.Status,
		Source:            models.PromotionSourceAuto,
		RuleID:            c.rule.ID,
		RuleVersion:       c.rule.Version,
		ExecutedBy:        actorID,
		CriteriaMet:       pq.StringArray(c.eval.CriteriaMet),
		CriteriaFailed:    pq.StringArray(c.eval.CriteriaFailed),
	}
	if c.rule.RequiresApproval {
		record.ApprovedBy = stringPtr(actorID)
	}
	return record
}

func toCandidateDTO(c promotionCandidate, status models.PromotionStatus) dto.PromotionCandidate {
	return dto.PromotionCandidate{
		StudentID:         c.student.StudentID,
		StudentName:       c.student.StudentName,
		Recommended:       c.eval.Status,
		Status:            status,
		TermAverages:      c.eval.TermAverages,
		AnnualAverage:     c.eval.AnnualAverage,
		SubjectsPassed:    c.eval.SubjectsPassed,
		SubjectsFailed:    c.eval.SubjectsFailed,
		CoreSubjects:      c.eval.CoreSubjects,
		AttendancePercent: c.eval.AttendancePercent,
		CriteriaMet:       c.eval.CriteriaMet,
		CriteriaFailed:    c.eval.CriteriaFailed,
		RuleID:            c.rule.ID,
		RuleVersion:       c.rule.Version,
		RequiresApproval:  c.rule.RequiresApproval,
	}
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
