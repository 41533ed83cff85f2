package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/engine"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
	"github.com/noah-isme/sma-adp-results/pkg/lock"
)

type resultFixture struct {
	svc      *ResultService
	classes  *mockClassRepo
	marks    *mockMarkRepo
	cohort   *mockEnrollmentRepo
	scales   *mockScaleRepo
	store    *mockResultStore
	locker   *lock.LocalLocker
	notifier *mockNotifier
	metrics  *MetricsService
}

func newResultFixture() *resultFixture {
	scale := testScale()
	f := &resultFixture{
		classes: &mockClassRepo{
			classes: map[string]*models.Class{"c1": {ID: "c1", Name: "JSS1 Blue", Level: "JSS1"}},
			subjects: map[string][]models.ClassSubject{"c1": {
				{ClassID: "c1", SubjectID: "math", SubjectName: "Mathematics"},
				{ClassID: "c1", SubjectID: "eng", SubjectName: "English"},
			}},
		},
		cohort: &mockEnrollmentRepo{cohort: []models.CohortStudent{
			{EnrollmentID: "e1", StudentID: "s1", StudentName: "Ada"},
			{EnrollmentID: "e2", StudentID: "s2", StudentName: "Bola"},
			{EnrollmentID: "e3", StudentID: "s3", StudentName: "Chidi"},
		}},
		marks: &mockMarkRepo{marks: []models.MarkEntry{
			{EnrollmentID: "e1", StudentID: "s1", SubjectID: "math", CAScore: f64(35), ExamScore: f64(50)},
			{EnrollmentID: "e1", StudentID: "s1", SubjectID: "eng", CAScore: f64(30), ExamScore: f64(45)},
			{EnrollmentID: "e2", StudentID: "s2", SubjectID: "math", CAScore: f64(30), ExamScore: f64(40)},
			{EnrollmentID: "e2", StudentID: "s2", SubjectID: "eng", CAScore: f64(30), ExamScore: f64(45)},
			{EnrollmentID: "e3", StudentID: "s3", SubjectID: "math", CAScore: f64(30), ExamScore: f64(45)},
			{EnrollmentID: "e3", StudentID: "s3", SubjectID: "eng", CAScore: f64(35), ExamScore: f64(50)},
		}},
		scales:   &mockScaleRepo{scales: map[string]*models.GradeScale{scale.ID: &scale}},
		store:    newMockResultStore(),
		locker:   lock.NewLocalLocker(),
		notifier: &mockNotifier{},
		metrics:  NewMetricsService(),
	}
	terms := &mockTermRepo{terms: map[string]*models.Term{"t1": {ID: "t1", Name: "First Term", AcademicYear: "2025/2026", Sequence: 1}}}
	f.svc = NewResultService(ResultDeps{
		Classes:     f.classes,
		Terms:       terms,
		Enrollments: f.cohort,
		Marks:       f.marks,
		Scales:      f.scales,
		Results:     f.store,
		Locker:      f.locker,
		Notifier:    f.notifier,
		Metrics:     f.metrics,
	}, ResultConfig{DefaultCAMax: 40, DefaultExamMax: 60, LockTTL: time.Minute}, nil, nil)
	return f
}

func computeReq(force bool) dto.ComputeResultsRequest {
	return dto.ComputeResultsRequest{TermID: "t1", ClassID: "c1", Force: force}
}

func publishReq(action models.PublishAction) dto.PublishResultsRequest {
	return dto.PublishResultsRequest{TermID: "t1", ClassID: "c1", Action: action}
}

func TestResultServiceComputeRanksCohort(t *testing.T) {
	f := newResultFixture()

	summary, err := f.svc.Compute(context.Background(), computeReq(false))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Computed)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, "scale-1", summary.GradeScaleID)

	results, err := f.store.List(context.Background(), models.ResultFilter{TermID: "t1", ClassID: "c1"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	byStudent := make(map[string]models.TermResult)
	for _, r := range results {
		byStudent[r.StudentID] = r
		assert.Equal(t, 3, r.ClassSize)
		assert.Equal(t, 1, r.TermSequence)
		assert.False(t, r.IsPublished)
	}
	// s1 and s3 both score 160/200 and share first place; s2 follows in third.
	assert.Equal(t, 1, byStudent["s1"].Position)
	assert.Equal(t, 1, byStudent["s3"].Position)
	assert.Equal(t, 3, byStudent["s2"].Position)
	assert.Equal(t, 80.0, byStudent["s1"].Percentage)
	assert.Equal(t, "A", byStudent["s1"].Grade)
	assert.Equal(t, 72.5, byStudent["s2"].Percentage)
	assert.Equal(t, "B", byStudent["s2"].Grade)

	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.ComputeRuns)
	assert.Equal(t, uint64(3), snapshot.StudentsComputed)
}

func TestResultServicePublishLifecycle(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()

	_, err := f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)

	ack, err := f.svc.Publish(ctx, publishReq(models.PublishActionPublish), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 3, ack.Affected)
	require.NotNil(t, ack.PublishedAt)
	assert.Equal(t, 3, f.notifier.count(models.EventResultPublished))

	// Publishing again is a no-op and sends nothing.
	again, err := f.svc.Publish(ctx, publishReq(models.PublishActionPublish), models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, again.Affected)
	assert.Equal(t, 3, f.notifier.count(models.EventResultPublished))

	_, err = f.svc.Compute(ctx, computeReq(false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStateConflict))

	_, err = f.svc.Publish(ctx, publishReq(models.PublishActionUnpublish), models.RoleAdmin)
	require.NoError(t, err)

	summary, err := f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Computed)
}

func TestResultServiceForceRecomputeUnpublishes(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()

	_, err := f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, publishReq(models.PublishActionPublish), models.RoleSuperAdmin)
	require.NoError(t, err)

	_, err = f.svc.Compute(ctx, computeReq(true))
	require.NoError(t, err)

	total, published, err := f.store.PublishState(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Zero(t, published)
}

func TestResultServicePublishRules(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, publishReq(models.PublishActionPublish), models.RoleAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStateConflict), "nothing computed yet")

	_, err = f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, publishReq(models.PublishActionUnpublish), models.RoleTeacher)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Publish(ctx, dto.PublishResultsRequest{TermID: "t1", ClassID: "c1", Action: "archive"}, models.RoleAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	ack, err := f.svc.Publish(ctx, publishReq(models.PublishActionUnpublish), models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, ack.Affected, "unpublishing drafts is a no-op")
}

func TestResultServiceComputeBusy(t *testing.T) {
	f := newResultFixture()
	release, err := f.locker.Acquire(context.Background(), lock.ResultKey("c1", "t1"), time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Compute(context.Background(), computeReq(false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrBusy))
	assert.True(t, appErrors.FromError(err).Retryable)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().LockContentions)
}

func TestResultServiceComputeCollectsDataFaults(t *testing.T) {
	f := newResultFixture()
	f.cohort.cohort = append(f.cohort.cohort, models.CohortStudent{EnrollmentID: "e4", StudentID: "s4", StudentName: "Dayo"})
	f.marks.marks[0].ExamScore = f64(75) // above the exam maximum of 60

	summary, err := f.svc.Compute(context.Background(), computeReq(false))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Computed)
	assert.Equal(t, 1, summary.Failed)

	codes := make(map[string]string)
	for _, e := range summary.Errors {
		codes[e.StudentID] = e.Code
	}
	assert.Equal(t, engine.CodeScoreOutOfRange, codes["s1"])
	assert.Equal(t, engine.CodeNoMarks, codes["s4"])

	results, err := f.store.List(context.Background(), models.ResultFilter{TermID: "t1", ClassID: "c1"})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "s1", r.StudentID)
		if r.StudentID == "s4" {
			assert.True(t, r.Pending)
			assert.Equal(t, 3, r.Position)
		}
	}
}

func TestResultServiceComputeConfigurationFaults(t *testing.T) {
	f := newResultFixture()
	f.scales.scales["scale-1"].IsDefault = false

	_, err := f.svc.Compute(context.Background(), computeReq(false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))

	f.scales.scales["scale-1"].IsDefault = true
	f.scales.scales["scale-1"].Bands = f.scales.scales["scale-1"].Bands[:4] // no F band
	_, err = f.svc.Compute(context.Background(), computeReq(false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))

	_, err = f.svc.Compute(context.Background(), dto.ComputeResultsRequest{TermID: "missing", ClassID: "c1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResultServiceReadsRespectVisibility(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()
	_, err := f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)

	student, err := f.svc.ClassResults(ctx, "t1", "c1", models.RoleStudent)
	require.NoError(t, err)
	assert.Empty(t, student.Results)
	assert.False(t, student.Published)

	teacher, err := f.svc.ClassResults(ctx, "t1", "c1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Len(t, teacher.Results, 3)
	assert.False(t, teacher.Published)

	_, err = f.svc.StudentResult(ctx, "t1", "s1", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Publish(ctx, publishReq(models.PublishActionPublish), models.RoleAdmin)
	require.NoError(t, err)

	published, err := f.svc.ClassResults(ctx, "t1", "c1", models.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, published.Results, 3)
	assert.True(t, published.Published)

	own, err := f.svc.StudentResult(ctx, "t1", "s1", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "s1", own.StudentID)

	_, err = f.svc.StudentResult(ctx, "t1", "s2", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestResultServiceRemarksSurviveRecompute(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()
	_, err := f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)

	updated, err := f.svc.UpdateRemarks(ctx, "tr-t1-s2", dto.UpdateRemarksRequest{Remarks: "  Keep it up  "})
	require.NoError(t, err)
	require.NotNil(t, updated.Remarks)
	assert.Equal(t, "Keep it up", *updated.Remarks)

	_, err = f.svc.Compute(ctx, computeReq(false))
	require.NoError(t, err)

	stored, err := f.store.FindByID(ctx, "tr-t1-s2")
	require.NoError(t, err)
	require.NotNil(t, stored.Remarks)
	assert.Equal(t, "Keep it up", *stored.Remarks)

	_, err = f.svc.UpdateRemarks(ctx, "missing", dto.UpdateRemarksRequest{Remarks: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
