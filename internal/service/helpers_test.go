package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

func f64(v float64) *float64 {
	return &v
}

func testScale() models.GradeScale {
	return models.GradeScale{
		ID:        "scale-1",
		Name:      "standard",
		Version:   1,
		IsDefault: true,
		Bands: models.GradeBands{
			{MinPercent: 80, MaxPercent: 100, Letter: "A", GradePoint: 4},
			{MinPercent: 70, MaxPercent: 79.99, Letter: "B", GradePoint: 3},
			{MinPercent: 60, MaxPercent: 69.99, Letter: "C", GradePoint: 2},
			{MinPercent: 50, MaxPercent: 59.99, Letter: "D", GradePoint: 1},
			{MinPercent: 0, MaxPercent: 49.99, Letter: "F", GradePoint: 0},
		},
	}
}

type mockClassRepo struct {
	classes  map[string]*models.Class
	subjects map[string][]models.ClassSubject
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ListSubjects(ctx context.Context, classID string) ([]models.ClassSubject, error) {
	out := make([]models.ClassSubject, len(m.subjects[classID]))
	copy(out, m.subjects[classID])
	return out, nil
}

type mockTermRepo struct {
	terms map[string]*models.Term
}

func (m *mockTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermRepo) ListByYear(ctx context.Context, academicYear string) ([]models.Term, error) {
	var out []models.Term
	for _, t := range m.terms {
		if t.AcademicYear == academicYear {
			out = append(out, *t)
		}
	}
	return out, nil
}

type mockEnrollmentRepo struct {
	cohort []models.CohortStudent
}

func (m *mockEnrollmentRepo) ListActiveCohort(ctx context.Context, classID, termID string) ([]models.CohortStudent, error) {
	return m.cohort, nil
}

func (m *mockEnrollmentRepo) ListActiveCohortForYear(ctx context.Context, classID, academicYear string) ([]models.CohortStudent, error) {
	return m.cohort, nil
}

type mockMarkRepo struct {
	marks []models.MarkEntry
}

func (m *mockMarkRepo) ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.MarkEntry, error) {
	wanted := make(map[string]bool, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		wanted[id] = true
	}
	var out []models.MarkEntry
	for _, mark := range m.marks {
		if wanted[mark.EnrollmentID] {
			out = append(out, mark)
		}
	}
	return out, nil
}

type mockScaleRepo struct {
	scales map[string]*models.GradeScale
}

func (m *mockScaleRepo) List(ctx context.Context, filter models.GradeScaleFilter) ([]models.GradeScale, error) {
	var out []models.GradeScale
	for _, s := range m.scales {
		if filter.Name == "" || s.Name == filter.Name {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScaleRepo) FindByID(ctx context.Context, id string) (*models.GradeScale, error) {
	if s, ok := m.scales[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScaleRepo) FindDefault(ctx context.Context) (*models.GradeScale, error) {
	for _, s := range m.scales {
		if s.IsDefault {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockScaleRepo) Create(ctx context.Context, scale *models.GradeScale) error {
	if m.scales == nil {
		m.scales = make(map[string]*models.GradeScale)
	}
	scale.ID = "scale-new"
	scale.Version = 1
	for _, s := range m.scales {
		if s.Name == scale.Name && s.Version >= scale.Version {
			scale.Version = s.Version + 1
		}
		if scale.IsDefault {
			s.IsDefault = false
		}
	}
	m.scales[scale.ID] = scale
	return nil
}

func (m *mockScaleRepo) SetDefault(ctx context.Context, id string) error {
	if _, ok := m.scales[id]; !ok {
		return sql.ErrNoRows
	}
	for key, s := range m.scales {
		s.IsDefault = key == id
	}
	return nil
}

// mockResultStore keeps term results in memory and mimics the replace,
// publish and remarks semantics of the SQL repository.
type mockResultStore struct {
	mu      sync.Mutex
	results map[string]*models.TermResult
	order   []string
}

func newMockResultStore() *mockResultStore {
	return &mockResultStore{results: make(map[string]*models.TermResult)}
}

func (m *mockResultStore) PublishState(ctx context.Context, termID, classID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, published int
	for _, r := range m.results {
		if r.TermID == termID && r.ClassID == classID {
			total++
			if r.IsPublished {
				published++
			}
		}
	}
	return total, published, nil
}

func (m *mockResultStore) ReplaceClassResults(ctx context.Context, termID, classID string, results []models.TermResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make(map[string]bool)
	for _, r := range results {
		id := "tr-" + termID + "-" + r.StudentID
		r.ID = id
		r.IsPublished = false
		r.PublishedAt = nil
		if prev, ok := m.results[id]; ok {
			r.Remarks = prev.Remarks
		} else {
			m.order = append(m.order, id)
		}
		stored := r
		m.results[id] = &stored
		kept[id] = true
	}
	for id, r := range m.results {
		if r.TermID == termID && r.ClassID == classID && !kept[id] {
			delete(m.results, id)
		}
	}
	return nil
}

func (m *mockResultStore) SetPublished(ctx context.Context, termID, classID string, publish bool, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.results {
		if r.TermID != termID || r.ClassID != classID {
			continue
		}
		r.IsPublished = publish
		if publish {
			if r.PublishedAt == nil {
				stamp := at
				r.PublishedAt = &stamp
			}
		} else {
			r.PublishedAt = nil
		}
		n++
	}
	return n, nil
}

func (m *mockResultStore) UpdateRemarks(ctx context.Context, id string, remarks *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.results[id]; ok {
		r.Remarks = remarks
	}
	return nil
}

func (m *mockResultStore) FindByID(ctx context.Context, id string) (*models.TermResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.results[id]; ok {
		out := *r
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultStore) List(ctx context.Context, filter models.ResultFilter) ([]models.TermResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TermResult
	for _, id := range m.order {
		r, ok := m.results[id]
		if !ok {
			continue
		}
		if filter.TermID != "" && r.TermID != filter.TermID {
			continue
		}
		if filter.ClassID != "" && r.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.PublishedOnly && !r.IsPublished {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockResultStore) ListPublishedForYear(ctx context.Context, studentIDs []string, academicYear string) ([]models.TermResult, error) {
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	all, _ := m.List(ctx, models.ResultFilter{PublishedOnly: true})
	var out []models.TermResult
	for _, r := range all {
		if wanted[r.StudentID] {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (m *mockNotifier) Notify(events ...models.NotificationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

func (m *mockNotifier) count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
