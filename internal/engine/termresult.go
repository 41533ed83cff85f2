package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// StudentMarks carries one student's raw marks keyed by subject id.
type StudentMarks struct {
	EnrollmentID string
	StudentID    string
	StudentName  string
	Marks        map[string]models.MarkEntry
}

// TermInput is a complete snapshot of a class for one term. Subject maxima
// must already have defaults applied.
type TermInput struct {
	TermID     string
	ClassID    string
	Scale      models.GradeScale
	Subjects   []models.ClassSubject
	Students   []StudentMarks
	ComputedAt time.Time
}

// TermComputation is the full result set for a class and term plus the
// per-student faults that kept some students out of it.
type TermComputation struct {
	Results []models.TermResult
	Errors  []models.ResultError
	Failed  int
}

// ComputeTermResults aggregates every student first and only then ranks the
// whole cohort, so ranks never see a partial class. Configuration faults
// abort the run; data faults drop the affected student and are reported.
func ComputeTermResults(in TermInput) (TermComputation, error) {
	if err := ValidateBands(in.Scale.Bands); err != nil {
		return TermComputation{}, err
	}
	if len(in.Subjects) == 0 {
		return TermComputation{}, configErrorf(CodeNoSubjects, "class %s has no subjects configured", in.ClassID)
	}

	subjects := make([]models.ClassSubject, len(in.Subjects))
	copy(subjects, in.Subjects)
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].SubjectID < subjects[j].SubjectID })

	var out TermComputation
	results := make([]models.TermResult, 0, len(in.Students))

	for _, student := range in.Students {
		result, err := aggregateStudent(in, subjects, student)
		if err != nil {
			var dataErr *DataError
			if errors.As(err, &dataErr) {
				out.Failed++
				out.Errors = append(out.Errors, models.ResultError{
					StudentID: student.StudentID,
					SubjectID: dataErr.SubjectID,
					Code:      dataErr.Code,
					Message:   dataErr.Message,
				})
				continue
			}
			return TermComputation{}, err
		}
		if len(student.Marks) == 0 {
			out.Errors = append(out.Errors, models.ResultError{
				StudentID: student.StudentID,
				Code:      CodeNoMarks,
				Message:   fmt.Sprintf("no marks recorded for student %s; all subjects pending", student.StudentID),
			})
		}
		results = append(results, result)
	}

	rankCohort(results, subjects)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Position != results[j].Position {
			return results[i].Position < results[j].Position
		}
		return results[i].StudentID < results[j].StudentID
	})
	out.Results = results
	return out, nil
}

func aggregateStudent(in TermInput, subjects []models.ClassSubject, student StudentMarks) (models.TermResult, error) {
	result := models.TermResult{
		TermID:       in.TermID,
		ClassID:      in.ClassID,
		StudentID:    student.StudentID,
		EnrollmentID: student.EnrollmentID,
		StudentName:  student.StudentName,
		GradeScaleID: in.Scale.ID,
		ComputedAt:   in.ComputedAt,
		Subjects:     make([]models.SubjectResult, 0, len(subjects)),
	}

	var pointSum float64
	for _, subject := range subjects {
		mark := student.Marks[subject.SubjectID]
		agg, err := AggregateSubject(SubjectInput{
			StudentID: student.StudentID,
			SubjectID: subject.SubjectID,
			CAScore:   mark.CAScore,
			ExamScore: mark.ExamScore,
			CAMax:     subject.CAMax,
			ExamMax:   subject.ExamMax,
		})
		if err != nil {
			return models.TermResult{}, err
		}

		letter, point, err := ResolveGrade(in.Scale, agg.Percentage)
		if err != nil {
			return models.TermResult{}, err
		}

		result.Subjects = append(result.Subjects, models.SubjectResult{
			SubjectID:    subject.SubjectID,
			SubjectCode:  subject.SubjectCode,
			SubjectName:  subject.SubjectName,
			CAScore:      agg.CAScore,
			CAMax:        agg.CAMax,
			ExamScore:    agg.ExamScore,
			ExamMax:      agg.ExamMax,
			CAAssessed:   agg.CAAssessed,
			ExamAssessed: agg.ExamAssessed,
			Total:        agg.Total,
			MaxTotal:     agg.MaxTotal,
			Percentage:   agg.Percentage,
			Grade:        letter,
			GradePoint:   point,
		})
		result.TotalMarks += agg.Total
		result.TotalPossible += agg.MaxTotal
		result.Pending = result.Pending || agg.Pending()
		pointSum += point
	}

	result.TotalMarks = Round2(result.TotalMarks)
	result.TotalPossible = Round2(result.TotalPossible)
	result.Percentage = Round2(clamp(result.TotalMarks/result.TotalPossible*100, 0, 100))
	result.GPA = Round2(pointSum / float64(len(subjects)))

	letter, _, err := ResolveGrade(in.Scale, result.Percentage)
	if err != nil {
		return models.TermResult{}, err
	}
	result.Grade = letter
	return result, nil
}

func rankCohort(results []models.TermResult, subjects []models.ClassSubject) {
	for s := range subjects {
		entries := make([]RankEntry, len(results))
		for i := range results {
			entries[i] = RankEntry{Key: results[i].StudentID, Value: results[i].Subjects[s].Percentage}
		}
		ranks, stats := RankCohort(entries)
		for i := range results {
			subject := &results[i].Subjects[s]
			rank := ranks[results[i].StudentID]
			subject.Rank = &rank
			subject.CohortAverage = stats.Average
			subject.CohortHighest = stats.Highest
			subject.CohortLowest = stats.Lowest
		}
	}

	entries := make([]RankEntry, len(results))
	for i := range results {
		entries[i] = RankEntry{Key: results[i].StudentID, Value: results[i].Percentage}
	}
	ranks, _ := RankCohort(entries)
	for i := range results {
		results[i].Position = ranks[results[i].StudentID]
		results[i].ClassSize = len(results)
	}
}
