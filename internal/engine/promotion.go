package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// weightTolerance bounds rounding drift when checking that weights sum to 1.
const weightTolerance = 1e-6

// SubjectScore is one subject's percentage within a term.
type SubjectScore struct {
	SubjectID   string
	SubjectName string
	Percentage  float64
}

// TermSnapshot is a student's result for one term of the year.
type TermSnapshot struct {
	TermID     string
	Sequence   int
	Percentage float64
	Subjects   []SubjectScore
}

// PromotionInput is everything known about a student for one academic year.
type PromotionInput struct {
	StudentID    string
	AcademicYear string
	Terms        []TermSnapshot
	Attendance   *models.AttendanceSummary
}

// Evaluation is the outcome of applying a rule, with a trace of every
// criterion checked.
type Evaluation struct {
	StudentID         string
	Status            models.PromotionStatus
	TermAverages      []float64
	AnnualAverage     float64
	SubjectsPassed    int
	SubjectsFailed    int
	CoreSubjects      []models.CoreSubjectOutcome
	AttendancePercent *float64
	DaysPresent       int
	DaysTracked       int
	CriteriaMet       []string
	CriteriaFailed    []string
}

// ValidateRule checks a promotion rule at creation time.
func ValidateRule(rule models.PromotionRule) error {
	if rule.FromLevel == "" {
		return configErrorf(CodeInvalidRule, "rule needs a from level")
	}
	if rule.ToLevel != "" && rule.ToLevel == rule.FromLevel {
		return configErrorf(CodeInvalidRule, "rule cannot promote %s to itself", rule.FromLevel)
	}
	thresholds := []struct {
		name  string
		value float64
	}{
		{"min annual average", rule.MinAnnualAverage},
		{"min subject pass percent", rule.MinSubjectPassPercent},
		{"min attendance percent", rule.MinAttendancePercent},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 100 {
			return configErrorf(CodeInvalidRule, "%s %.2f outside [0,100]", th.name, th.value)
		}
	}
	if rule.ConditionalBand < 0 || rule.ConditionalBand > rule.MinAnnualAverage {
		return configErrorf(CodeInvalidRule, "conditional band %.2f outside [0,%.2f]", rule.ConditionalBand, rule.MinAnnualAverage)
	}
	if rule.MinPassedSubjects < 0 {
		return configErrorf(CodeInvalidRule, "min passed subjects cannot be negative")
	}
	if rule.RequireCoreSubjects && len(rule.CoreSubjectIDs) == 0 {
		return configErrorf(CodeInvalidRule, "core subjects required but none configured")
	}
	if rule.UseTermWeights {
		return ValidateWeights(rule.TermWeights)
	}
	return nil
}

// ValidateWeights requires every weight in [0,1] and a total of 1.
func ValidateWeights(weights []float64) error {
	if len(weights) == 0 {
		return configErrorf(CodeInvalidWeights, "term weighting enabled but no weights configured")
	}
	var sum float64
	for i, w := range weights {
		if w < 0 || w > 1 {
			return configErrorf(CodeInvalidWeights, "weight for term %d is %.4f, must be within [0,1]", i+1, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return configErrorf(CodeInvalidWeights, "term weights sum to %.4f, must sum to 1.0", sum)
	}
	return nil
}

// AnnualAverage is the simple mean of available term percentages or, with
// weighting enabled, the weighted sum. Weights of missing terms are
// redistributed over the terms present.
func AnnualAverage(terms []TermSnapshot, rule models.PromotionRule) (float64, error) {
	if len(terms) == 0 {
		return 0, nil
	}

	if !rule.UseTermWeights {
		var sum float64
		for _, t := range terms {
			sum += t.Percentage
		}
		return Round2(sum / float64(len(terms))), nil
	}

	var weighted, weightSum float64
	for _, t := range terms {
		if t.Sequence < 1 || t.Sequence > len(rule.TermWeights) {
			return 0, configErrorf(CodeInvalidWeights, "rule %s v%d has no weight for term %d", rule.FromLevel, rule.Version, t.Sequence)
		}
		w := rule.TermWeights[t.Sequence-1]
		weighted += t.Percentage * w
		weightSum += w
	}
	if weightSum <= 0 {
		return 0, configErrorf(CodeInvalidWeights, "rule %s v%d gives zero weight to every recorded term", rule.FromLevel, rule.Version)
	}
	return Round2(weighted / weightSum), nil
}

// EvaluatePromotion applies rule to one student's year. Criteria are checked
// in a fixed order so identical inputs give identical traces.
func EvaluatePromotion(in PromotionInput, rule models.PromotionRule) (Evaluation, error) {
	terms := make([]TermSnapshot, len(in.Terms))
	copy(terms, in.Terms)
	sort.Slice(terms, func(i, j int) bool { return terms[i].Sequence < terms[j].Sequence })

	eval := Evaluation{
		StudentID:      in.StudentID,
		TermAverages:   make([]float64, 0, len(terms)),
		CriteriaMet:    []string{},
		CriteriaFailed: []string{},
	}
	for _, t := range terms {
		eval.TermAverages = append(eval.TermAverages, Round2(t.Percentage))
	}

	avg, err := AnnualAverage(terms, rule)
	if err != nil {
		return Evaluation{}, err
	}
	eval.AnnualAverage = avg

	averageMet := false
	if len(terms) == 0 {
		eval.fail("no term results recorded for academic year")
	} else if avg >= rule.MinAnnualAverage {
		averageMet = true
		eval.met("annual average %.2f >= %.2f", avg, rule.MinAnnualAverage)
	} else {
		eval.fail("annual average %.2f < %.2f", avg, rule.MinAnnualAverage)
	}

	best, names := bestBySubject(terms)
	othersMet := true

	if rule.RequireCoreSubjects {
		for _, id := range rule.CoreSubjectIDs {
			outcome := models.CoreSubjectOutcome{SubjectID: id, SubjectName: names[id]}
			label := names[id]
			if label == "" {
				label = id
			}
			score, ok := best[id]
			switch {
			case !ok:
				othersMet = false
				eval.fail("core subject %s has no recorded result", label)
			case score >= rule.MinSubjectPassPercent:
				outcome.Best, outcome.Passed = floatPtr(score), true
				eval.met("core subject %s passed (best %.2f >= %.2f)", label, score, rule.MinSubjectPassPercent)
			default:
				othersMet = false
				outcome.Best = floatPtr(score)
				eval.fail("core subject %s failed (best %.2f < %.2f)", label, score, rule.MinSubjectPassPercent)
			}
			eval.CoreSubjects = append(eval.CoreSubjects, outcome)
		}
	}

	for _, score := range best {
		if score >= rule.MinSubjectPassPercent {
			eval.SubjectsPassed++
		} else {
			eval.SubjectsFailed++
		}
	}
	if rule.MinPassedSubjects > 0 {
		if eval.SubjectsPassed >= rule.MinPassedSubjects {
			eval.met("passed %d subjects >= required %d", eval.SubjectsPassed, rule.MinPassedSubjects)
		} else {
			othersMet = false
			eval.fail("passed %d subjects < required %d", eval.SubjectsPassed, rule.MinPassedSubjects)
		}
	}

	if in.Attendance.Recorded() {
		pct := Round2(float64(in.Attendance.Present) / float64(in.Attendance.Total) * 100)
		eval.AttendancePercent = &pct
		eval.DaysPresent = in.Attendance.Present
		eval.DaysTracked = in.Attendance.Total
	}
	switch {
	case eval.AttendancePercent == nil:
		othersMet = false
		eval.fail("no attendance recorded")
	case rule.MinAttendancePercent <= 0:
	case *eval.AttendancePercent >= rule.MinAttendancePercent:
		eval.met("attendance %.2f%% >= %.2f%%", *eval.AttendancePercent, rule.MinAttendancePercent)
	default:
		othersMet = false
		eval.fail("attendance %.2f%% < %.2f%%", *eval.AttendancePercent, rule.MinAttendancePercent)
	}

	switch {
	case averageMet && othersMet:
		eval.Status = models.PromotionStatusPromoted
		if rule.Graduating() {
			eval.Status = models.PromotionStatusGraduated
		}
	case othersMet && len(terms) > 0 && rule.ConditionalBand > 0 && avg >= rule.MinAnnualAverage-rule.ConditionalBand:
		eval.Status = models.PromotionStatusConditional
		eval.met("annual average %.2f within conditional band [%.2f, %.2f)", avg, rule.MinAnnualAverage-rule.ConditionalBand, rule.MinAnnualAverage)
	default:
		eval.Status = models.PromotionStatusRepeated
	}
	return eval, nil
}

func (e *Evaluation) met(format string, args ...interface{}) {
	e.CriteriaMet = append(e.CriteriaMet, fmt.Sprintf(format, args...))
}

func (e *Evaluation) fail(format string, args ...interface{}) {
	e.CriteriaFailed = append(e.CriteriaFailed, fmt.Sprintf(format, args...))
}

// bestBySubject returns each subject's best percentage across terms.
func bestBySubject(terms []TermSnapshot) (map[string]float64, map[string]string) {
	best := make(map[string]float64)
	names := make(map[string]string)
	for _, t := range terms {
		for _, s := range t.Subjects {
			if cur, ok := best[s.SubjectID]; !ok || s.Percentage > cur {
				best[s.SubjectID] = s.Percentage
			}
			if s.SubjectName != "" {
				names[s.SubjectID] = s.SubjectName
			}
		}
	}
	return best, names
}

func floatPtr(v float64) *float64 {
	return &v
}
