package engine

import "fmt"

// SubjectInput is one student's raw marks for one subject. Nil scores have
// not been entered.
type SubjectInput struct {
	StudentID string
	SubjectID string
	CAScore   *float64
	ExamScore *float64
	CAMax     float64
	ExamMax   float64
}

// SubjectAggregate is the combined score for one subject.
type SubjectAggregate struct {
	SubjectID    string
	CAScore      float64
	ExamScore    float64
	CAMax        float64
	ExamMax      float64
	CAAssessed   bool
	ExamAssessed bool
	Total        float64
	MaxTotal     float64
	Percentage   float64
}

// Pending reports whether a component is still missing.
func (a SubjectAggregate) Pending() bool {
	return !a.CAAssessed || !a.ExamAssessed
}

// AggregateSubject sums CA and exam. A missing component counts as zero and
// is flagged as not assessed.
func AggregateSubject(in SubjectInput) (SubjectAggregate, error) {
	if in.CAMax < 0 || in.ExamMax < 0 || in.CAMax+in.ExamMax <= 0 {
		return SubjectAggregate{}, configErrorf(CodeInvalidMaxima, "subject %s has invalid maxima CA %.2f exam %.2f", in.SubjectID, in.CAMax, in.ExamMax)
	}

	agg := SubjectAggregate{
		SubjectID: in.SubjectID,
		CAMax:     in.CAMax,
		ExamMax:   in.ExamMax,
		MaxTotal:  in.CAMax + in.ExamMax,
	}

	if in.CAScore != nil {
		if err := checkScore(in, "CA", *in.CAScore, in.CAMax); err != nil {
			return SubjectAggregate{}, err
		}
		agg.CAScore = *in.CAScore
		agg.CAAssessed = true
	}
	if in.ExamScore != nil {
		if err := checkScore(in, "exam", *in.ExamScore, in.ExamMax); err != nil {
			return SubjectAggregate{}, err
		}
		agg.ExamScore = *in.ExamScore
		agg.ExamAssessed = true
	}

	agg.Total = Round2(agg.CAScore + agg.ExamScore)
	agg.Percentage = Round2(clamp(agg.Total/agg.MaxTotal*100, 0, 100))
	return agg, nil
}

func checkScore(in SubjectInput, component string, score, max float64) error {
	if score < 0 || score > max+epsilon {
		return &DataError{
			StudentID: in.StudentID,
			SubjectID: in.SubjectID,
			Code:      CodeScoreOutOfRange,
			Message:   fmt.Sprintf("%s score %.2f outside [0,%.2f] for subject %s", component, score, max, in.SubjectID),
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
