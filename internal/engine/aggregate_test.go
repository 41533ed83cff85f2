package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSubjectFullMarks(t *testing.T) {
	agg, err := AggregateSubject(SubjectInput{SubjectID: "math", CAScore: score(35), ExamScore: score(55), CAMax: 40, ExamMax: 60})
	require.NoError(t, err)

	assert.Equal(t, 90.0, agg.Total)
	assert.Equal(t, 100.0, agg.MaxTotal)
	assert.Equal(t, 90.0, agg.Percentage)
	assert.True(t, agg.CAAssessed)
	assert.True(t, agg.ExamAssessed)
	assert.False(t, agg.Pending())

	letter, point, err := ResolveGrade(standardScale(), agg.Percentage)
	require.NoError(t, err)
	assert.Equal(t, "A", letter)
	assert.Equal(t, 4.0, point)
}

func TestAggregateSubjectDistinguishesZeroFromPending(t *testing.T) {
	zero, err := AggregateSubject(SubjectInput{SubjectID: "eng", CAScore: score(20), ExamScore: score(0), CAMax: 40, ExamMax: 60})
	require.NoError(t, err)
	pending, err := AggregateSubject(SubjectInput{SubjectID: "eng", CAScore: score(20), CAMax: 40, ExamMax: 60})
	require.NoError(t, err)

	assert.Equal(t, zero.Total, pending.Total)
	assert.Equal(t, 20.0, pending.Percentage)
	assert.True(t, zero.ExamAssessed)
	assert.False(t, pending.ExamAssessed)
	assert.False(t, zero.Pending())
	assert.True(t, pending.Pending())
}

func TestAggregateSubjectRejectsOutOfRangeScores(t *testing.T) {
	tests := []SubjectInput{
		{StudentID: "s1", SubjectID: "math", CAScore: score(41), CAMax: 40, ExamMax: 60},
		{StudentID: "s1", SubjectID: "math", ExamScore: score(-1), CAMax: 40, ExamMax: 60},
	}
	for _, in := range tests {
		_, err := AggregateSubject(in)
		var dataErr *DataError
		require.True(t, errors.As(err, &dataErr))
		assert.Equal(t, CodeScoreOutOfRange, dataErr.Code)
		assert.Equal(t, "s1", dataErr.StudentID)
		assert.Equal(t, "math", dataErr.SubjectID)
	}
}

func TestAggregateSubjectInvalidMaxima(t *testing.T) {
	_, err := AggregateSubject(SubjectInput{SubjectID: "art", CAMax: 0, ExamMax: 0})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, CodeInvalidMaxima, cfgErr.Code)
}

func TestAggregateSubjectIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		caMax := float64(10 + rng.Intn(60))
		examMax := float64(10 + rng.Intn(90))
		ca := rng.Float64() * caMax
		exam := rng.Float64() * examMax

		base, err := AggregateSubject(SubjectInput{CAScore: score(ca), ExamScore: score(exam), CAMax: caMax, ExamMax: examMax})
		require.NoError(t, err)

		moreCA, err := AggregateSubject(SubjectInput{CAScore: score(ca + rng.Float64()*(caMax-ca)), ExamScore: score(exam), CAMax: caMax, ExamMax: examMax})
		require.NoError(t, err)
		moreExam, err := AggregateSubject(SubjectInput{CAScore: score(ca), ExamScore: score(exam + rng.Float64()*(examMax-exam)), CAMax: caMax, ExamMax: examMax})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, moreCA.Total, base.Total)
		assert.GreaterOrEqual(t, moreCA.Percentage, base.Percentage)
		assert.GreaterOrEqual(t, moreExam.Total, base.Total)
		assert.GreaterOrEqual(t, moreExam.Percentage, base.Percentage)
		assert.LessOrEqual(t, base.Percentage, 100.0)
	}
}
