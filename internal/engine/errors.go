// Package engine holds the pure computation behind term results and
// promotion decisions. Nothing here touches storage; callers load inputs,
// call the engine and persist its output.
package engine

import "fmt"

// Configuration fault codes.
const (
	CodeGradeBandMissing  = "CONFIG_GRADE_BAND_MISSING"
	CodeGradeScaleInvalid = "CONFIG_GRADE_SCALE_INVALID"
	CodeInvalidMaxima     = "CONFIG_INVALID_MAXIMA"
	CodeNoSubjects        = "CONFIG_NO_SUBJECTS"
	CodeInvalidWeights    = "CONFIG_INVALID_WEIGHTS"
	CodeInvalidRule       = "CONFIG_INVALID_RULE"
)

// Per-student data fault codes.
const (
	CodeScoreOutOfRange = "DATA_SCORE_OUT_OF_RANGE"
	CodeNoMarks         = "DATA_NO_MARKS"
)

// ConfigError is a misconfigured scale, rule or subject setup. It aborts
// the operation that hit it.
type ConfigError struct {
	Code    string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func configErrorf(code, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DataError is a fault in one student's input. Batches collect these and
// carry on with the remaining students.
type DataError struct {
	StudentID string
	SubjectID string
	Code      string
	Message   string
}

func (e *DataError) Error() string {
	return e.Message
}
