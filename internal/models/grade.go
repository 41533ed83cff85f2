package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GradeBand maps an inclusive percentage range to a letter and grade point.
type GradeBand struct {
	MinPercent float64 `json:"min_percent" validate:"gte=0,lte=100"`
	MaxPercent float64 `json:"max_percent" validate:"gte=0,lte=100"`
	Letter     string  `json:"letter" validate:"required,max=4"`
	GradePoint float64 `json:"grade_point" validate:"gte=0"`
}

// GradeBands is stored as a JSONB column.
type GradeBands []GradeBand

// Value implements driver.Valuer.
func (b GradeBands) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *GradeBands) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported grade bands type %T", src)
	}
}

// GradeScale is an immutable, versioned snapshot of grade bands. Editing a
// scale creates a new version; results reference the version they used.
type GradeScale struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Version   int        `db:"version" json:"version"`
	IsDefault bool       `db:"is_default" json:"is_default"`
	Bands     GradeBands `db:"bands" json:"bands"`
	CreatedBy *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// GradeScaleFilter scopes grade scale listings.
type GradeScaleFilter struct {
	Name string
}
