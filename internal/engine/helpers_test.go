package engine

import "github.com/noah-isme/sma-adp-results/internal/models"

func standardScale() models.GradeScale {
	return models.GradeScale{
		ID:      "scale-1",
		Name:    "WAEC",
		Version: 1,
		Bands: models.GradeBands{
			{MinPercent: 80, MaxPercent: 100, Letter: "A", GradePoint: 4.0},
			{MinPercent: 70, MaxPercent: 79.99, Letter: "B", GradePoint: 3.0},
			{MinPercent: 60, MaxPercent: 69.99, Letter: "C", GradePoint: 2.0},
			{MinPercent: 50, MaxPercent: 59.99, Letter: "D", GradePoint: 1.0},
			{MinPercent: 0, MaxPercent: 49.99, Letter: "F", GradePoint: 0},
		},
	}
}

func score(v float64) *float64 {
	return &v
}
