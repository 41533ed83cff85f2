package engine

import (
	"math"
	"sort"

	"github.com/noah-isme/sma-adp-results/internal/models"
)

// bandStep is the precision at which adjacent bands must meet.
const bandStep = 0.01

const epsilon = 1e-9

// Round2 rounds half to even at two decimals.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// ValidateBands checks that bands are well formed and partition [0,100]
// with neighbours exactly one step apart.
func ValidateBands(bands []models.GradeBand) error {
	if len(bands) == 0 {
		return configErrorf(CodeGradeScaleInvalid, "grade scale has no bands")
	}

	sorted := make([]models.GradeBand, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinPercent < sorted[j].MinPercent })

	for _, b := range sorted {
		if b.Letter == "" {
			return configErrorf(CodeGradeScaleInvalid, "band [%.2f,%.2f] has no letter", b.MinPercent, b.MaxPercent)
		}
		if b.MinPercent < 0 || b.MaxPercent > 100 || b.MinPercent > b.MaxPercent {
			return configErrorf(CodeGradeScaleInvalid, "band %s has invalid range [%.2f,%.2f]", b.Letter, b.MinPercent, b.MaxPercent)
		}
		if b.GradePoint < 0 {
			return configErrorf(CodeGradeScaleInvalid, "band %s has negative grade point", b.Letter)
		}
	}

	if first := sorted[0]; first.MinPercent > epsilon {
		return configErrorf(CodeGradeScaleInvalid, "no band covers [0.00,%.2f)", first.MinPercent)
	}
	if last := sorted[len(sorted)-1]; last.MaxPercent < 100-epsilon {
		return configErrorf(CodeGradeScaleInvalid, "no band covers (%.2f,100.00]", last.MaxPercent)
	}

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.MinPercent <= prev.MaxPercent+epsilon {
			return configErrorf(CodeGradeScaleInvalid, "bands %s [%.2f,%.2f] and %s [%.2f,%.2f] overlap",
				prev.Letter, prev.MinPercent, prev.MaxPercent, cur.Letter, cur.MinPercent, cur.MaxPercent)
		}
		if cur.MinPercent-prev.MaxPercent > bandStep+epsilon {
			return configErrorf(CodeGradeScaleInvalid, "gap between %s (max %.2f) and %s (min %.2f)",
				prev.Letter, prev.MaxPercent, cur.Letter, cur.MinPercent)
		}
	}
	return nil
}

// ResolveGrade maps a percentage to the band that contains it. A value with
// no band is a configuration fault; there is no fallback grade.
func ResolveGrade(scale models.GradeScale, percent float64) (string, float64, error) {
	p := Round2(percent)
	for _, b := range scale.Bands {
		if p >= b.MinPercent-epsilon && p <= b.MaxPercent+epsilon {
			return b.Letter, b.GradePoint, nil
		}
	}
	return "", 0, configErrorf(CodeGradeBandMissing, "grade scale %q (v%d) has no band for %.2f", scale.Name, scale.Version, p)
}
