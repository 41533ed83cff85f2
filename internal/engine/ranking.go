package engine

import "sort"

// RankEntry is one value to rank within a cohort.
type RankEntry struct {
	Key   string
	Value float64
}

// CohortStats summarises a ranked cohort.
type CohortStats struct {
	Count   int
	Average float64
	Highest float64
	Lowest  float64
}

// RankCohort assigns standard competition ranks ("1224"): equal values share
// the better rank and the next distinct value skips the tied places. Values
// are compared at two decimals. The result does not depend on input order.
func RankCohort(entries []RankEntry) (map[string]int, CohortStats) {
	ranks := make(map[string]int, len(entries))
	if len(entries) == 0 {
		return ranks, CohortStats{}
	}

	sorted := make([]RankEntry, len(entries))
	for i, e := range entries {
		sorted[i] = RankEntry{Key: e.Key, Value: Round2(e.Value)}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Key < sorted[j].Key
	})

	var sum float64
	rank := 0
	for i, e := range sorted {
		if i == 0 || e.Value != sorted[i-1].Value {
			rank = i + 1
		}
		ranks[e.Key] = rank
		sum += e.Value
	}

	return ranks, CohortStats{
		Count:   len(sorted),
		Average: Round2(sum / float64(len(sorted))),
		Highest: sorted[0].Value,
		Lowest:  sorted[len(sorted)-1].Value,
	}
}
