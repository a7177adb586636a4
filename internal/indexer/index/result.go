package index

import (
	"fmt"
	"sort"
	"strings"
)

// Result is one scored location for a query.
type Result struct {
	Where string
	Count int
	Score float64
}

func (r Result) String() string {
	return fmt.Sprintf("where=%s, count=%d, score=%f", r.Where, r.Count, r.Score)
}

// Less orders by score descending, then count descending, then location
// ascending ignoring case. Locations that differ only by case fall back to a
// byte-wise comparison so the ordering stays total.
func (r Result) Less(o Result) bool {
	if r.Score != o.Score {
		return r.Score > o.Score
	}
	if r.Count != o.Count {
		return r.Count > o.Count
	}
	if c := strings.Compare(strings.ToLower(r.Where), strings.ToLower(o.Where)); c != 0 {
		return c < 0
	}
	return r.Where < o.Where
}

func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Less(results[j])
	})
}
