// Package result holds similarity search hits.
package result

import (
	"math"
	"sort"

	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

// Candidate is a single search hit. Distance is cosine distance, lower is closer.
type Candidate struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Document string           `json:"document"`
	Metadata catalog.Metadata `json:"metadata"`
	Distance float64          `json:"distance"`
}

// FiniteDistance maps NaN and infinite distances to 1, the distance of a zero vector.
func FiniteDistance(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 1
	}
	return d
}

// Sanitize replaces non-finite distances and restores closest-first order.
// Candidates at equal distance keep their relative order.
func Sanitize(cs []Candidate) []Candidate {
	changed := false
	for i := range cs {
		if d := FiniteDistance(cs[i].Distance); d != cs[i].Distance {
			cs[i].Distance = d
			changed = true
		}
	}
	if changed {
		sort.SliceStable(cs, func(i, j int) bool {
			return cs[i].Distance < cs[j].Distance
		})
	}
	return cs
}

// SortByDistance orders candidates closest first, breaking ties by id
// so the order is stable for a given index state. Non-finite distances
// are replaced first.
func SortByDistance(cs []Candidate) {
	for i := range cs {
		cs[i].Distance = FiniteDistance(cs[i].Distance)
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Distance != cs[j].Distance {
			return cs[i].Distance < cs[j].Distance
		}
		return cs[i].ID < cs[j].ID
	})
}

// Limit truncates cs to at most n candidates. Non-positive n yields none.
func Limit(cs []Candidate, n int) []Candidate {
	if n <= 0 {
		return nil
	}
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
