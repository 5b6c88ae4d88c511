package matchmaking

import (
	"cmp"
	"math"
	"slices"

	"github.com/mcoot/skillmatch/internal/model"
)

// Split divides a group into two equal teams with the smaller summed rating gap
// of two patterns over the rating-sorted group: alternating (ABAB...) and paired
// (AABB...). Ties keep the alternating split. The paired pattern only gives
// equal teams when the group size is a multiple of four, so it is skipped otherwise.
func Split(group []model.QueueEntry) (team1, team2 []model.QueueEntry) {
	sorted := slices.Clone(group)
	slices.SortStableFunc(sorted, func(a, b model.QueueEntry) int {
		return cmp.Compare(a.Rating, b.Rating)
	})

	alt1, alt2 := partition(sorted, func(i int) bool { return i%2 == 0 })
	if len(sorted)%4 != 0 {
		return alt1, alt2
	}

	pair1, pair2 := partition(sorted, func(i int) bool { return i%4 == 0 || i%4 == 1 })
	if Imbalance(pair1, pair2) < Imbalance(alt1, alt2) {
		return pair1, pair2
	}
	return alt1, alt2
}

// Imbalance is |sum(team1 ratings) - sum(team2 ratings)|
func Imbalance(team1, team2 []model.QueueEntry) float64 {
	return math.Abs(sum(team1) - sum(team2))
}

func partition(sorted []model.QueueEntry, toFirst func(i int) bool) (a, b []model.QueueEntry) {
	a = make([]model.QueueEntry, 0, len(sorted)/2)
	b = make([]model.QueueEntry, 0, len(sorted)/2)
	for i, e := range sorted {
		if toFirst(i) {
			a = append(a, e)
		} else {
			b = append(b, e)
		}
	}
	return a, b
}

func sum(team []model.QueueEntry) float64 {
	var total float64
	for _, e := range team {
		total += e.Rating
	}
	return total
}
