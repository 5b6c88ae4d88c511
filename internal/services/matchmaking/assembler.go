// Package matchmaking pulls rating-compatible groups out of region queues
// and splits them into balanced teams.
package matchmaking

import (
	"math"

	"github.com/mcoot/skillmatch/internal/dependencies/random"
	"github.com/mcoot/skillmatch/internal/model"
)

// Assembler finds groups of MatchSize players whose matchup windows share a point.
// It does no I/O; removing the group from the store is the caller's job.
type Assembler struct {
	teamSize int
	random   random.Random
}

// NewAssembler creates an Assembler for teams of teamSize players.
// random decides which bound to evict when a candidate could replace either.
func NewAssembler(teamSize int, random random.Random) *Assembler {
	if teamSize < 1 {
		teamSize = 1
	}
	return &Assembler{teamSize: teamSize, random: random}
}

// TeamSize is the number of players per side
func (a *Assembler) TeamSize() int {
	return a.teamSize
}

// MatchSize is the number of players in a group, always even
func (a *Assembler) MatchSize() int {
	return 2 * a.teamSize
}

// Assemble returns the first valid group found by seed order, or nil.
// queue should be oldest first; it is not modified.
func (a *Assembler) Assemble(queue []model.QueueEntry) []model.QueueEntry {
	size := a.MatchSize()
	if len(queue) < size {
		return nil
	}

	for i := range queue {
		pool := a.pool(queue, i)
		if len(pool) < size {
			continue
		}
		if group := a.search(pool); group != nil {
			return group
		}
	}
	return nil
}

// pool is the seed plus every entry whose window can intersect the seed's
func (a *Assembler) pool(queue []model.QueueEntry, seed int) []model.QueueEntry {
	u := queue[seed]
	pool := make([]model.QueueEntry, 0, len(queue))
	pool = append(pool, u)
	for j, t := range queue {
		if j == seed {
			continue
		}
		if math.Abs(u.Rating-t.Rating) <= u.MaxDelta()+t.MaxDelta() {
			pool = append(pool, t)
		}
	}
	return pool
}

func (a *Assembler) search(pool []model.QueueEntry) []model.QueueEntry {
	size := a.MatchSize()
	candidates := make([]model.QueueEntry, size)
	copy(candidates, pool[:size])

	for next := size; ; next++ {
		low, high := bounds(candidates)
		lowMax, highMin := candidates[low], candidates[high]
		if lowMax.UpperBound() >= highMin.LowerBound() {
			return candidates
		}
		if next >= len(pool) {
			return nil
		}

		c := pool[next]
		if c.LowerBound() < highMin.LowerBound() && c.UpperBound() > lowMax.UpperBound() {
			if a.random.Intn(2) == 0 {
				candidates[high] = c
			} else {
				candidates[low] = c
			}
		}
	}
}

// bounds returns the index of the tightest upper bound and of the tightest lower bound
func bounds(candidates []model.QueueEntry) (lowMax, highMin int) {
	for i, c := range candidates {
		if c.UpperBound() < candidates[lowMax].UpperBound() {
			lowMax = i
		}
		if c.LowerBound() > candidates[highMin].LowerBound() {
			highMin = i
		}
	}
	return lowMax, highMin
}

// Valid reports whether every window in group contains a common point
func Valid(group []model.QueueEntry) bool {
	if len(group) == 0 {
		return false
	}
	low, high := bounds(group)
	return group[low].UpperBound() >= group[high].LowerBound()
}
