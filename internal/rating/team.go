package rating

import (
	"fmt"
	"math"
)

// TeamAdapter rates team matches by collapsing the opposing team into a single
// virtual opponent per player.
type TeamAdapter struct {
	engine *Engine
}

// NewTeamAdapter creates a TeamAdapter driving the given engine
func NewTeamAdapter(engine *Engine) *TeamAdapter {
	return &TeamAdapter{engine: engine}
}

// Engine returns the underlying single-player engine
func (a *TeamAdapter) Engine() *Engine {
	return a.engine
}

// MeanRating is the average public rating of the team
func MeanRating(team []PublicRating) float64 {
	if len(team) == 0 {
		return 0
	}
	var sum float64
	for _, p := range team {
		sum += p.Rating
	}
	return sum / float64(len(team))
}

// PooledRD sums the members' internal variances and returns the matching
// deviation on the public scale
func PooledRD(team []PublicRating) float64 {
	var variance float64
	for _, p := range team {
		variance += pow2(toPhi(p.RD))
	}
	return math.Sqrt(variance) * Scale
}

// VirtualGames builds each player's single game against the opposing team.
// score is team1's result; team2 receives the complement. Everything is
// computed from the ratings passed in, so the order of later updates never matters.
func (a *TeamAdapter) VirtualGames(team1, team2 []PublicRating, score float64) ([]Game, []Game, error) {
	if len(team1) == 0 || len(team2) == 0 {
		return nil, nil, ErrEmptyTeam
	}
	if !ValidScore(score) {
		return nil, nil, fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}

	delta1 := MeanRating(team2) - MeanRating(team1)
	rd1, rd2 := PooledRD(team1), PooledRD(team2)

	games1 := make([]Game, len(team1))
	for i, p := range team1 {
		games1[i] = Game{OpponentRating: p.Rating + delta1, OpponentRD: rd2, Score: score}
	}
	games2 := make([]Game, len(team2))
	for i, p := range team2 {
		games2[i] = Game{OpponentRating: p.Rating - delta1, OpponentRD: rd1, Score: 1 - score}
	}
	return games1, games2, nil
}

// Rate returns both teams' updated ratings in input order.
// Invalid input is rejected before any update is computed.
func (a *TeamAdapter) Rate(team1, team2 []PublicRating, score float64) ([]PublicRating, []PublicRating, error) {
	games1, games2, err := a.VirtualGames(team1, team2, score)
	if err != nil {
		return nil, nil, err
	}

	updated1, err := a.rateAll(team1, games1)
	if err != nil {
		return nil, nil, err
	}
	updated2, err := a.rateAll(team2, games2)
	if err != nil {
		return nil, nil, err
	}
	return updated1, updated2, nil
}

func (a *TeamAdapter) rateAll(team []PublicRating, games []Game) ([]PublicRating, error) {
	out := make([]PublicRating, len(team))
	for i, p := range team {
		next, err := a.engine.Update(p, []Game{games[i]})
		if err != nil {
			return nil, err
		}
		out[i] = next
	}
	return out, nil
}
