package rating

import "errors"

var (
	// ErrInvalidScore is returned for a game score outside {0, 0.5, 1}
	ErrInvalidScore = errors.New("score must be 0, 0.5 or 1")

	// ErrEmptyTeam is returned when a team has no players
	ErrEmptyTeam = errors.New("team has no players")

	// ErrSolverDiverged is carried by the panic raised when the volatility
	// solver exceeds its iteration bound. It indicates a defect, not bad input.
	ErrSolverDiverged = errors.New("volatility solver did not converge")
)

// ValidScore reports whether s is a legal game score
func ValidScore(s float64) bool {
	return s == 0 || s == 0.5 || s == 1
}
