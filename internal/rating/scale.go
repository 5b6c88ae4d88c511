// Package rating implements the Glicko-2 update and its team extension.
//
// Names follow Glickman's paper: Mu and Phi are rating and deviation on the
// internal scale, Sigma is volatility and Tau constrains how fast volatility
// may drift. See https://www.glicko.net/glicko/glicko2.pdf.
package rating

// Scale constants for converting between the public and internal rating scales
const (
	Center = 1500.0
	Scale  = 173.7178
)

// PublicRating is a player's skill estimate on the public scale
type PublicRating struct {
	Rating     float64
	RD         float64
	Volatility float64
}

// InternalRating is a player's skill estimate on the Glicko-2 scale
type InternalRating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// Internal converts to the Glicko-2 scale
func (p PublicRating) Internal() InternalRating {
	return InternalRating{
		Mu:    toMu(p.Rating),
		Phi:   toPhi(p.RD),
		Sigma: p.Volatility,
	}
}

// Public converts back to the public scale
func (r InternalRating) Public() PublicRating {
	return PublicRating{
		Rating: r.Mu*Scale + Center,
		RD:     r.Phi * Scale,
		// volatility is scale-free
		Volatility: r.Sigma,
	}
}

func toMu(rating float64) float64 { return (rating - Center) / Scale }

func toPhi(rd float64) float64 { return rd / Scale }
