package rating

import (
	"fmt"
	"math"
)

// Defaults for the engine tunables
const (
	DefaultTau           = 0.5
	DefaultTolerance     = 0.000001
	DefaultMaxIterations = 100
)

// Game is one result within a rating period, seen from the rated player's side
type Game struct {
	OpponentRating float64
	OpponentRD     float64
	// 0 loss, 0.5 draw, 1 win
	Score float64
}

// Engine applies single-player Glicko-2 updates.
// It is stateless and safe for concurrent use.
type Engine struct {
	tau           float64
	tolerance     float64
	maxIterations int
}

// Option configures an Engine
type Option func(*Engine)

// WithTau sets the system constant constraining volatility change
func WithTau(tau float64) Option {
	return func(e *Engine) {
		if tau > 0 {
			e.tau = tau
		}
	}
}

// WithTolerance sets the convergence tolerance of the volatility solver
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithMaxIterations bounds the volatility solver's bracket search and refinement loops
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// NewEngine creates an Engine with default tunables overridden by opts
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		tau:           DefaultTau,
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tau returns the configured system constant
func (e *Engine) Tau() float64 {
	return e.tau
}

// Update returns the player's rating after the given rating period.
// An empty period is treated as DidNotCompete.
func (e *Engine) Update(player PublicRating, games []Game) (PublicRating, error) {
	if len(games) == 0 {
		return e.DidNotCompete(player), nil
	}
	for _, g := range games {
		if !ValidScore(g.Score) {
			return PublicRating{}, fmt.Errorf("%w: got %v", ErrInvalidScore, g.Score)
		}
	}

	cur := player.Internal()

	// Steps 3 and 4: estimated variance and the score-weighted improvement sum
	var vInv, improvement float64
	for _, g := range games {
		mu := toMu(g.OpponentRating)
		w := weight(toPhi(g.OpponentRD))
		ex := expected(cur.Mu, mu, w)
		vInv += w * w * ex * (1 - ex)
		improvement += w * (g.Score - ex)
	}
	v := 1 / vInv
	delta := v * improvement

	// Step 5
	sigma := e.volatility(cur.Phi, cur.Sigma, delta, v)

	// Steps 6 and 7
	phiStar := math.Sqrt(pow2(cur.Phi) + pow2(sigma))
	phi := 1 / math.Sqrt(1/pow2(phiStar)+1/v)
	mu := cur.Mu + pow2(phi)*improvement

	return InternalRating{Mu: mu, Phi: phi, Sigma: sigma}.Public(), nil
}

// DidNotCompete widens RD for a player who sat out the period.
// Rating and volatility are unchanged.
func (e *Engine) DidNotCompete(player PublicRating) PublicRating {
	cur := player.Internal()
	cur.Phi = math.Sqrt(pow2(cur.Phi) + pow2(cur.Sigma))
	return cur.Public()
}

// volatility solves for the new sigma with the Illinois variant of regula falsi
func (e *Engine) volatility(phi, sigma, delta, v float64) float64 {
	a := math.Log(pow2(sigma))
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (pow2(delta) - pow2(phi) - v - ex)
		den := 2 * pow2(pow2(phi)+v+ex)
		return num/den - (x-a)/pow2(e.tau)
	}

	A := a
	var B float64
	if pow2(delta) > pow2(phi)+v {
		B = math.Log(pow2(delta) - pow2(phi) - v)
	} else {
		k := 1
		for f(a-float64(k)*e.tau) < 0 {
			k++
			if k > e.maxIterations {
				e.diverged("bracket search", k)
			}
		}
		B = a - float64(k)*e.tau
	}

	fA, fB := f(A), f(B)
	for i := 0; math.Abs(B-A) > e.tolerance; i++ {
		if i >= e.maxIterations {
			e.diverged("refinement", i)
		}
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	return math.Exp(A / 2)
}

func (e *Engine) diverged(stage string, iterations int) {
	panic(fmt.Errorf("%w: %s exceeded %d iterations", ErrSolverDiverged, stage, iterations))
}

// weight is Glickman's g(phi); it discounts opponents with uncertain ratings
func weight(phi float64) float64 {
	return 1 / math.Sqrt(1+3*pow2(phi)/pow2(math.Pi))
}

// expected is the expected score of mu against an opponent at oppMu
func expected(mu, oppMu, w float64) float64 {
	return 1 / (1 + math.Exp(-w*(mu-oppMu)))
}

func pow2(x float64) float64 { return x * x }
