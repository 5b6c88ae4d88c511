package rating

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.engine = NewEngine()
}

func (s *EngineSuite) TestScaleRoundTrip() {
	for _, p := range []PublicRating{
		{Rating: 1500, RD: 350, Volatility: 0.06},
		{Rating: 823.4, RD: 42.5, Volatility: 0.09},
		{Rating: 2712, RD: 1, Volatility: 0.01},
	} {
		back := p.Internal().Public()
		s.InDelta(p.Rating, back.Rating, 1e-9)
		s.InDelta(p.RD, back.RD, 1e-9)
		s.InDelta(p.Volatility, back.Volatility, 1e-12)
	}

	in := InternalRating{Mu: -1.25, Phi: 0.4, Sigma: 0.06}
	back := in.Public().Internal()
	s.InDelta(in.Mu, back.Mu, 1e-12)
	s.InDelta(in.Phi, back.Phi, 1e-12)
}

func (s *EngineSuite) TestCenterMapsToZero() {
	in := PublicRating{Rating: Center, RD: Scale, Volatility: 0.06}.Internal()
	s.InDelta(0.0, in.Mu, 1e-12)
	s.InDelta(1.0, in.Phi, 1e-12)
}

// Worked example from Glickman's Glicko-2 paper
func (s *EngineSuite) TestGlickmanExample() {
	player := PublicRating{Rating: 1500, RD: 200, Volatility: 0.06}
	games := []Game{
		{OpponentRating: 1400, OpponentRD: 30, Score: 1},
		{OpponentRating: 1550, OpponentRD: 100, Score: 0},
		{OpponentRating: 1700, OpponentRD: 300, Score: 0},
	}

	next, err := s.engine.Update(player, games)
	s.Require().NoError(err)

	s.InDelta(1464.06, next.Rating, 0.05)
	s.InDelta(151.52, next.RD, 0.05)
	s.InDelta(0.05999, next.Volatility, 0.00001)
}

func (s *EngineSuite) TestHeadToHeadWinIsSymmetric() {
	a := PublicRating{Rating: 1500, RD: 200, Volatility: 0.06}
	b := PublicRating{Rating: 1500, RD: 200, Volatility: 0.06}

	nextA, err := s.engine.Update(a, []Game{{OpponentRating: b.Rating, OpponentRD: b.RD, Score: 1}})
	s.Require().NoError(err)
	nextB, err := s.engine.Update(b, []Game{{OpponentRating: a.Rating, OpponentRD: a.RD, Score: 0}})
	s.Require().NoError(err)

	gainA := nextA.Rating - a.Rating
	gainB := nextB.Rating - b.Rating
	s.Greater(gainA, 0.0)
	s.Less(gainB, 0.0)
	s.InDelta(gainA, -gainB, 1e-6)

	s.Less(nextA.RD, a.RD)
	s.Less(nextB.RD, b.RD)
	s.InDelta(nextA.RD, nextB.RD, 1e-9)

	s.InDelta(0.06, nextA.Volatility, 0.001)
	s.InDelta(nextA.Volatility, nextB.Volatility, 1e-9)
}

func (s *EngineSuite) TestDidNotCompeteInflatesRD() {
	p := PublicRating{Rating: 1620, RD: 80, Volatility: 0.06}

	next := s.engine.DidNotCompete(p)

	s.Greater(next.RD, p.RD)
	s.Equal(p.Rating, next.Rating)
	s.Equal(p.Volatility, next.Volatility)
}

func (s *EngineSuite) TestEmptyPeriodIsDidNotCompete() {
	p := PublicRating{Rating: 1620, RD: 80, Volatility: 0.06}

	next, err := s.engine.Update(p, nil)
	s.Require().NoError(err)
	s.Equal(s.engine.DidNotCompete(p), next)
}

func (s *EngineSuite) TestRejectsInvalidScore() {
	p := PublicRating{Rating: 1500, RD: 200, Volatility: 0.06}

	_, err := s.engine.Update(p, []Game{{OpponentRating: 1500, OpponentRD: 200, Score: 0.7}})
	s.ErrorIs(err, ErrInvalidScore)
}

func (s *EngineSuite) TestSolverIterationBoundPanics() {
	engine := NewEngine(WithMaxIterations(1))
	p := PublicRating{Rating: 1500, RD: 200, Volatility: 0.06}

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _ = engine.Update(p, []Game{{OpponentRating: 1500, OpponentRD: 200, Score: 1}})
	}()

	s.Require().NotNil(recovered)
	err, ok := recovered.(error)
	s.Require().True(ok)
	s.True(errors.Is(err, ErrSolverDiverged))
}

func (s *EngineSuite) TestOptionsIgnoreNonPositiveValues() {
	e := NewEngine(WithTau(0), WithTolerance(-1), WithMaxIterations(0))
	s.Equal(DefaultTau, e.Tau())
	s.Equal(DefaultTolerance, e.tolerance)
	s.Equal(DefaultMaxIterations, e.maxIterations)

	s.Equal(0.3, NewEngine(WithTau(0.3)).Tau())
}
