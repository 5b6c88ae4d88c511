package rating

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/suite"
)

type TeamAdapterSuite struct {
	suite.Suite
	adapter *TeamAdapter
}

func TestTeamAdapterSuite(t *testing.T) {
	suite.Run(t, new(TeamAdapterSuite))
}

func (s *TeamAdapterSuite) SetupTest() {
	s.adapter = NewTeamAdapter(NewEngine())
}

func team(ratings ...float64) []PublicRating {
	out := make([]PublicRating, len(ratings))
	for i, r := range ratings {
		out[i] = PublicRating{Rating: r, RD: 150, Volatility: 0.06}
	}
	return out
}

func (s *TeamAdapterSuite) TestPooledRD() {
	t := []PublicRating{{RD: 350}, {RD: 350}}
	s.InDelta(350*math.Sqrt2, PooledRD(t), 1e-9)

	s.InDelta(120.0, PooledRD([]PublicRating{{RD: 120}}), 1e-9)
}

func (s *TeamAdapterSuite) TestVirtualOpponent() {
	t1 := team(1400, 1600)
	t2 := team(1700, 1700)

	g1, g2, err := s.adapter.VirtualGames(t1, t2, 1)
	s.Require().NoError(err)

	// team2 averages 200 above team1
	s.InDelta(1600.0, g1[0].OpponentRating, 1e-9)
	s.InDelta(1800.0, g1[1].OpponentRating, 1e-9)
	s.InDelta(1500.0, g2[0].OpponentRating, 1e-9)
	s.InDelta(PooledRD(t2), g1[0].OpponentRD, 1e-9)
	s.InDelta(PooledRD(t1), g2[0].OpponentRD, 1e-9)
	s.Equal(1.0, g1[0].Score)
	s.Equal(0.0, g2[0].Score)
}

func (s *TeamAdapterSuite) TestDrawBetweenEvenTeamsKeepsRatings() {
	t1 := team(1400, 1600)
	t2 := team(1500, 1500)

	next1, next2, err := s.adapter.Rate(t1, t2, 0.5)
	s.Require().NoError(err)

	before := append(slices.Clone(t1), t2...)
	for i, p := range append(next1, next2...) {
		s.InDelta(before[i].Rating, p.Rating, 1e-9)
		s.Less(p.RD, before[i].RD)
	}
}

func (s *TeamAdapterSuite) TestWinnersGainLosersDrop() {
	t1 := team(1450, 1550)
	t2 := team(1480, 1520)

	next1, next2, err := s.adapter.Rate(t1, t2, 0)
	s.Require().NoError(err)

	for i := range t1 {
		s.Less(next1[i].Rating, t1[i].Rating)
	}
	for i := range t2 {
		s.Greater(next2[i].Rating, t2[i].Rating)
	}
}

func (s *TeamAdapterSuite) TestUsesPreMatchRatingsOnly() {
	t1 := team(1450, 1550)
	t2 := team(1480, 1520)

	next1, next2, err := s.adapter.Rate(t1, t2, 1)
	s.Require().NoError(err)

	engine := s.adapter.Engine()
	delta := MeanRating(t2) - MeanRating(t1)
	want2, err := engine.Update(t2[0], []Game{{OpponentRating: t2[0].Rating - delta, OpponentRD: PooledRD(t1), Score: 0}})
	s.Require().NoError(err)
	want1, err := engine.Update(t1[1], []Game{{OpponentRating: t1[1].Rating + delta, OpponentRD: PooledRD(t2), Score: 1}})
	s.Require().NoError(err)

	s.Equal(want2, next2[0])
	s.Equal(want1, next1[1])
	// inputs are left untouched
	s.Equal(team(1450, 1550), t1)
}

func (s *TeamAdapterSuite) TestRejectsInvalidInput() {
	_, _, err := s.adapter.Rate(team(1500), team(1500), 2)
	s.ErrorIs(err, ErrInvalidScore)

	_, _, err = s.adapter.Rate(nil, team(1500), 1)
	s.ErrorIs(err, ErrEmptyTeam)
}
