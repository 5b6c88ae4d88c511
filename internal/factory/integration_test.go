package factory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skillmatch/internal/config"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/services/queue"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// joinAll enrolls and queues players one second apart
func (s *IntegrationSuite) joinAll(region model.Region, ids ...string) {
	for _, id := range ids {
		_, err := s.app.QueueController.Join(s.ctx, queue.JoinRequest{
			PlayerID: model.PlayerID(id),
			Region:   region,
		})
		s.Require().NoError(err)
		s.app.MockClock.Advance(time.Second)
	}
}

// Test: players queue, get matched, play, and have ratings updated
func (s *IntegrationSuite) TestCompleteMatchFlow() {
	s.joinAll("eu", "a", "b", "c", "d")

	matches, err := s.app.Cycle.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	m := matches[0]
	s.Len(m.Team1, 2)
	s.Len(m.Team2, 2)

	queued, err := s.app.QueueController.List(s.ctx, "eu")
	s.Require().NoError(err)
	s.Empty(queued)

	// matched players cannot re-queue
	_, err = s.app.QueueController.Join(s.ctx, queue.JoinRequest{PlayerID: "a"})
	s.ErrorIs(err, model.ErrAlreadyInMatch)

	_, err = s.app.MatchController.MarkReady(s.ctx, m.ID, "10.0.0.1:7777")
	s.Require().NoError(err)

	res, err := s.app.MatchController.Resolve(s.ctx, m.ID, model.OutcomeTeam1Win)
	s.Require().NoError(err)
	s.Len(res.Players, 4)

	for _, e := range m.Team1 {
		p, err := s.app.QueueController.GetPlayer(s.ctx, e.PlayerID)
		s.Require().NoError(err)
		s.Greater(p.Rating, model.DefaultRating)
		s.Less(p.RD, model.DefaultRD)
		s.False(p.InMatch)
		s.Empty(p.ServerAddr)
		s.Equal(1, p.MatchesPlayed)
	}
	for _, e := range m.Team2 {
		p, err := s.app.QueueController.GetPlayer(s.ctx, e.PlayerID)
		s.Require().NoError(err)
		s.Less(p.Rating, model.DefaultRating)
	}

	// free to queue again, region remembered
	entry, err := s.app.QueueController.Join(s.ctx, queue.JoinRequest{PlayerID: "a"})
	s.Require().NoError(err)
	s.Equal(model.Region("eu"), entry.Region)
}

// Test: regions never mix
func (s *IntegrationSuite) TestRegionsStaySeparate() {
	s.joinAll("eu", "eu-1", "eu-2")
	s.joinAll("us", "us-1", "us-2", "us-3")

	matches, err := s.app.Cycle.Run(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches, "two players per region cannot fill a 2v2")

	s.joinAll("eu", "eu-3", "eu-4")
	matches, err = s.app.Cycle.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(model.Region("eu"), matches[0].Region)
	for _, e := range matches[0].Entries() {
		s.Equal(model.Region("eu"), e.Region)
	}

	us, err := s.app.QueueController.List(s.ctx, "us")
	s.Require().NoError(err)
	s.Len(us, 3)
}

// Test: leaving the queue keeps a player out of the next cycle
func (s *IntegrationSuite) TestLeaveBeforeCycle() {
	s.joinAll("eu", "a", "b", "c", "d")
	s.Require().NoError(s.app.QueueController.Leave(s.ctx, "c"))

	matches, err := s.app.Cycle.Run(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches)
}

// Test: a resolved match cannot be resolved again
func (s *IntegrationSuite) TestResolveTwice() {
	s.joinAll("eu", "a", "b", "c", "d")
	matches, err := s.app.Cycle.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)

	_, err = s.app.MatchController.Resolve(s.ctx, matches[0].ID, model.OutcomeDraw)
	s.Require().NoError(err)
	_, err = s.app.MatchController.Resolve(s.ctx, matches[0].ID, model.OutcomeTeam2Win)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

// Test: configured team size and enrollment defaults flow through
func (s *IntegrationSuite) TestConfigDrivesWiring() {
	cfg := config.New()
	cfg.Matchmaking.TeamSize = 1
	cfg.Rating.DefaultRating = 1200
	cfg.Rating.DefaultRD = 200
	app := NewTestAppWithConfig(cfg)

	for _, id := range []string{"x", "y"} {
		_, err := app.QueueController.Join(s.ctx, queue.JoinRequest{PlayerID: model.PlayerID(id), Region: "ap"})
		s.Require().NoError(err)
	}
	p, err := app.QueueController.GetPlayer(s.ctx, "x")
	s.Require().NoError(err)
	s.Equal(1200.0, p.Rating)
	s.Equal(200.0, p.RD)

	matches, err := app.Cycle.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Len(matches[0].Team1, 1)
	s.Len(matches[0].Team2, 1)
}

func TestNewWithRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.New()
	cfg.Storage.Type = StorageTypeRedis
	cfg.Storage.Redis.URL = fmt.Sprintf("redis://%s", mr.Addr())

	app, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := app.QueueController.Join(ctx, queue.JoinRequest{PlayerID: model.PlayerID(id), Region: "eu"}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	matches, err := app.Cycle.Run(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if !mr.Exists("skillmatch:match:" + string(matches[0].ID)) {
		t.Error("match not stored in redis")
	}
	if app.OutcomeFeed != nil {
		t.Error("outcome feed should be nil without NATS")
	}
}

func TestExpiredRedisMatchFreesPlayers(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.New()
	cfg.Storage.Type = StorageTypeRedis
	cfg.Storage.Redis.URL = fmt.Sprintf("redis://%s", mr.Addr())
	cfg.Storage.Redis.MatchTTL = time.Hour

	app, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := app.QueueController.Join(ctx, queue.JoinRequest{PlayerID: model.PlayerID(id), Region: "eu"}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if matches, err := app.Cycle.Run(ctx); err != nil || len(matches) != 1 {
		t.Fatalf("cycle: %v matches, err %v", len(matches), err)
	}

	if _, err := app.QueueController.Join(ctx, queue.JoinRequest{PlayerID: "a"}); !errors.Is(err, model.ErrAlreadyInMatch) {
		t.Fatalf("join during match: got %v", err)
	}

	// no result ever arrives
	mr.FastForward(2 * time.Hour)

	if _, err := app.QueueController.Join(ctx, queue.JoinRequest{PlayerID: "a"}); err != nil {
		t.Fatalf("join after expiry: %v", err)
	}
	p, err := app.QueueController.GetPlayer(ctx, "a")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if p.InMatch || p.MatchID != "" {
		t.Errorf("stale match flag kept: in_match=%v match_id=%q", p.InMatch, p.MatchID)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.Matchmaking.TeamSize = 0

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	cfg := config.New()
	cfg.Storage.Type = StorageTypeRedis
	cfg.Storage.Redis.URL = "redis://127.0.0.1:1"

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected connection error")
	}
}
