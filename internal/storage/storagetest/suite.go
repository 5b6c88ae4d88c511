// Package storagetest holds the behavior every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/storage"
)

// Suite runs against whatever Storage the embedding suite assigns in SetupTest
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Entry builds a queue entry that joined offset seconds after the base time
func Entry(id string, region model.Region, rating float64, offset int) model.QueueEntry {
	return model.QueueEntry{
		PlayerID:   model.PlayerID(id),
		Rating:     rating,
		RD:         model.DefaultRD,
		Volatility: model.DefaultVolatility,
		Region:     region,
		JoinedAt:   base.Add(time.Duration(offset) * time.Second),
	}
}

// Player operations

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:         "player-1",
		Rating:     1612.5,
		RD:         88,
		Volatility: 0.059,
		Region:     "eu-west",
		CreatedAt:  base,
	}

	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	got, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.Rating, got.Rating)
	s.Equal(player.RD, got.RD)
	s.Equal(player.Volatility, got.Volatility)
	s.Equal(player.Region, got.Region)
	s.True(player.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayerRejectsMalformedRecord() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "broken", Rating: 1500}))

	_, err := s.Storage.GetPlayer(s.Ctx, "broken")
	s.ErrorIs(err, model.ErrInvalidPlayerRecord)
}

func (s *Suite) TestSavedPlayerIsNotAliased() {
	player := &model.Player{ID: "p", Rating: 1500, RD: 350, Volatility: 0.06}
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	player.Rating = 9999
	got, err := s.Storage.GetPlayer(s.Ctx, "p")
	s.Require().NoError(err)
	s.Equal(1500.0, got.Rating)
}

// Queue operations

func (s *Suite) TestEnqueueAndScanOrdersOldestFirst() {
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("c", "eu", 1500, 3)))
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 1)))
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("b", "eu", 1500, 2)))
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("x", "us", 1500, 0)))

	queues, err := s.Storage.ScanQueues(s.Ctx)
	s.Require().NoError(err)
	s.Len(queues, 2)
	s.Equal([]model.PlayerID{"a", "b", "c"}, model.PlayerIDs(queues["eu"]))
	s.Equal([]model.PlayerID{"x"}, model.PlayerIDs(queues["us"]))

	eu, err := s.Storage.QueueForRegion(s.Ctx, "eu")
	s.Require().NoError(err)
	s.Equal(queues["eu"], eu)
}

func (s *Suite) TestEnqueueKeepsSnapshot() {
	entry := Entry("a", "eu", 1234.5, 1)
	entry.ConnectionID = "conn-1"
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, entry))

	got, err := s.Storage.GetQueueEntry(s.Ctx, "a")
	s.Require().NoError(err)
	s.Equal(entry.Rating, got.Rating)
	s.Equal(entry.RD, got.RD)
	s.Equal(entry.Region, got.Region)
	s.Equal(entry.ConnectionID, got.ConnectionID)
	s.True(entry.JoinedAt.Equal(got.JoinedAt))
}

func (s *Suite) TestEnqueueTwiceFails() {
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 1)))

	err := s.Storage.Enqueue(s.Ctx, Entry("a", "us", 1500, 2))
	s.ErrorIs(err, model.ErrAlreadyInQueue)
}

func (s *Suite) TestRemoveFromQueue() {
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 1)))

	s.Require().NoError(s.Storage.RemoveFromQueue(s.Ctx, "a"))

	_, err := s.Storage.GetQueueEntry(s.Ctx, "a")
	s.ErrorIs(err, model.ErrNotInQueue)
	queues, err := s.Storage.ScanQueues(s.Ctx)
	s.Require().NoError(err)
	s.Empty(queues)

	s.ErrorIs(s.Storage.RemoveFromQueue(s.Ctx, "a"), model.ErrNotInQueue)
}

func (s *Suite) TestDequeueGroupRemovesAll() {
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry(id, "eu", 1500, i)))
	}

	err := s.Storage.DequeueGroup(s.Ctx, "eu", "m-1", []model.PlayerID{"a", "c", "d", "e"})
	s.Require().NoError(err)

	eu, err := s.Storage.QueueForRegion(s.Ctx, "eu")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"b"}, model.PlayerIDs(eu))
}

func (s *Suite) TestDequeueGroupConflictRemovesNothing() {
	for i, id := range []string{"a", "b", "c"} {
		s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry(id, "eu", 1500, i)))
	}

	err := s.Storage.DequeueGroup(s.Ctx, "eu", "m-1", []model.PlayerID{"a", "b", "gone"})
	s.ErrorIs(err, model.ErrQueueConflict)

	eu, err := s.Storage.QueueForRegion(s.Ctx, "eu")
	s.Require().NoError(err)
	s.Len(eu, 3)
}

func (s *Suite) TestDequeueGroupWrongRegionConflicts() {
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 1)))

	err := s.Storage.DequeueGroup(s.Ctx, "us", "m-1", []model.PlayerID{"a"})
	s.ErrorIs(err, model.ErrQueueConflict)
}

func (s *Suite) TestConcurrentDequeueGroupOnlyOneWins() {
	for i, id := range []string{"a", "b", "c", "d"} {
		s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry(id, "eu", 1500, i)))
	}
	group := []model.PlayerID{"a", "b", "c", "d"}

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Storage.DequeueGroup(s.Ctx, "eu", model.MatchID(fmt.Sprintf("m-%d", i)), group)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, model.ErrQueueConflict)
	}
	s.Equal(1, wins)
}

func (s *Suite) TestDequeuedPlayerCannotRequeueUntilReleased() {
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 0)))
	s.Require().NoError(s.Storage.DequeueGroup(s.Ctx, "eu", "m-1", []model.PlayerID{"a"}))

	err := s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 1))
	s.ErrorIs(err, model.ErrAlreadyInMatch)

	// another match's release leaves the hold in place
	s.Require().NoError(s.Storage.ReleaseReservations(s.Ctx, "m-2", []model.PlayerID{"a"}))
	s.ErrorIs(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 2)), model.ErrAlreadyInMatch)

	s.Require().NoError(s.Storage.ReleaseReservations(s.Ctx, "m-1", []model.PlayerID{"a"}))
	s.Require().NoError(s.Storage.Enqueue(s.Ctx, Entry("a", "eu", 1500, 3)))
}

func (s *Suite) TestReleaseWithoutReservationIsNoop() {
	s.NoError(s.Storage.ReleaseReservations(s.Ctx, "m-1", []model.PlayerID{"nobody"}))
}

// Match operations

func (s *Suite) TestSaveGetDeleteMatch() {
	match := &model.Match{
		ID:        "m-1",
		Region:    "eu",
		Team1:     []model.QueueEntry{Entry("a", "eu", 1500, 0)},
		Team2:     []model.QueueEntry{Entry("b", "eu", 1510, 1)},
		CreatedAt: base,
	}
	s.Require().NoError(s.Storage.SaveMatch(s.Ctx, match))

	got, err := s.Storage.GetMatch(s.Ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(model.Region("eu"), got.Region)
	s.Equal([]model.PlayerID{"a", "b"}, got.PlayerIDs())
	s.Equal(model.OutcomeUnresolved, got.Outcome)

	s.Require().NoError(s.Storage.DeleteMatch(s.Ctx, "m-1"))
	_, err = s.Storage.GetMatch(s.Ctx, "m-1")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestClaimMatchRemovesIt() {
	match := &model.Match{
		ID:     "m-1",
		Region: "eu",
		Team1:  []model.QueueEntry{Entry("a", "eu", 1500, 0)},
		Team2:  []model.QueueEntry{Entry("b", "eu", 1510, 1)},
	}
	s.Require().NoError(s.Storage.SaveMatch(s.Ctx, match))

	got, err := s.Storage.ClaimMatch(s.Ctx, "m-1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"a", "b"}, got.PlayerIDs())

	_, err = s.Storage.ClaimMatch(s.Ctx, "m-1")
	s.ErrorIs(err, model.ErrMatchNotFound)
	_, err = s.Storage.GetMatch(s.Ctx, "m-1")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestConcurrentClaimMatchOnlyOneWins() {
	s.Require().NoError(s.Storage.SaveMatch(s.Ctx, &model.Match{ID: "m-1", Region: "eu"}))

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Storage.ClaimMatch(s.Ctx, "m-1")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, model.ErrMatchNotFound)
	}
	s.Equal(1, wins)
}

func (s *Suite) TestReplaceMatchDoesNotRecreate() {
	match := &model.Match{ID: "m-1", Region: "eu"}
	s.ErrorIs(s.Storage.ReplaceMatch(s.Ctx, match), model.ErrMatchNotFound)

	s.Require().NoError(s.Storage.SaveMatch(s.Ctx, match))
	match.ServerAddr = "10.0.0.1:7777"
	s.Require().NoError(s.Storage.ReplaceMatch(s.Ctx, match))

	got, err := s.Storage.GetMatch(s.Ctx, "m-1")
	s.Require().NoError(err)
	s.Equal("10.0.0.1:7777", got.ServerAddr)
}

func (s *Suite) TestUpdatePlayer() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "p", Rating: 1500, RD: 350, Volatility: 0.06}))

	got, err := s.Storage.UpdatePlayer(s.Ctx, "p", func(p *model.Player) error {
		p.MatchesPlayed++
		return nil
	})
	s.Require().NoError(err)
	s.Equal(1, got.MatchesPlayed)

	stored, err := s.Storage.GetPlayer(s.Ctx, "p")
	s.Require().NoError(err)
	s.Equal(1, stored.MatchesPlayed)
}

func (s *Suite) TestUpdatePlayerAbortLeavesRecord() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "p", Rating: 1500, RD: 350, Volatility: 0.06}))
	stop := errors.New("stop")

	_, err := s.Storage.UpdatePlayer(s.Ctx, "p", func(p *model.Player) error {
		p.Rating = 9999
		return stop
	})
	s.ErrorIs(err, stop)

	stored, err := s.Storage.GetPlayer(s.Ctx, "p")
	s.Require().NoError(err)
	s.Equal(1500.0, stored.Rating)

	_, err = s.Storage.UpdatePlayer(s.Ctx, "missing", func(*model.Player) error { return nil })
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestConcurrentUpdatePlayerLosesNoWrites() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "p", Rating: 1500, RD: 350, Volatility: 0.06}))

	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.UpdatePlayer(s.Ctx, "p", func(p *model.Player) error {
				p.MatchesPlayed++
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	stored, err := s.Storage.GetPlayer(s.Ctx, "p")
	s.Require().NoError(err)
	s.Equal(writers, stored.MatchesPlayed)
}
