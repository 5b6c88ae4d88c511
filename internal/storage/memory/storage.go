package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	players map[model.PlayerID]model.Player
	queues  map[model.Region]map[model.PlayerID]model.QueueEntry
	queued  map[model.PlayerID]model.Region
	// players taken out of a queue and not yet released, by holding match
	reserved map[model.PlayerID]model.MatchID
	matches  map[model.MatchID]*model.Match
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:  make(map[model.PlayerID]model.Player),
		queues:   make(map[model.Region]map[model.PlayerID]model.QueueEntry),
		queued:   make(map[model.PlayerID]model.Region),
		reserved: make(map[model.PlayerID]model.MatchID),
		matches:  make(map[model.MatchID]*model.Match),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = *player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	if err := player.Validate(); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdate) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	if err := player.Validate(); err != nil {
		return nil, err
	}
	if err := fn(&player); err != nil {
		return nil, err
	}
	s.players[id] = player
	return &player, nil
}

// Queue operations

func (s *Storage) Enqueue(ctx context.Context, entry model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queued[entry.PlayerID]; ok {
		return model.ErrAlreadyInQueue
	}
	if _, ok := s.reserved[entry.PlayerID]; ok {
		return model.ErrAlreadyInMatch
	}
	q, ok := s.queues[entry.Region]
	if !ok {
		q = make(map[model.PlayerID]model.QueueEntry)
		s.queues[entry.Region] = q
	}
	q[entry.PlayerID] = entry
	s.queued[entry.PlayerID] = entry.Region
	return nil
}

func (s *Storage) RemoveFromQueue(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	region, ok := s.queued[id]
	if !ok {
		return model.ErrNotInQueue
	}
	s.removeLocked(region, id)
	return nil
}

func (s *Storage) GetQueueEntry(ctx context.Context, id model.PlayerID) (*model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	region, ok := s.queued[id]
	if !ok {
		return nil, model.ErrNotInQueue
	}
	entry := s.queues[region][id]
	return &entry, nil
}

func (s *Storage) QueueForRegion(ctx context.Context, region model.Region) ([]model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regionLocked(region), nil
}

func (s *Storage) ScanQueues(ctx context.Context) (map[model.Region][]model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Region][]model.QueueEntry, len(s.queues))
	for region := range s.queues {
		if entries := s.regionLocked(region); len(entries) > 0 {
			out[region] = entries
		}
	}
	return out, nil
}

func (s *Storage) DequeueGroup(ctx context.Context, region model.Region, matchID model.MatchID, ids []model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[region]
	for _, id := range ids {
		if _, ok := q[id]; !ok {
			return model.ErrQueueConflict
		}
	}
	for _, id := range ids {
		s.removeLocked(region, id)
		s.reserved[id] = matchID
	}
	return nil
}

func (s *Storage) ReleaseReservations(ctx context.Context, matchID model.MatchID, ids []model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.reserved[id] == matchID {
			delete(s.reserved, id)
		}
	}
	return nil
}

func (s *Storage) regionLocked(region model.Region) []model.QueueEntry {
	q := s.queues[region]
	entries := make([]model.QueueEntry, 0, len(q))
	for _, e := range q {
		entries = append(entries, e)
	}
	model.SortByJoinedAt(entries)
	return entries
}

func (s *Storage) removeLocked(region model.Region, id model.PlayerID) {
	delete(s.queues[region], id)
	delete(s.queued, id)
	if len(s.queues[region]) == 0 {
		delete(s.queues, region)
	}
}

// Match operations

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = cloneMatch(match)
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return cloneMatch(match), nil
}

func (s *Storage) ReplaceMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[match.ID]; !ok {
		return model.ErrMatchNotFound
	}
	s.matches[match.ID] = cloneMatch(match)
	return nil
}

func (s *Storage) ClaimMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	delete(s.matches, id)
	return match, nil
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	return nil
}

func cloneMatch(m *model.Match) *model.Match {
	c := *m
	c.Team1 = slices.Clone(m.Team1)
	c.Team2 = slices.Clone(m.Team2)
	return &c
}
