package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerKey(player.ID), data, 0).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPlayerRecord, err)
	}
	if err := player.Validate(); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdate) (*model.Player, error) {
	key := playerKey(id)
	var updated *model.Player
	err := s.retryTx(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}
		var player model.Player
		if err := json.Unmarshal(data, &player); err != nil {
			return fmt.Errorf("%w: %v", model.ErrInvalidPlayerRecord, err)
		}
		if err := player.Validate(); err != nil {
			return err
		}
		if err := fn(&player); err != nil {
			return err
		}
		if data, err = json.Marshal(&player); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		updated = &player
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Queue operations

// Enqueue watches the player's entry and reservation keys so a DequeueGroup or
// another Enqueue landing between the checks and the write aborts the attempt.
func (s *Storage) Enqueue(ctx context.Context, entry model.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	entryKey := queueEntryKey(entry.PlayerID)
	resKey := reservationKey(entry.PlayerID)
	return s.retryTx(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, entryKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrAlreadyInQueue
		}
		if n, err = tx.Exists(ctx, resKey).Result(); err != nil {
			return err
		}
		if n > 0 {
			return model.ErrAlreadyInMatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey, data, 0)
			pipe.ZAdd(ctx, queueKey(entry.Region), redis.Z{
				Score:  float64(entry.JoinedAt.UnixMilli()),
				Member: string(entry.PlayerID),
			})
			pipe.SAdd(ctx, regionsIndexKey(), string(entry.Region))
			return nil
		})
		return err
	}, entryKey, resKey)
}

func (s *Storage) RemoveFromQueue(ctx context.Context, id model.PlayerID) error {
	entry, err := s.GetQueueEntry(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, queueKey(entry.Region), string(id))
		pipe.Del(ctx, queueEntryKey(id))
		return nil
	})
	return err
}

func (s *Storage) GetQueueEntry(ctx context.Context, id model.PlayerID) (*model.QueueEntry, error) {
	data, err := s.client.Get(ctx, queueEntryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotInQueue
		}
		return nil, err
	}

	var entry model.QueueEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Storage) QueueForRegion(ctx context.Context, region model.Region) ([]model.QueueEntry, error) {
	ids, err := s.client.ZRange(ctx, queueKey(region), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.QueueEntry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = queueEntryKey(model.PlayerID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.QueueEntry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// removed between ZRANGE and MGET
			continue
		}
		var entry model.QueueEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	// ZSET scores only carry milliseconds
	model.SortByJoinedAt(entries)
	return entries, nil
}

func (s *Storage) ScanQueues(ctx context.Context) (map[model.Region][]model.QueueEntry, error) {
	regions, err := s.client.SMembers(ctx, regionsIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[model.Region][]model.QueueEntry, len(regions))
	for _, r := range regions {
		entries, err := s.QueueForRegion(ctx, model.Region(r))
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			out[model.Region(r)] = entries
		}
	}
	return out, nil
}

// DequeueGroup watches the region queue and every member's entry, checks each
// member is still queued, then removes them and writes their reservations in one
// MULTI/EXEC. A concurrent change to any watched key aborts the transaction.
func (s *Storage) DequeueGroup(ctx context.Context, region model.Region, matchID model.MatchID, ids []model.PlayerID) error {
	qKey := queueKey(region)
	members := make([]any, len(ids))
	entryKeys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = string(id)
		entryKeys[i] = queueEntryKey(id)
	}

	watch := append([]string{qKey}, entryKeys...)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, id := range ids {
			if err := tx.ZScore(ctx, qKey, string(id)).Err(); err != nil {
				if errors.Is(err, redis.Nil) {
					return model.ErrQueueConflict
				}
				return err
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, qKey, members...)
			pipe.Del(ctx, entryKeys...)
			// reservations expire with the match record
			for _, id := range ids {
				pipe.Set(ctx, reservationKey(id), string(matchID), s.cfg.MatchTTL)
			}
			return nil
		})
		return err
	}, watch...)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrQueueConflict
	}
	return err
}

func (s *Storage) ReleaseReservations(ctx context.Context, matchID model.MatchID, ids []model.PlayerID) error {
	for _, id := range ids {
		key := reservationKey(id)
		err := s.retryTx(ctx, func(tx *redis.Tx) error {
			holder, err := tx.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			if holder != string(matchID) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)
		if err != nil {
			return err
		}
	}
	return nil
}

// Match operations

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, matchKey(match.ID), data, s.cfg.MatchTTL).Err()
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Storage) ReplaceMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	err = s.client.SetArgs(ctx, matchKey(match.ID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return model.ErrMatchNotFound
	}
	return err
}

func (s *Storage) ClaimMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.GetDel(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	return s.client.Del(ctx, matchKey(id)).Err()
}

// maxTxAttempts bounds optimistic retries when a watched key changes under us
const maxTxAttempts = 5

// retryTx runs fn under WATCH on keys, retrying when the transaction aborts
func (s *Storage) retryTx(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for range maxTxAttempts {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
