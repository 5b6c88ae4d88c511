package redis

import (
	"fmt"

	"github.com/mcoot/skillmatch/internal/model"
)

// Key prefix for all matchmaking data
const keyPrefix = "skillmatch"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// queueKey returns the Redis key for a region's queue ZSET, scored by join time
func queueKey(region model.Region) string {
	return fmt.Sprintf("%s:queue:%s", keyPrefix, region)
}

// queueEntryKey returns the Redis key holding a queued player's snapshot
func queueEntryKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:queue_entry:%s", keyPrefix, id)
}

// reservationKey returns the Redis key naming the match a dequeued player is held for
func reservationKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:reserved:%s", keyPrefix, id)
}

// regionsIndexKey returns the Redis key for the SET of regions that have had a queue
func regionsIndexKey() string {
	return fmt.Sprintf("%s:idx:regions", keyPrefix)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}
