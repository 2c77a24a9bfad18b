package repository

import (
	"context"
	"log"
	"time"

	"wishlist/internal/util"
)

// Logical views whose cached reads are dropped after a mutation
const (
	ViewFriends       = "friends"
	ViewNotifications = "notifications"
	ViewLists         = "lists"
)

const (
	friendshipAcceptedCachePrefix = "friendship:accepted:"
	friendshipPendingCachePrefix  = "friendship:pending:"
	friendshipCacheExpiration     = 15 * time.Minute

	notificationCountCachePrefix = "notification:count:"
	notificationCacheExpiration  = 10 * time.Minute

	listByUserCachePrefix = "list:user:"
	listCacheExpiration   = 15 * time.Minute
)

// ViewCacheKeys returns the Redis keys backing a view for one user
func ViewCacheKeys(view, userID string) []string {
	switch view {
	case ViewFriends:
		return []string{
			friendshipAcceptedCachePrefix + userID,
			friendshipPendingCachePrefix + userID,
		}
	case ViewNotifications:
		return []string{notificationCountCachePrefix + userID}
	case ViewLists:
		return []string{listByUserCachePrefix + userID}
	}
	return nil
}

// readCache loads key into dest. Any failure, including a missing client,
// reports a miss.
func readCache(ctx context.Context, redis *util.RedisClient, key string, dest interface{}) bool {
	if redis == nil {
		return false
	}
	if err := redis.GetJSON(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func writeCache(ctx context.Context, redis *util.RedisClient, key string, value interface{}, ttl time.Duration) {
	if redis == nil {
		return
	}
	if err := redis.Set(ctx, key, value, ttl); err != nil {
		log.Printf("Failed to cache %s: %v", key, err)
	}
}
