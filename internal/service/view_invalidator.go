package service

import (
	"context"
	"log"

	"wishlist/internal/repository"
)

// EventPusher delivers realtime events to a user's open connections
type EventPusher interface {
	BroadcastToUser(userID, msgType string, payload map[string]interface{})
}

// CacheDeleter drops cached keys
type CacheDeleter interface {
	Delete(ctx context.Context, keys ...string) error
}

const eventInvalidate = "invalidate"

// ViewInvalidator tells clients and caches that derived views are stale
type ViewInvalidator interface {
	Invalidate(ctx context.Context, views []string, userIDs ...string)
}

type viewInvalidator struct {
	cache  CacheDeleter
	pusher EventPusher
}

// NewViewInvalidator builds an invalidator. Either dependency may be nil.
func NewViewInvalidator(cache CacheDeleter, pusher EventPusher) ViewInvalidator {
	return &viewInvalidator{
		cache:  cache,
		pusher: pusher,
	}
}

// Invalidate never fails the caller. Errors are logged.
func (v *viewInvalidator) Invalidate(ctx context.Context, views []string, userIDs ...string) {
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}

		if v.cache != nil {
			var keys []string
			for _, view := range views {
				keys = append(keys, repository.ViewCacheKeys(view, userID)...)
			}
			if len(keys) > 0 {
				if err := v.cache.Delete(ctx, keys...); err != nil {
					log.Printf("Failed to invalidate cache for user %s: %v", userID, err)
				}
			}
		}

		if v.pusher != nil {
			v.pusher.BroadcastToUser(userID, eventInvalidate, map[string]interface{}{
				"views": views,
			})
		}
	}
}
