package service

import (
	"context"
	"sync"
	"testing"

	"wishlist/internal/model"
	"wishlist/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushedEvent struct {
	UserID  string
	Type    string
	Payload map[string]interface{}
}

type recordingPusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (p *recordingPusher) BroadcastToUser(userID, msgType string, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{UserID: userID, Type: msgType, Payload: payload})
}

func (p *recordingPusher) ofType(msgType string) []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushedEvent
	for _, e := range p.events {
		if e.Type == msgType {
			out = append(out, e)
		}
	}
	return out
}

type recordingCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *recordingCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, keys...)
	return nil
}

type recordingPublisher struct {
	err    error
	bodies [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

type fixture struct {
	store         *repotest.Store
	pusher        *recordingPusher
	cache         *recordingCache
	notifications NotificationService
	friendships   FriendshipService
	alice         *model.User
	bob           *model.User
	carol         *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	pusher := &recordingPusher{}
	cache := &recordingCache{}
	invalidator := NewViewInvalidator(cache, pusher)
	notifications := NewNotificationService(store.Notifications(), nil, pusher, invalidator)

	return &fixture{
		store:         store,
		pusher:        pusher,
		cache:         cache,
		notifications: notifications,
		friendships:   NewFriendshipService(store.Friendships(), store.Users(), store, notifications, invalidator),
		alice:         store.AddUser("Alice", "alice@example.com"),
		bob:           store.AddUser("Bob", "bob@example.com"),
		carol:         store.AddUser("Carol", "carol@example.com"),
	}
}

func assertKind(t *testing.T, err error, kind ErrorKind, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
	if message != "" {
		assert.Equal(t, message, MessageOf(err))
	}
}
