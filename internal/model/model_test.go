package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyIsDirectionIndependent(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.Equal(t, "a:b", PairKey("b", "a"))
}

func TestFriendshipBeforeCreate(t *testing.T) {
	f := &Friendship{SenderID: "u2", ReceiverID: "u1"}
	require.NoError(t, f.BeforeCreate(nil))
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "u1:u2", f.PairKey)
}

func TestRelationFor(t *testing.T) {
	pending := &Friendship{SenderID: "a", ReceiverID: "b", Status: FriendshipStatusPending}

	tests := []struct {
		name   string
		f      *Friendship
		viewer string
		want   RelationStatus
	}{
		{"no row", nil, "a", RelationNone},
		{"sender sees pending", pending, "a", RelationPending},
		{"receiver sees received", pending, "b", RelationReceivedPending},
		{"accepted", &Friendship{SenderID: "a", ReceiverID: "b", Status: FriendshipStatusAccepted}, "b", RelationAccepted},
		{"rejected", &Friendship{SenderID: "a", ReceiverID: "b", Status: FriendshipStatusRejected}, "a", RelationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelationFor(tt.f, tt.viewer))
		})
	}
}

func TestCounterparty(t *testing.T) {
	f := &Friendship{SenderID: "a", ReceiverID: "b"}
	assert.Equal(t, "b", f.Counterparty("a"))
	assert.Equal(t, "a", f.Counterparty("b"))
	assert.True(t, f.Involves("a"))
	assert.False(t, f.Involves("c"))
}

func TestNotificationMessage(t *testing.T) {
	assert.Equal(t, "Ann sent you a friend request", NotificationMessage(NotificationTypeFriendRequest, "Ann"))
	assert.Equal(t, "Ann accepted your friend request", NotificationMessage(NotificationTypeFriendAccepted, "Ann"))
	assert.Equal(t, "Someone rejected your friend request", NotificationMessage(NotificationTypeFriendRejected, ""))
	assert.Equal(t, "You have a new notification", NotificationMessage("OTHER", "Ann"))

	n := &Notification{Type: NotificationTypeFriendAccepted, Notifier: &User{Name: "Bob"}}
	n.FillMessage()
	assert.Equal(t, "Bob accepted your friend request", n.Message)
}

func TestUserBeforeCreateNormalizesEmail(t *testing.T) {
	u := &User{Email: "  Ann@Example.COM "}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NotEmpty(t, u.ID)
}

func TestListDefaults(t *testing.T) {
	l := &List{}
	require.NoError(t, l.BeforeCreate(nil))
	assert.Equal(t, VisibilityPrivate, l.Visibility)
	assert.Equal(t, ListTypeWishlist, l.Type)
	assert.False(t, l.IsPublic())
}
