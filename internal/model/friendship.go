package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendshipStatus is the persisted state of a relationship between two users
type FriendshipStatus string

// Friendship status constants
const (
	FriendshipStatusPending  FriendshipStatus = "PENDING"
	FriendshipStatusAccepted FriendshipStatus = "ACCEPTED"
	FriendshipStatusRejected FriendshipStatus = "REJECTED"
)

// Friendship is one row of the friendship ledger. PairKey is unique, so at
// most one row exists for any unordered pair of users.
type Friendship struct {
	ID         string           `gorm:"type:uuid;primary_key" json:"id"`
	SenderID   string           `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID string           `gorm:"type:uuid;not null;index" json:"receiver_id"`
	PairKey    string           `gorm:"type:varchar(73);not null;uniqueIndex" json:"-"`
	Status     FriendshipStatus `gorm:"type:varchar(20);default:'PENDING';not null;index" json:"status"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Sender   *User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID;references:ID" json:"receiver,omitempty"`
}

// BeforeCreate hook to generate UUID and pair key
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.PairKey = PairKey(f.SenderID, f.ReceiverID)
	return nil
}

// TableName specifies the table name
func (Friendship) TableName() string {
	return "friendships"
}

// PairKey returns the direction-independent key of two user ids
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Counterparty returns the id of the other user in the friendship
func (f *Friendship) Counterparty(userID string) string {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

// Involves reports whether userID is either side of the friendship
func (f *Friendship) Involves(userID string) bool {
	return f.SenderID == userID || f.ReceiverID == userID
}

// RelationStatus is the status of a relationship as seen by one of its users
type RelationStatus string

const (
	RelationNone            RelationStatus = "none"
	RelationPending         RelationStatus = "pending"
	RelationReceivedPending RelationStatus = "received_pending"
	RelationAccepted        RelationStatus = "accepted"
	RelationRejected        RelationStatus = "rejected"
)

// RelationFor classifies the friendship relative to viewerID. A nil
// friendship means no row exists.
func RelationFor(f *Friendship, viewerID string) RelationStatus {
	if f == nil {
		return RelationNone
	}
	switch f.Status {
	case FriendshipStatusAccepted:
		return RelationAccepted
	case FriendshipStatusRejected:
		return RelationRejected
	case FriendshipStatusPending:
		if f.SenderID == viewerID {
			return RelationPending
		}
		return RelationReceivedPending
	}
	return RelationNone
}
