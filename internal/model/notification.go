package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType identifies the ledger transition a notification reports
type NotificationType string

// Notification type constants
const (
	NotificationTypeFriendRequest  NotificationType = "FRIEND_REQUEST"
	NotificationTypeFriendAccepted NotificationType = "FRIEND_ACCEPTED"
	NotificationTypeFriendRejected NotificationType = "FRIEND_REJECTED"
)

type Notification struct {
	ID           string           `gorm:"type:uuid;primary_key" json:"id"`
	NotifiedID   string           `gorm:"type:uuid;not null;index" json:"notified_id"` // recipient
	NotifierID   string           `gorm:"type:uuid;not null;index" json:"notifier_id"` // actor
	FriendshipID *string          `gorm:"type:uuid;index" json:"friendship_id,omitempty"`
	Type         NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Data         datatypes.JSON   `gorm:"type:jsonb" json:"data,omitempty"`
	Read         bool             `gorm:"column:is_read;default:false;not null;index" json:"read"`
	CreatedAt    time.Time        `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	Notifier *User `gorm:"foreignKey:NotifierID;references:ID" json:"notifier,omitempty"`

	// Message is derived from Type and the notifier's name
	Message string `gorm:"-" json:"message,omitempty"`
}

// BeforeCreate hook to generate UUID
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// NotificationMessage renders the text shown to the recipient
func NotificationMessage(notifType NotificationType, notifierName string) string {
	name := notifierName
	if name == "" {
		name = "Someone"
	}

	switch notifType {
	case NotificationTypeFriendRequest:
		return fmt.Sprintf("%s sent you a friend request", name)
	case NotificationTypeFriendAccepted:
		return fmt.Sprintf("%s accepted your friend request", name)
	case NotificationTypeFriendRejected:
		return fmt.Sprintf("%s rejected your friend request", name)
	default:
		return "You have a new notification"
	}
}

// FillMessage sets Message from the preloaded notifier
func (n *Notification) FillMessage() {
	name := ""
	if n.Notifier != nil {
		name = n.Notifier.Name
	}
	n.Message = NotificationMessage(n.Type, name)
}
