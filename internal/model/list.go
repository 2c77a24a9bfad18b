package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// List visibility constants
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// ListTypeWishlist is the default list type
const ListTypeWishlist = "wishlist"

type List struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Visibility  string    `gorm:"type:varchar(20);default:'private';not null" json:"visibility"`
	Type        string    `gorm:"type:varchar(50);default:'wishlist';not null" json:"type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Wishes []Wish `gorm:"foreignKey:ListID;references:ID;constraint:OnDelete:CASCADE" json:"wishes,omitempty"`

	// WishCount is filled by queries that count wishes
	WishCount int64 `gorm:"-" json:"wish_count"`
}

// BeforeCreate hook to generate UUID and apply defaults
func (l *List) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Visibility == "" {
		l.Visibility = VisibilityPrivate
	}
	if l.Type == "" {
		l.Type = ListTypeWishlist
	}
	return nil
}

// TableName specifies the table name
func (List) TableName() string {
	return "lists"
}

// IsPublic reports whether friends and shared links may read the list
func (l *List) IsPublic() bool {
	return l.Visibility == VisibilityPublic
}
