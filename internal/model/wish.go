package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Wish struct {
	ID              string     `gorm:"type:uuid;primary_key" json:"id"`
	ListID          string     `gorm:"type:uuid;not null;index" json:"list_id"`
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	DesireLvl       int        `gorm:"not null;default:1" json:"desire_lvl"`
	Price           float64    `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Currency        string     `gorm:"type:varchar(10);not null" json:"currency"`
	URL             *string    `gorm:"type:text" json:"url,omitempty"`
	Description     *string    `gorm:"type:varchar(500)" json:"description,omitempty"`
	DesiredGiftDate *time.Time `gorm:"type:timestamp" json:"desired_gift_date,omitempty"`
	ImageURL        *string    `gorm:"type:text" json:"image_url,omitempty"`
	Fulfilled       bool       `gorm:"default:false;not null" json:"fulfilled"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (w *Wish) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Wish) TableName() string {
	return "wishes"
}
