package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRepositories are the repositories bound to one open transaction
type TxRepositories struct {
	Friendships   FriendshipRepository
	Notifications NotificationRepository
}

// Transactor runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx TxRepositories) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// WithinTransaction hands fn repositories without a cache: reads inside a
// transaction must see uncommitted rows.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(tx TxRepositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(TxRepositories{
			Friendships:   NewFriendshipRepository(tx, nil),
			Notifications: NewNotificationRepository(tx, nil),
		})
	})
}
