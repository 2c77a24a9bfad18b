package repository

import (
	"context"
	"errors"

	"wishlist/internal/model"
	"wishlist/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendshipRepository interface {
	Create(ctx context.Context, friendship *model.Friendship) error
	FindByID(ctx context.Context, id string) (*model.Friendship, error)
	FindBetween(ctx context.Context, userA, userB string) (*model.Friendship, error)
	FindBetweenForUpdate(ctx context.Context, userA, userB string) (*model.Friendship, error)
	FindByPairKeys(ctx context.Context, pairKeys []string) ([]*model.Friendship, error)
	FindAcceptedByUserID(ctx context.Context, userID string) ([]*model.Friendship, error)
	FindPendingByReceiverID(ctx context.Context, receiverID string) ([]*model.Friendship, error)
	Revive(ctx context.Context, id, senderID, receiverID string) (bool, error)
	Transition(ctx context.Context, id, receiverID string, from, to model.FriendshipStatus) (bool, error)
	DeleteAcceptedBetween(ctx context.Context, userA, userB string) (int64, error)
}

type friendshipRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

func NewFriendshipRepository(db *gorm.DB, redis *util.RedisClient) FriendshipRepository {
	return &friendshipRepository{
		db:    db,
		redis: redis,
	}
}

// Create inserts a new ledger row. A concurrent insert for the same pair
// fails with gorm.ErrDuplicatedKey.
func (r *friendshipRepository) Create(ctx context.Context, friendship *model.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

// FindByID finds a friendship by ID
func (r *friendshipRepository) FindByID(ctx context.Context, id string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindBetween finds the row for a pair of users in either direction
func (r *friendshipRepository) FindBetween(ctx context.Context, userA, userB string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", model.PairKey(userA, userB)).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindBetweenForUpdate is FindBetween holding a row lock until the enclosing
// transaction ends
func (r *friendshipRepository) FindBetweenForUpdate(ctx context.Context, userA, userB string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pair_key = ?", model.PairKey(userA, userB)).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindByPairKeys loads all rows for the given pair keys in one indexed query
func (r *friendshipRepository) FindByPairKeys(ctx context.Context, pairKeys []string) ([]*model.Friendship, error) {
	if len(pairKeys) == 0 {
		return []*model.Friendship{}, nil
	}

	var friendships []*model.Friendship
	err := r.db.WithContext(ctx).
		Where("pair_key IN ?", pairKeys).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// FindAcceptedByUserID finds accepted friendships for a user
func (r *friendshipRepository) FindAcceptedByUserID(ctx context.Context, userID string) ([]*model.Friendship, error) {
	key := friendshipAcceptedCachePrefix + userID

	var friendships []*model.Friendship
	if readCache(ctx, r.redis, key, &friendships) {
		return friendships, nil
	}

	err := r.db.WithContext(ctx).Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, model.FriendshipStatusAccepted).
		Order("updated_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	writeCache(ctx, r.redis, key, friendships, friendshipCacheExpiration)
	return friendships, nil
}

// FindPendingByReceiverID finds pending friendship requests for a user
func (r *friendshipRepository) FindPendingByReceiverID(ctx context.Context, receiverID string) ([]*model.Friendship, error) {
	key := friendshipPendingCachePrefix + receiverID

	var friendships []*model.Friendship
	if readCache(ctx, r.redis, key, &friendships) {
		return friendships, nil
	}

	err := r.db.WithContext(ctx).Preload("Sender").
		Where("receiver_id = ? AND status = ?", receiverID, model.FriendshipStatusPending).
		Order("updated_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	writeCache(ctx, r.redis, key, friendships, friendshipCacheExpiration)
	return friendships, nil
}

// Revive turns a rejected row back into a pending request from senderID.
// It reports false when the row is no longer rejected.
func (r *friendshipRepository) Revive(ctx context.Context, id, senderID, receiverID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("id = ? AND status = ?", id, model.FriendshipStatusRejected).
		Updates(map[string]interface{}{
			"status":      model.FriendshipStatusPending,
			"sender_id":   senderID,
			"receiver_id": receiverID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Transition moves a row addressed to receiverID from one status to another.
// It reports false when the row is not in the expected state.
func (r *friendshipRepository) Transition(ctx context.Context, id, receiverID string, from, to model.FriendshipStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("id = ? AND receiver_id = ? AND status = ?", id, receiverID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteAcceptedBetween deletes the accepted row for a pair, if any
func (r *friendshipRepository) DeleteAcceptedBetween(ctx context.Context, userA, userB string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("pair_key = ? AND status = ?", model.PairKey(userA, userB), model.FriendshipStatusAccepted).
		Delete(&model.Friendship{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
