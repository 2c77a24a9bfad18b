package repository

import (
	"context"
	"strconv"

	"wishlist/internal/model"
	"wishlist/internal/util"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	FindByNotifiedID(ctx context.Context, userID string, limit, offset int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string) (int64, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteAllByNotifiedID(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

func NewNotificationRepository(db *gorm.DB, redis *util.RedisClient) NotificationRepository {
	return &notificationRepository{
		db:    db,
		redis: redis,
	}
}

// Create creates a new notification
func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// FindByNotifiedID lists a recipient's notifications, newest first
func (r *notificationRepository) FindByNotifiedID(ctx context.Context, userID string, limit, offset int) ([]*model.Notification, error) {
	var notifications []*model.Notification
	err := r.db.WithContext(ctx).Preload("Notifier").
		Where("notified_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnread counts unread notifications for a user
func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	key := notificationCountCachePrefix + userID

	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, key); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("notified_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	writeCache(ctx, r.redis, key, strconv.FormatInt(count, 10), notificationCacheExpiration)
	return count, nil
}

// MarkAsRead marks one of the recipient's notifications as read
func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND notified_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// MarkAllAsRead marks all notifications as read for a user
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("notified_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// DeleteAllByNotifiedID deletes all notifications for a user
func (r *notificationRepository) DeleteAllByNotifiedID(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("notified_id = ?", userID).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
