package repository

import (
	"context"

	"wishlist/internal/model"
	"wishlist/internal/util"

	"gorm.io/gorm"
)

type ListRepository interface {
	Create(ctx context.Context, list *model.List) error
	FindByID(ctx context.Context, id string) (*model.List, error)
	FindByIDWithWishes(ctx context.Context, id string) (*model.List, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.List, error)
	FindPublicByUserID(ctx context.Context, userID, listType string) ([]*model.List, error)
	Update(ctx context.Context, list *model.List) error
	Delete(ctx context.Context, id string) error
}

type listRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

func NewListRepository(db *gorm.DB, redis *util.RedisClient) ListRepository {
	return &listRepository{
		db:    db,
		redis: redis,
	}
}

func (r *listRepository) Create(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *listRepository) FindByID(ctx context.Context, id string) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// FindByIDWithWishes loads a list and its wishes, most wanted first
func (r *listRepository) FindByIDWithWishes(ctx context.Context, id string) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).
		Preload("Wishes", func(db *gorm.DB) *gorm.DB {
			return db.Order("desire_lvl DESC, created_at ASC")
		}).
		Where("id = ?", id).First(&list).Error
	if err != nil {
		return nil, err
	}
	list.WishCount = int64(len(list.Wishes))
	return &list, nil
}

// FindByUserID finds all lists owned by a user with wish counts
func (r *listRepository) FindByUserID(ctx context.Context, userID string) ([]*model.List, error) {
	key := listByUserCachePrefix + userID

	var lists []*model.List
	if readCache(ctx, r.redis, key, &lists) {
		return lists, nil
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	if err := r.fillWishCounts(ctx, lists); err != nil {
		return nil, err
	}

	writeCache(ctx, r.redis, key, lists, listCacheExpiration)
	return lists, nil
}

// FindPublicByUserID finds a user's public lists of the given type with wish counts
func (r *listRepository) FindPublicByUserID(ctx context.Context, userID, listType string) ([]*model.List, error) {
	var lists []*model.List
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND visibility = ? AND type = ?", userID, model.VisibilityPublic, listType).
		Order("created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	if err := r.fillWishCounts(ctx, lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *listRepository) Update(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).
		Model(list).
		Select("name", "description", "visibility", "type").
		Updates(list).Error
}

// Delete removes a list and its wishes in one transaction
func (r *listRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", id).Delete(&model.Wish{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.List{}).Error
	})
}

func (r *listRepository) fillWishCounts(ctx context.Context, lists []*model.List) error {
	if len(lists) == 0 {
		return nil
	}

	ids := make([]string, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}

	var rows []struct {
		ListID string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Wish{}).
		Select("list_id, COUNT(*) AS count").
		Where("list_id IN ?", ids).
		Group("list_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ListID] = row.Count
	}
	for _, l := range lists {
		l.WishCount = counts[l.ID]
	}
	return nil
}
