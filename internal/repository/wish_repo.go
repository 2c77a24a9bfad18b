package repository

import (
	"context"

	"wishlist/internal/model"

	"gorm.io/gorm"
)

type WishRepository interface {
	Create(ctx context.Context, wish *model.Wish) error
	FindByID(ctx context.Context, id string) (*model.Wish, error)
	Update(ctx context.Context, wish *model.Wish) error
	Delete(ctx context.Context, id string) error
}

type wishRepository struct {
	db *gorm.DB
}

func NewWishRepository(db *gorm.DB) WishRepository {
	return &wishRepository{db: db}
}

func (r *wishRepository) Create(ctx context.Context, wish *model.Wish) error {
	return r.db.WithContext(ctx).Create(wish).Error
}

func (r *wishRepository) FindByID(ctx context.Context, id string) (*model.Wish, error) {
	var wish model.Wish
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wish).Error
	if err != nil {
		return nil, err
	}
	return &wish, nil
}

// Update saves every column, so cleared optional fields are written as NULL
func (r *wishRepository) Update(ctx context.Context, wish *model.Wish) error {
	return r.db.WithContext(ctx).Save(wish).Error
}

func (r *wishRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Wish{}).Error
}
