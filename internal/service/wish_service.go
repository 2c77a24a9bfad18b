package service

import (
	"context"
	"strings"
	"time"

	"wishlist/internal/model"
	"wishlist/internal/repository"
)

type WishRequest struct {
	Title           string     `json:"title" validate:"required,min=2,max=255"`
	DesireLvl       int        `json:"desire_lvl" validate:"gte=1,lte=5"`
	Price           float64    `json:"price" validate:"gte=0"`
	Currency        string     `json:"currency" validate:"required,max=10"`
	URL             *string    `json:"url" validate:"omitempty,url"`
	Description     *string    `json:"description" validate:"omitempty,max=500"`
	DesiredGiftDate *time.Time `json:"desired_gift_date"`
	ImageURL        *string    `json:"image_url" validate:"omitempty,url"`
}

type WishService interface {
	CreateWish(ctx context.Context, userID, listID string, req WishRequest) (*model.Wish, error)
	UpdateWish(ctx context.Context, userID, wishID string, req WishRequest) (*model.Wish, error)
	DeleteWish(ctx context.Context, userID, wishID string) error
	ToggleFulfilled(ctx context.Context, userID, wishID string) (*model.Wish, error)
	UploadWishImage(ctx context.Context, userID, wishID string, data []byte, filename string) (*model.Wish, error)
}

type wishService struct {
	wishRepo    repository.WishRepository
	listRepo    repository.ListRepository
	uploader    ImageUploader
	invalidator ViewInvalidator
}

func NewWishService(
	wishRepo repository.WishRepository,
	listRepo repository.ListRepository,
	uploader ImageUploader,
	invalidator ViewInvalidator,
) WishService {
	return &wishService{
		wishRepo:    wishRepo,
		listRepo:    listRepo,
		uploader:    uploader,
		invalidator: invalidator,
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeWishRequest(req *WishRequest) {
	req.Title = strings.TrimSpace(req.Title)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.URL = trimOptional(req.URL)
	req.Description = trimOptional(req.Description)
	req.ImageURL = trimOptional(req.ImageURL)
}

func (s *wishService) CreateWish(ctx context.Context, userID, listID string, req WishRequest) (*model.Wish, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	normalizeWishRequest(&req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := findOwnedList(ctx, s.listRepo, userID, listID); err != nil {
		return nil, err
	}

	wish := &model.Wish{ListID: listID}
	applyWishRequest(wish, req)
	if err := s.wishRepo.Create(ctx, wish); err != nil {
		return nil, internalError("Failed to create wish", err)
	}

	s.invalidator.Invalidate(ctx, []string{repository.ViewLists}, userID)
	return wish, nil
}

func (s *wishService) UpdateWish(ctx context.Context, userID, wishID string, req WishRequest) (*model.Wish, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	normalizeWishRequest(&req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	wish, err := s.ownedWish(ctx, userID, wishID)
	if err != nil {
		return nil, err
	}

	applyWishRequest(wish, req)
	if err := s.wishRepo.Update(ctx, wish); err != nil {
		return nil, internalError("Failed to update wish", err)
	}

	s.invalidator.Invalidate(ctx, []string{repository.ViewLists}, userID)
	return wish, nil
}

func (s *wishService) DeleteWish(ctx context.Context, userID, wishID string) error {
	if userID == "" {
		return errUnauthenticated
	}
	if _, err := s.ownedWish(ctx, userID, wishID); err != nil {
		return err
	}
	if err := s.wishRepo.Delete(ctx, wishID); err != nil {
		return internalError("Failed to delete wish", err)
	}

	s.invalidator.Invalidate(ctx, []string{repository.ViewLists}, userID)
	return nil
}

func (s *wishService) ToggleFulfilled(ctx context.Context, userID, wishID string) (*model.Wish, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	wish, err := s.ownedWish(ctx, userID, wishID)
	if err != nil {
		return nil, err
	}

	wish.Fulfilled = !wish.Fulfilled
	if err := s.wishRepo.Update(ctx, wish); err != nil {
		return nil, internalError("Failed to update wish", err)
	}
	return wish, nil
}

func (s *wishService) UploadWishImage(ctx context.Context, userID, wishID string, data []byte, filename string) (*model.Wish, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	if s.uploader == nil {
		return nil, newError(KindInternal, "Image storage is not configured")
	}
	if len(data) == 0 {
		return nil, newError(KindValidation, "Image file is required")
	}

	wish, err := s.ownedWish(ctx, userID, wishID)
	if err != nil {
		return nil, err
	}

	url, err := s.uploader.UploadImage(ctx, data, filename, "wishes")
	if err != nil {
		return nil, uploadError(err)
	}

	wish.ImageURL = &url
	if err := s.wishRepo.Update(ctx, wish); err != nil {
		return nil, internalError("Failed to update wish", err)
	}
	return wish, nil
}

// ownedWish loads a wish whose parent list belongs to userID
func (s *wishService) ownedWish(ctx context.Context, userID, wishID string) (*model.Wish, error) {
	if wishID == "" {
		return nil, newError(KindValidation, "Wish ID is required")
	}
	if !isUUID(wishID) {
		return nil, newError(KindNotFound, "Wish not found")
	}
	wish, err := s.wishRepo.FindByID(ctx, wishID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, "Wish not found")
		}
		return nil, internalError("Failed to load wish", err)
	}
	if _, err := findOwnedList(ctx, s.listRepo, userID, wish.ListID); err != nil {
		if KindOf(err) == KindForbidden {
			return nil, newError(KindForbidden, "You do not have access to this wish")
		}
		return nil, err
	}
	return wish, nil
}

func applyWishRequest(wish *model.Wish, req WishRequest) {
	wish.Title = req.Title
	wish.DesireLvl = req.DesireLvl
	wish.Price = req.Price
	wish.Currency = req.Currency
	wish.URL = req.URL
	wish.Description = req.Description
	wish.DesiredGiftDate = req.DesiredGiftDate
	if req.ImageURL != nil {
		wish.ImageURL = req.ImageURL
	}
}
