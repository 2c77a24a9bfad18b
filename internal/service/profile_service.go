package service

import (
	"context"
	"errors"
	"strings"

	"wishlist/internal/model"
	"wishlist/internal/repository"
	"wishlist/internal/util"
)

// ImageUploader stores an image and returns its public URL
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte, filename, subdir string) (string, error)
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type ProfileService interface {
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.UserSummary, error)
	UploadAvatar(ctx context.Context, userID string, data []byte, filename string) (*model.UserSummary, error)
}

type profileService struct {
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
	uploader       ImageUploader
	invalidator    ViewInvalidator
}

func NewProfileService(
	userRepo repository.UserRepository,
	friendshipRepo repository.FriendshipRepository,
	uploader ImageUploader,
	invalidator ViewInvalidator,
) ProfileService {
	return &profileService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		uploader:       uploader,
		invalidator:    invalidator,
	}
}

// UpdateProfile changes the caller's name and email
func (s *profileService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.UserSummary, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != user.Email {
		if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
			return nil, newError(KindInvalidState, "Email is already taken.")
		} else if !repository.IsNotFound(err) {
			return nil, internalError("Failed to update profile", err)
		}
	}

	user.Name = req.Name
	user.Email = req.Email
	if err := s.userRepo.Update(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, newError(KindInvalidState, "Email is already taken.")
		}
		return nil, internalError("Failed to update profile", err)
	}

	s.invalidateFriends(ctx, userID)
	summary := user.Summary()
	return &summary, nil
}

// UploadAvatar stores a new avatar image and points the profile at it
func (s *profileService) UploadAvatar(ctx context.Context, userID string, data []byte, filename string) (*model.UserSummary, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	if s.uploader == nil {
		return nil, newError(KindInternal, "Image storage is not configured")
	}
	if len(data) == 0 {
		return nil, newError(KindValidation, "Image file is required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.uploader.UploadImage(ctx, data, filename, "avatars")
	if err != nil {
		return nil, uploadError(err)
	}

	user.Image = &url
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, internalError("Failed to update profile", err)
	}

	s.invalidateFriends(ctx, userID)
	summary := user.Summary()
	return &summary, nil
}

func (s *profileService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, "User not found")
		}
		return nil, internalError("Failed to load user", err)
	}
	return user, nil
}

// invalidateFriends refreshes every view that shows the user's profile
func (s *profileService) invalidateFriends(ctx context.Context, userID string) {
	ids := []string{userID}
	friendships, err := s.friendshipRepo.FindAcceptedByUserID(ctx, userID)
	if err == nil {
		for _, f := range friendships {
			ids = append(ids, f.Counterparty(userID))
		}
	}
	s.invalidator.Invalidate(ctx, []string{repository.ViewFriends}, ids...)
}

func uploadError(err error) error {
	if errors.Is(err, util.ErrInvalidImage) {
		return newError(KindValidation, "Please upload a JPEG, PNG, WebP or GIF image up to 5MB")
	}
	return internalError("Failed to upload image", err)
}
