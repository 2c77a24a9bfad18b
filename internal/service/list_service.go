package service

import (
	"context"
	"strings"

	"wishlist/internal/model"
	"wishlist/internal/repository"
)

// FriendChecker reports whether two users are friends
type FriendChecker interface {
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}

type ListRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Visibility  string  `json:"visibility" validate:"omitempty,oneof=public private"`
	Type        string  `json:"type" validate:"omitempty,max=50"`
}

// ListView is a list shown to someone other than its owner
type ListView struct {
	*model.List
	Owner *model.UserSummary `json:"owner,omitempty"`
}

type ListService interface {
	CreateList(ctx context.Context, userID string, req ListRequest) (*model.List, error)
	UpdateList(ctx context.Context, userID, listID string, req ListRequest) (*model.List, error)
	DeleteList(ctx context.Context, userID, listID string) error
	ListMyLists(ctx context.Context, userID string) ([]*model.List, error)
	GetList(ctx context.Context, userID, listID string) (*model.List, error)
	GetFriendLists(ctx context.Context, userID, friendID string) ([]*model.List, error)
	GetFriendList(ctx context.Context, userID, friendID, listID string) (*ListView, error)
	GetPublicList(ctx context.Context, listID string) (*ListView, error)
}

type listService struct {
	listRepo    repository.ListRepository
	userRepo    repository.UserRepository
	friends     FriendChecker
	invalidator ViewInvalidator
}

func NewListService(
	listRepo repository.ListRepository,
	userRepo repository.UserRepository,
	friends FriendChecker,
	invalidator ViewInvalidator,
) ListService {
	return &listService{
		listRepo:    listRepo,
		userRepo:    userRepo,
		friends:     friends,
		invalidator: invalidator,
	}
}

func normalizeListRequest(req *ListRequest) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d == "" {
			req.Description = nil
		} else {
			req.Description = &d
		}
	}
	req.Visibility = strings.ToLower(strings.TrimSpace(req.Visibility))
	req.Type = strings.TrimSpace(req.Type)
}

func (s *listService) CreateList(ctx context.Context, userID string, req ListRequest) (*model.List, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	normalizeListRequest(&req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	list := &model.List{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		Type:        req.Type,
	}
	if err := s.listRepo.Create(ctx, list); err != nil {
		return nil, internalError("Failed to create list", err)
	}

	s.invalidator.Invalidate(ctx, []string{repository.ViewLists}, userID)
	return list, nil
}

func (s *listService) UpdateList(ctx context.Context, userID, listID string, req ListRequest) (*model.List, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	normalizeListRequest(&req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	list.Name = req.Name
	list.Description = req.Description
	if req.Visibility != "" {
		list.Visibility = req.Visibility
	}
	if req.Type != "" {
		list.Type = req.Type
	}
	if err := s.listRepo.Update(ctx, list); err != nil {
		return nil, internalError("Failed to update list", err)
	}

	s.invalidator.Invalidate(ctx, []string{repository.ViewLists}, userID)
	return list, nil
}

// DeleteList removes the list together with its wishes
func (s *listService) DeleteList(ctx context.Context, userID, listID string) error {
	if userID == "" {
		return errUnauthenticated
	}
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return err
	}
	if err := s.listRepo.Delete(ctx, listID); err != nil {
		return internalError("Failed to delete list", err)
	}

	s.invalidator.Invalidate(ctx, []string{repository.ViewLists}, userID)
	return nil
}

func (s *listService) ListMyLists(ctx context.Context, userID string) ([]*model.List, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	lists, err := s.listRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to load lists", err)
	}
	return lists, nil
}

func (s *listService) GetList(ctx context.Context, userID, listID string) (*model.List, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	if _, err := s.ownedList(ctx, userID, listID); err != nil {
		return nil, err
	}
	list, err := s.listRepo.FindByIDWithWishes(ctx, listID)
	if err != nil {
		return nil, internalError("Failed to load list", err)
	}
	return list, nil
}

// GetFriendLists returns a friend's public wishlists
func (s *listService) GetFriendLists(ctx context.Context, userID, friendID string) ([]*model.List, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	if err := s.requireFriend(ctx, userID, friendID); err != nil {
		return nil, err
	}

	lists, err := s.listRepo.FindPublicByUserID(ctx, friendID, model.ListTypeWishlist)
	if err != nil {
		return nil, internalError("Failed to load lists", err)
	}
	return lists, nil
}

func (s *listService) GetFriendList(ctx context.Context, userID, friendID, listID string) (*ListView, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	if err := s.requireFriend(ctx, userID, friendID); err != nil {
		return nil, err
	}

	view, err := s.publicList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if view.UserID != friendID {
		return nil, newError(KindNotFound, "List not found")
	}
	return view, nil
}

// GetPublicList serves shared links and needs no caller
func (s *listService) GetPublicList(ctx context.Context, listID string) (*ListView, error) {
	return s.publicList(ctx, listID)
}

func (s *listService) publicList(ctx context.Context, listID string) (*ListView, error) {
	if !isUUID(listID) {
		return nil, newError(KindNotFound, "List not found")
	}
	list, err := s.listRepo.FindByIDWithWishes(ctx, listID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, "List not found")
		}
		return nil, internalError("Failed to load list", err)
	}
	// private lists are indistinguishable from missing ones
	if !list.IsPublic() {
		return nil, newError(KindNotFound, "List not found")
	}

	view := &ListView{List: list}
	if owner, err := s.userRepo.FindByID(ctx, list.UserID); err == nil {
		summary := owner.Summary()
		view.Owner = &summary
	}
	return view, nil
}

func (s *listService) requireFriend(ctx context.Context, userID, friendID string) error {
	ok, err := s.friends.AreFriends(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindNotFound, "Friend not found")
	}
	return nil
}

func (s *listService) ownedList(ctx context.Context, userID, listID string) (*model.List, error) {
	return findOwnedList(ctx, s.listRepo, userID, listID)
}

func findOwnedList(ctx context.Context, repo repository.ListRepository, userID, listID string) (*model.List, error) {
	if listID == "" {
		return nil, newError(KindValidation, "List ID is required")
	}
	if !isUUID(listID) {
		return nil, newError(KindNotFound, "List not found")
	}
	list, err := repo.FindByID(ctx, listID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, "List not found")
		}
		return nil, internalError("Failed to load list", err)
	}
	if list.UserID != userID {
		return nil, newError(KindForbidden, "You do not have access to this list")
	}
	return list, nil
}
