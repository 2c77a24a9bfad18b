package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"wishlist/internal/model"
	"wishlist/internal/repository"
)

const (
	searchResultLimit = 10
	minSearchQueryLen = 2
)

var friendshipViews = []string{repository.ViewFriends, repository.ViewNotifications}

// UserSearchResult is a matched user annotated with the caller's relationship
type UserSearchResult struct {
	model.UserSummary
	Status       model.RelationStatus `json:"status"`
	FriendshipID *string              `json:"friendship_id,omitempty"`
}

// FriendshipStatusResult is the relationship between the caller and another user
type FriendshipStatusResult struct {
	Status       model.RelationStatus `json:"status"`
	FriendshipID *string              `json:"friendship_id,omitempty"`
}

type FriendshipService interface {
	SendFriendRequest(ctx context.Context, callerID, receiverID string) (*model.Friendship, error)
	AcceptFriendRequest(ctx context.Context, callerID, friendshipID string) (*model.Friendship, error)
	DeclineFriendRequest(ctx context.Context, callerID, friendshipID string) (*model.Friendship, error)
	RemoveFriend(ctx context.Context, callerID, friendID string) error
	SearchUsers(ctx context.Context, callerID, query string) ([]*UserSearchResult, error)
	ListFriends(ctx context.Context, callerID string) ([]model.UserSummary, error)
	ListPendingRequests(ctx context.Context, callerID string) ([]*model.Friendship, error)
	GetFriendshipStatus(ctx context.Context, callerID, otherID string) (*FriendshipStatusResult, error)
	GetFriend(ctx context.Context, callerID, friendID string) (*model.UserSummary, error)
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}

type friendshipService struct {
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
	tx             repository.Transactor
	notifService   NotificationService
	invalidator    ViewInvalidator
}

func NewFriendshipService(
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	tx repository.Transactor,
	notifService NotificationService,
	invalidator ViewInvalidator,
) FriendshipService {
	return &friendshipService{
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		tx:             tx,
		notifService:   notifService,
		invalidator:    invalidator,
	}
}

// SendFriendRequest creates or revives the pair's row and records the
// notification in the same transaction
func (s *friendshipService) SendFriendRequest(ctx context.Context, callerID, receiverID string) (*model.Friendship, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return nil, newError(KindValidation, "Receiver ID is required")
	}
	if callerID == receiverID {
		return nil, newError(KindValidation, "You cannot send a friend request to yourself")
	}
	if !isUUID(receiverID) {
		return nil, newError(KindNotFound, "User not found")
	}

	sender, err := s.userRepo.FindByID(ctx, callerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errUnauthenticated
		}
		return nil, internalError("Failed to send friend request", err)
	}
	receiver, err := s.userRepo.FindByID(ctx, receiverID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, "User not found")
		}
		return nil, internalError("Failed to send friend request", err)
	}

	var (
		friendship   *model.Friendship
		notification *model.Notification
	)
	send := func() error {
		return s.tx.WithinTransaction(ctx, func(tx repository.TxRepositories) error {
			existing, err := tx.Friendships.FindBetweenForUpdate(ctx, callerID, receiverID)
			switch {
			case err == nil:
				if err := checkResendable(existing, callerID); err != nil {
					return err
				}
				revived, err := tx.Friendships.Revive(ctx, existing.ID, callerID, receiverID)
				if err != nil {
					return internalError("Failed to send friend request", err)
				}
				if !revived {
					return newError(KindInvalidState, "This friend request is no longer pending")
				}
				existing.Status = model.FriendshipStatusPending
				existing.SenderID = callerID
				existing.ReceiverID = receiverID
				friendship = existing

			case repository.IsNotFound(err):
				created := &model.Friendship{
					SenderID:   callerID,
					ReceiverID: receiverID,
					Status:     model.FriendshipStatusPending,
				}
				// a duplicate key is returned unwrapped so the caller can retry
				if err := tx.Friendships.Create(ctx, created); err != nil {
					return err
				}
				friendship = created

			default:
				return internalError("Failed to send friend request", err)
			}

			notification = s.notifService.Build(receiverID, callerID, friendship.ID, model.NotificationTypeFriendRequest)
			if err := tx.Notifications.Create(ctx, notification); err != nil {
				return internalError("Failed to send friend request", err)
			}
			return nil
		})
	}

	err = send()
	if repository.IsDuplicate(err) {
		// another request for the pair committed first; classify against it
		err = send()
	}
	if err != nil {
		return nil, asAppError(err, "Failed to send friend request")
	}

	s.notifService.Dispatch(ctx, notification, sender.Name)
	s.invalidator.Invalidate(ctx, friendshipViews, callerID, receiverID)

	friendship.Sender = sender
	friendship.Receiver = receiver
	return friendship, nil
}

// checkResendable reports why a send against an existing row is refused.
// Only rejected rows may be revived.
func checkResendable(existing *model.Friendship, callerID string) error {
	switch existing.Status {
	case model.FriendshipStatusAccepted:
		return newError(KindInvalidState, "You are already friends with this user")
	case model.FriendshipStatusPending:
		if existing.SenderID == callerID {
			return newError(KindInvalidState, "You already sent a friend request to this user")
		}
		return newError(KindInvalidState, "This user already sent you a friend request")
	case model.FriendshipStatusRejected:
		return nil
	}
	return internalError("Failed to send friend request", nil)
}

func (s *friendshipService) AcceptFriendRequest(ctx context.Context, callerID, friendshipID string) (*model.Friendship, error) {
	return s.respond(ctx, callerID, friendshipID, model.FriendshipStatusAccepted, model.NotificationTypeFriendAccepted)
}

func (s *friendshipService) DeclineFriendRequest(ctx context.Context, callerID, friendshipID string) (*model.Friendship, error) {
	return s.respond(ctx, callerID, friendshipID, model.FriendshipStatusRejected, model.NotificationTypeFriendRejected)
}

// respond moves a pending request addressed to the caller to its final state
// and notifies the original sender
func (s *friendshipService) respond(
	ctx context.Context,
	callerID, friendshipID string,
	to model.FriendshipStatus,
	notifType model.NotificationType,
) (*model.Friendship, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}
	if friendshipID == "" {
		return nil, newError(KindValidation, "Friendship ID is required")
	}
	if !isUUID(friendshipID) {
		return nil, newError(KindNotFound, "Friend request not found")
	}

	var (
		friendship   *model.Friendship
		notification *model.Notification
	)
	err := s.tx.WithinTransaction(ctx, func(tx repository.TxRepositories) error {
		existing, err := tx.Friendships.FindByID(ctx, friendshipID)
		if err != nil {
			if repository.IsNotFound(err) {
				return newError(KindNotFound, "Friend request not found")
			}
			return internalError("Failed to update friend request", err)
		}
		if existing.ReceiverID != callerID {
			return newError(KindForbidden, "You can only respond to requests sent to you")
		}
		if existing.Status != model.FriendshipStatusPending {
			return newError(KindInvalidState, "This friend request is no longer pending")
		}

		moved, err := tx.Friendships.Transition(ctx, existing.ID, callerID, model.FriendshipStatusPending, to)
		if err != nil {
			return internalError("Failed to update friend request", err)
		}
		if !moved {
			return newError(KindInvalidState, "This friend request is no longer pending")
		}
		existing.Status = to
		friendship = existing

		notification = s.notifService.Build(existing.SenderID, callerID, existing.ID, notifType)
		if err := tx.Notifications.Create(ctx, notification); err != nil {
			return internalError("Failed to update friend request", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Failed to update friend request")
	}

	callerName := ""
	if caller, err := s.userRepo.FindByID(ctx, callerID); err == nil {
		callerName = caller.Name
		friendship.Receiver = caller
	}
	s.notifService.Dispatch(ctx, notification, callerName)
	s.invalidator.Invalidate(ctx, friendshipViews, friendship.SenderID, friendship.ReceiverID)

	return friendship, nil
}

// RemoveFriend deletes the accepted row in either direction. No row is not an error.
func (s *friendshipService) RemoveFriend(ctx context.Context, callerID, friendID string) error {
	if callerID == "" {
		return errUnauthenticated
	}
	if friendID == "" {
		return newError(KindValidation, "Friend ID is required")
	}

	deleted, err := s.friendshipRepo.DeleteAcceptedBetween(ctx, callerID, friendID)
	if err != nil {
		return internalError("Failed to remove friend", err)
	}
	if deleted > 0 {
		s.invalidator.Invalidate(ctx, []string{repository.ViewFriends}, callerID, friendID)
	}
	return nil
}

// SearchUsers matches name or email and classifies every result with a
// single pair-key lookup
func (s *friendshipService) SearchUsers(ctx context.Context, callerID, query string) ([]*UserSearchResult, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryLen {
		return nil, newError(KindValidation, "Search query must be at least 2 characters")
	}

	users, err := s.userRepo.Search(ctx, query, callerID, searchResultLimit)
	if err != nil {
		return nil, internalError("Failed to search users", err)
	}
	if len(users) > searchResultLimit {
		users = users[:searchResultLimit]
	}

	pairKeys := make([]string, 0, len(users))
	for _, u := range users {
		pairKeys = append(pairKeys, model.PairKey(callerID, u.ID))
	}
	rows, err := s.friendshipRepo.FindByPairKeys(ctx, pairKeys)
	if err != nil {
		return nil, internalError("Failed to search users", err)
	}
	byPair := make(map[string]*model.Friendship, len(rows))
	for _, f := range rows {
		byPair[f.PairKey] = f
	}

	results := make([]*UserSearchResult, 0, len(users))
	for _, u := range users {
		f := byPair[model.PairKey(callerID, u.ID)]
		result := &UserSearchResult{
			UserSummary: u.Summary(),
			Status:      model.RelationFor(f, callerID),
		}
		if f != nil {
			id := f.ID
			result.FriendshipID = &id
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *friendshipService) ListFriends(ctx context.Context, callerID string) ([]model.UserSummary, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}

	friendships, err := s.friendshipRepo.FindAcceptedByUserID(ctx, callerID)
	if err != nil {
		return nil, internalError("Failed to load friends", err)
	}

	friends := make([]model.UserSummary, 0, len(friendships))
	for _, f := range friendships {
		other := f.Receiver
		if f.ReceiverID == callerID {
			other = f.Sender
		}
		if other != nil {
			friends = append(friends, other.Summary())
		}
	}
	return friends, nil
}

func (s *friendshipService) ListPendingRequests(ctx context.Context, callerID string) ([]*model.Friendship, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}

	pending, err := s.friendshipRepo.FindPendingByReceiverID(ctx, callerID)
	if err != nil {
		return nil, internalError("Failed to load friend requests", err)
	}
	return pending, nil
}

func (s *friendshipService) GetFriendshipStatus(ctx context.Context, callerID, otherID string) (*FriendshipStatusResult, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}
	if otherID == "" {
		return nil, newError(KindValidation, "User ID is required")
	}
	if otherID == callerID {
		return &FriendshipStatusResult{Status: model.RelationNone}, nil
	}

	f, err := s.friendshipRepo.FindBetween(ctx, callerID, otherID)
	if err != nil {
		if repository.IsNotFound(err) {
			return &FriendshipStatusResult{Status: model.RelationNone}, nil
		}
		return nil, internalError("Failed to load friendship status", err)
	}
	id := f.ID
	return &FriendshipStatusResult{
		Status:       model.RelationFor(f, callerID),
		FriendshipID: &id,
	}, nil
}

// GetFriend returns a user only while the caller is friends with them
func (s *friendshipService) GetFriend(ctx context.Context, callerID, friendID string) (*model.UserSummary, error) {
	if callerID == "" {
		return nil, errUnauthenticated
	}

	friends, err := s.AreFriends(ctx, callerID, friendID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, newError(KindNotFound, "Friend not found")
	}

	user, err := s.userRepo.FindByID(ctx, friendID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, "Friend not found")
		}
		return nil, internalError("Failed to load friend", err)
	}
	summary := user.Summary()
	return &summary, nil
}

func (s *friendshipService) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	if userA == "" || userB == "" || userA == userB {
		return false, nil
	}
	f, err := s.friendshipRepo.FindBetween(ctx, userA, userB)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, internalError("Failed to load friendship", err)
	}
	return f.Status == model.FriendshipStatusAccepted, nil
}

// asAppError keeps AppErrors and hides anything else behind message
func asAppError(err error, message string) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return internalError(message, err)
}
