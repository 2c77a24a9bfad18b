package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"wishlist/internal/model"
	"wishlist/internal/repository"

	"gorm.io/datatypes"
)

const (
	NotificationQueueName  = "notification_queue"
	NotificationExchange   = "notification_exchange"
	NotificationRoutingKey = "notification"

	eventNotification = "notification"

	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// Publisher sends a message to a broker exchange
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// NotificationMessage is the queue payload consumed by NotificationWorker
type NotificationMessage struct {
	UserID       string                 `json:"user_id"`
	Notification map[string]interface{} `json:"notification"`
	Timestamp    time.Time              `json:"timestamp"`
}

type NotificationService interface {
	// Build returns an unsaved notification for a ledger transition
	Build(notifiedID, notifierID, friendshipID string, notifType model.NotificationType) *model.Notification
	// Dispatch delivers a committed notification to the recipient's clients
	Dispatch(ctx context.Context, notification *model.Notification, notifierName string)
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	DeleteAll(ctx context.Context, userID string) error
}

type notificationService struct {
	notifRepo   repository.NotificationRepository
	publisher   Publisher
	pusher      EventPusher
	invalidator ViewInvalidator
}

// NewNotificationService builds the emitter. With a publisher, dispatch goes
// through the queue; otherwise it is pushed straight to the pusher.
func NewNotificationService(
	notifRepo repository.NotificationRepository,
	publisher Publisher,
	pusher EventPusher,
	invalidator ViewInvalidator,
) NotificationService {
	return &notificationService{
		notifRepo:   notifRepo,
		publisher:   publisher,
		pusher:      pusher,
		invalidator: invalidator,
	}
}

func (s *notificationService) Build(notifiedID, notifierID, friendshipID string, notifType model.NotificationType) *model.Notification {
	notification := &model.Notification{
		NotifiedID: notifiedID,
		NotifierID: notifierID,
		Type:       notifType,
	}
	if friendshipID != "" {
		fid := friendshipID
		notification.FriendshipID = &fid
		if data, err := json.Marshal(map[string]string{"friendship_id": friendshipID}); err == nil {
			notification.Data = datatypes.JSON(data)
		}
	}
	return notification
}

func (s *notificationService) Dispatch(ctx context.Context, notification *model.Notification, notifierName string) {
	notification.Message = model.NotificationMessage(notification.Type, notifierName)
	payload := NotificationPayload(notification)

	if s.publisher != nil {
		msg := NotificationMessage{
			UserID:       notification.NotifiedID,
			Notification: payload,
			Timestamp:    time.Now(),
		}
		body, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to marshal notification message: %v", err)
			return
		}
		err = s.publisher.Publish(ctx, NotificationExchange, NotificationRoutingKey, body)
		if err == nil {
			return
		}
		log.Printf("Failed to publish notification %s, pushing directly: %v", notification.ID, err)
	}

	if s.pusher != nil {
		s.pusher.BroadcastToUser(notification.NotifiedID, eventNotification, payload)
	}
}

// NotificationPayload is the realtime representation of a notification
func NotificationPayload(n *model.Notification) map[string]interface{} {
	payload := map[string]interface{}{
		"id":          n.ID,
		"type":        string(n.Type),
		"message":     n.Message,
		"notifier_id": n.NotifierID,
		"read":        n.Read,
		"created_at":  n.CreatedAt,
	}
	if n.FriendshipID != nil {
		payload["friendship_id"] = *n.FriendshipID
	}
	return payload
}

// NotificationPage returns the page ListNotifications actually reads: limit
// defaults to 20 and is capped at 100, negative offsets become 0
func NotificationPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *notificationService) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*model.Notification, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	limit, offset = NotificationPage(limit, offset)

	notifications, err := s.notifRepo.FindByNotifiedID(ctx, userID, limit, offset)
	if err != nil {
		return nil, internalError("Failed to load notifications", err)
	}
	for _, n := range notifications {
		n.FillMessage()
	}
	return notifications, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errUnauthenticated
	}
	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, internalError("Failed to count notifications", err)
	}
	return count, nil
}

// MarkAsRead succeeds when nothing changed: already read, someone else's, or gone
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return errUnauthenticated
	}
	if notificationID == "" {
		return newError(KindValidation, "Notification ID is required")
	}
	if !isUUID(notificationID) {
		return nil
	}

	if _, err := s.notifRepo.MarkAsRead(ctx, notificationID, userID); err != nil {
		return internalError("Failed to update notification", err)
	}
	s.invalidator.Invalidate(ctx, []string{repository.ViewNotifications}, userID)
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	if userID == "" {
		return errUnauthenticated
	}
	if _, err := s.notifRepo.MarkAllAsRead(ctx, userID); err != nil {
		return internalError("Failed to update notifications", err)
	}
	s.invalidator.Invalidate(ctx, []string{repository.ViewNotifications}, userID)
	return nil
}

func (s *notificationService) DeleteAll(ctx context.Context, userID string) error {
	if userID == "" {
		return errUnauthenticated
	}
	if _, err := s.notifRepo.DeleteAllByNotifiedID(ctx, userID); err != nil {
		return internalError("Failed to delete notifications", err)
	}
	s.invalidator.Invalidate(ctx, []string{repository.ViewNotifications}, userID)
	return nil
}
