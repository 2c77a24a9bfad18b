package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	notificationConsumerTag = "notification_worker"

	resubscribeDelay    = 2 * time.Second
	maxResubscribeDelay = 30 * time.Second
)

// errNoConsumer is returned by NotificationWorker.Publish while the worker is
// not attached to the queue
var errNoConsumer = errors.New("notification worker is not consuming")

// NotificationBroker is the message broker the worker reads from and
// publishes through
type NotificationBroker interface {
	DeclareDirect(exchange, queue, routingKey string) error
	Consume(queue, consumer string) (<-chan amqp.Delivery, error)
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// NotificationWorker consumes notification messages from RabbitMQ and pushes
// them to the websocket hub. It is also the Publisher handed to the
// notification service.
type NotificationWorker struct {
	broker NotificationBroker
	pusher EventPusher

	consuming  atomic.Bool
	retryDelay time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(broker NotificationBroker, pusher EventPusher) *NotificationWorker {
	return &NotificationWorker{
		broker:     broker,
		pusher:     pusher,
		retryDelay: resubscribeDelay,
		stopChan:   make(chan struct{}),
	}
}

// Start declares the queue, attaches a consumer and serves it in a goroutine
func (w *NotificationWorker) Start() error {
	msgs, err := w.subscribe()
	if err != nil {
		return err
	}
	w.consuming.Store(true)
	go w.run(msgs)
	return nil
}

func (w *NotificationWorker) subscribe() (<-chan amqp.Delivery, error) {
	if err := w.broker.DeclareDirect(NotificationExchange, NotificationQueueName, NotificationRoutingKey); err != nil {
		return nil, err
	}
	return w.broker.Consume(NotificationQueueName, notificationConsumerTag)
}

// run serves deliveries until Stop. When the broker closes the delivery
// channel it subscribes again with exponential backoff.
func (w *NotificationWorker) run(msgs <-chan amqp.Delivery) {
	for {
		if w.consume(msgs) {
			return
		}

		delay := w.retryDelay
		for {
			select {
			case <-w.stopChan:
				return
			case <-time.After(delay):
			}

			next, err := w.subscribe()
			if err == nil {
				log.Println("Notification worker resubscribed")
				msgs = next
				break
			}
			log.Printf("Notification worker resubscribe failed, retrying in %v: %v", delay, err)
			delay = min(delay*2, maxResubscribeDelay)
		}
	}
}

// consume handles deliveries until the channel closes or Stop is called. It
// reports true when stopped.
func (w *NotificationWorker) consume(msgs <-chan amqp.Delivery) bool {
	w.consuming.Store(true)
	defer w.consuming.Store(false)

	log.Println("Notification worker started, consuming messages...")
	for {
		select {
		case <-w.stopChan:
			log.Println("Notification worker stopped")
			return true
		case msg, ok := <-msgs:
			if !ok {
				log.Println("Notification queue closed")
				return false
			}
			if err := w.Process(msg.Body); err != nil {
				// malformed messages would be redelivered forever
				log.Printf("Dropping notification message: %v", err)
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

// Publish queues body while a consumer is attached and fails with
// errNoConsumer otherwise
func (w *NotificationWorker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if !w.consuming.Load() {
		return errNoConsumer
	}
	return w.broker.Publish(ctx, exchange, routingKey, body)
}

// Process pushes one queued notification to its recipient
func (w *NotificationWorker) Process(body []byte) error {
	var msg NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	if msg.UserID == "" {
		return errMissingRecipient
	}

	w.pusher.BroadcastToUser(msg.UserID, eventNotification, msg.Notification)
	log.Printf("Notification pushed to WebSocket for user: %s", msg.UserID)
	return nil
}

// Stop stops the notification worker
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

var errMissingRecipient = newError(KindValidation, "notification message has no recipient")
