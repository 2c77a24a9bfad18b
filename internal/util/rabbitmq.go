package util

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"wishlist/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQClient struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

func NewRabbitMQClient(cfg *config.Config) (*RabbitMQClient, error) {
	if cfg.RabbitMQURL == "" {
		return nil, errors.New("RABBITMQ_URL not configured")
	}

	client := &RabbitMQClient{url: cfg.RabbitMQURL}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (r *RabbitMQClient) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	r.conn = conn
	r.channel = ch
	return nil
}

// reconnect re-dials when the connection has dropped. Callers hold r.mu.
func (r *RabbitMQClient) reconnect() error {
	if r.conn != nil && !r.conn.IsClosed() {
		return nil
	}
	log.Println("RabbitMQ connection closed, reconnecting...")
	return r.connect()
}

// DeclareDirect declares a durable direct exchange and a durable queue bound to it
func (r *RabbitMQClient) DeclareDirect(exchange, queue, routingKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reconnect(); err != nil {
		return err
	}
	if err := r.channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := r.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	return r.channel.QueueBind(queue, routingKey, exchange, false, nil)
}

// Publish sends a persistent JSON message, re-dialing a closed connection first
func (r *RabbitMQClient) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reconnect(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Consume opens a manual-ack consumer on queue. The returned channel is
// closed when the connection drops.
func (r *RabbitMQClient) Consume(queue, consumer string) (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reconnect(); err != nil {
		return nil, err
	}
	return r.channel.Consume(queue, consumer, false, false, false, false, nil)
}
