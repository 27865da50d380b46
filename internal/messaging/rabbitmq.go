package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clevermock-web/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	WaitlistExchange      = "waitlist.events"
	ConfirmationQueue     = "waitlist.confirmations"
	WaitlistJoinedRouting = "waitlist.joined"
)

var errConnectionClosed = errors.New("rabbitmq connection closed")

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

// WaitlistJoined is published once per new waitlist entry.
type WaitlistJoined struct {
	Email    string `json:"email"`
	JoinedAt int64  `json:"joined_at"`
}

var _ domain.WaitlistNotifier = (*RabbitMQ)(nil)

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry keeps dialing until the broker accepts the connection
// or ctx ends. Brokers started alongside the app often need a few seconds.
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	backoff := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("giving up on rabbitmq after %d attempts: %w", attempt, err)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 10*time.Second)
	}
}

// Setup declares the waitlist topology. It is idempotent.
func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		WaitlistExchange, // name
		"topic",          // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	); err != nil {
		return fmt.Errorf("failed to declare waitlist exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		ConfirmationQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", ConfirmationQueue, err)
	}

	if err := r.channel.QueueBind(
		ConfirmationQueue,     // queue name
		WaitlistJoinedRouting, // routing key
		WaitlistExchange,      // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind %s queue: %w", ConfirmationQueue, err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

// PublishWaitlistJoined queues the confirmation email for email.
func (r *RabbitMQ) PublishWaitlistJoined(ctx context.Context, email string, joinedAt time.Time) error {
	body, err := json.Marshal(WaitlistJoined{
		Email:    email,
		JoinedAt: joinedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	r.mu.Lock()
	err = r.channel.PublishWithContext(
		ctx,
		WaitlistExchange,
		WaitlistJoinedRouting,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    joinedAt,
		},
	)
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to publish waitlist event: %w", err)
	}

	slog.Debug("published waitlist event", slog.String("routing_key", WaitlistJoinedRouting))
	return nil
}

// NotifyJoined hands the confirmation to the mail worker.
func (r *RabbitMQ) NotifyJoined(ctx context.Context, entry *domain.WaitlistEntry) error {
	joinedAt := entry.CreatedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	return r.PublishWaitlistJoined(ctx, entry.Email, joinedAt)
}

func (r *RabbitMQ) ConsumeConfirmations() (<-chan amqp.Delivery, error) {
	// One unacknowledged email at a time per worker.
	if err := r.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := r.channel.Consume(
		ConfirmationQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming waitlist confirmations",
		slog.String("queue", ConfirmationQueue))
	return msgs, nil
}

// Ping reports whether the broker connection is still open.
func (r *RabbitMQ) Ping(context.Context) error {
	if r.IsClosed() {
		return errConnectionClosed
	}
	return nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
