package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// WelcomeSender delivers the waitlist welcome email.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, email string) error
}

// ConfirmationConsumer turns WaitlistJoined events into welcome emails.
type ConfirmationConsumer struct {
	deliveries <-chan amqp.Delivery
	sender     WelcomeSender
	timeout    time.Duration
}

func NewConfirmationConsumer(deliveries <-chan amqp.Delivery, sender WelcomeSender) *ConfirmationConsumer {
	return &ConfirmationConsumer{
		deliveries: deliveries,
		sender:     sender,
		timeout:    30 * time.Second,
	}
}

// Run processes deliveries until ctx is done or the channel closes. Every
// delivery is acknowledged once handled, whether or not the email went out.
func (c *ConfirmationConsumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping confirmation consumer")
			return
		case msg, ok := <-c.deliveries:
			if !ok {
				slog.Warn("confirmation consumer channel closed")
				return
			}

			msgCtx, msgCancel := context.WithTimeout(ctx, c.timeout)
			if err := c.handle(msgCtx, msg.Body); err != nil {
				slog.Error("error processing waitlist confirmation",
					slog.String("error", err.Error()))
			}
			msgCancel()

			if err := msg.Ack(false); err != nil {
				slog.Error("failed to ack delivery", slog.String("error", err.Error()))
			}
		}
	}
}

func (c *ConfirmationConsumer) handle(ctx context.Context, body []byte) error {
	var event WaitlistJoined
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Email == "" {
		return fmt.Errorf("event without email")
	}

	slog.Info("sending waitlist confirmation",
		slog.Int64("joined_at", event.JoinedAt))

	return c.sender.SendWelcome(ctx, event.Email)
}
