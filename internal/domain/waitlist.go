package domain

import (
	"context"
	"time"
)

// WaitlistEntry is a single email that asked to be notified at launch.
type WaitlistEntry struct {
	ID        string    `json:"id" bson:"-"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// WaitlistRepository defines the interface for waitlist data access
type WaitlistRepository interface {
	// Create returns ErrAlreadyOnWaitlist when the email is taken.
	Create(ctx context.Context, entry *WaitlistEntry) error
	GetByEmail(ctx context.Context, email string) (*WaitlistEntry, error)
	Ping(ctx context.Context) error
}

// WaitlistNotifier requests the confirmation email for a new entry.
type WaitlistNotifier interface {
	NotifyJoined(ctx context.Context, entry *WaitlistEntry) error
}
