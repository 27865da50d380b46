package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"clevermock-web/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// NewTestWaitlistEntry creates a stored waitlist entry with sensible defaults
func NewTestWaitlistEntry(opts ...func(*domain.WaitlistEntry)) *domain.WaitlistEntry {
	now := time.Now().UTC()
	e := &domain.WaitlistEntry{
		ID:        nextID("entry"),
		Email:     fmt.Sprintf("user%d@example.com", idCounter.Load()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithEntryEmail sets the entry email
func WithEntryEmail(email string) func(*domain.WaitlistEntry) {
	return func(e *domain.WaitlistEntry) {
		e.Email = email
	}
}

// NewTestConversation creates a prepared conversation context
func NewTestConversation(opts ...func(*domain.ConversationContext)) *domain.ConversationContext {
	c := &domain.ConversationContext{
		ConversationID:   nextID("conv"),
		Position:         "Backend Engineer",
		Instruction:      "Focus on system design",
		CVName:           "cv.pdf",
		InterviewDetails: "1. Introduce yourself\n2. Design a URL shortener",
		Status:           "ready",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithConversationID sets the conversation ID
func WithConversationID(id string) func(*domain.ConversationContext) {
	return func(c *domain.ConversationContext) {
		c.ConversationID = id
	}
}

// ResetIDCounter resets the ID counter (useful for deterministic tests)
func ResetIDCounter() {
	idCounter.Store(0)
}
