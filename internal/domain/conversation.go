package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ConversationContext identifies an in-progress interview preparation and
// carries the plan text the backend generated for it.
type ConversationContext struct {
	ConversationID   string `json:"conversationId"`
	Position         string `json:"position"`
	Instruction      string `json:"instruction"`
	CVName           string `json:"cvName"`
	InterviewDetails string `json:"interviewDetails"`
	Status           string `json:"status"`
}

// Validate reports ErrNoConversationID when the context cannot identify a room.
func (c ConversationContext) Validate() error {
	if strings.TrimSpace(c.ConversationID) == "" {
		return ErrNoConversationID
	}
	return nil
}

// Marshal serializes a validated context.
func (c ConversationContext) Marshal() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// ParseConversationContext decodes a stored context. Undecodable data is
// reported as ErrNoConversationID so callers see a checked error instead of
// a decode failure at every read site.
func ParseConversationContext(data []byte) (ConversationContext, error) {
	if len(data) == 0 {
		return ConversationContext{}, ErrNoContext
	}
	var c ConversationContext
	if err := json.Unmarshal(data, &c); err != nil {
		return ConversationContext{}, fmt.Errorf("%w: %v", ErrNoConversationID, err)
	}
	if err := c.Validate(); err != nil {
		return ConversationContext{}, err
	}
	return c, nil
}

// ContextStore holds the single active conversation of a browser tab.
type ContextStore interface {
	Load(ctx context.Context) (ConversationContext, error)
	Save(ctx context.Context, c ConversationContext) error
	Clear(ctx context.Context) error
}
