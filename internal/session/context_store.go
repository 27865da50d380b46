package session

import (
	"context"
	"errors"
	"fmt"

	"clevermock-web/internal/domain"
)

// ContextStore holds the conversation context of one tab. It implements
// domain.ContextStore.
type ContextStore struct {
	backend Backend
	key     string
}

// Load returns ErrNoContext when nothing is stored and ErrNoConversationID
// when the stored value is unusable.
func (s *ContextStore) Load(ctx context.Context) (domain.ConversationContext, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrMiss) {
		return domain.ConversationContext{}, domain.ErrNoContext
	}
	if err != nil {
		return domain.ConversationContext{}, fmt.Errorf("failed to load context: %w", err)
	}
	return domain.ParseConversationContext(data)
}

func (s *ContextStore) Save(ctx context.Context, c domain.ConversationContext) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, data, contextTTL); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	return nil
}

func (s *ContextStore) Clear(ctx context.Context) error {
	if err := s.backend.Del(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear context: %w", err)
	}
	return nil
}
