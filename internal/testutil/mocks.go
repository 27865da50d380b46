// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the clevermock-web application.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"clevermock-web/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockFailure        = errors.New("mock: forced failure")
)

// MockTokenStore implements domain.TokenStore in memory
type MockTokenStore struct {
	mu     sync.Mutex
	tokens domain.Tokens

	SaveCalls  int
	ClearCalls int
	LoadErr    error
}

// NewMockTokenStore creates a store holding the given pair
func NewMockTokenStore(access, refresh string) *MockTokenStore {
	return &MockTokenStore{tokens: domain.Tokens{AccessToken: access, RefreshToken: refresh}}
}

func (m *MockTokenStore) Load(ctx context.Context) (domain.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return domain.Tokens{}, m.LoadErr
	}
	return m.tokens, nil
}

func (m *MockTokenStore) Save(ctx context.Context, t domain.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	m.tokens = t
	return nil
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	m.tokens = domain.Tokens{}
	return nil
}

// Tokens returns the currently stored pair
func (m *MockTokenStore) Tokens() domain.Tokens {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// MockContextStore implements domain.ContextStore in memory
type MockContextStore struct {
	mu  sync.Mutex
	ctx *domain.ConversationContext
}

// NewMockContextStore creates a store, optionally pre-populated
func NewMockContextStore(c *domain.ConversationContext) *MockContextStore {
	return &MockContextStore{ctx: c}
}

func (m *MockContextStore) Load(ctx context.Context) (domain.ConversationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return domain.ConversationContext{}, domain.ErrNoContext
	}
	if err := m.ctx.Validate(); err != nil {
		return domain.ConversationContext{}, err
	}
	return *m.ctx, nil
}

func (m *MockContextStore) Save(ctx context.Context, c domain.ConversationContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = &c
	return nil
}

func (m *MockContextStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = nil
	return nil
}

// MockWaitlistRepository implements domain.WaitlistRepository for testing
type MockWaitlistRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc     func(ctx context.Context, entry *domain.WaitlistEntry) error
	GetByEmailFunc func(ctx context.Context, email string) (*domain.WaitlistEntry, error)
	PingFunc       func(ctx context.Context) error

	// In-memory storage keyed by email
	Entries map[string]*domain.WaitlistEntry
}

// NewMockWaitlistRepository creates a new MockWaitlistRepository with initialized maps
func NewMockWaitlistRepository() *MockWaitlistRepository {
	return &MockWaitlistRepository{
		Entries: make(map[string]*domain.WaitlistEntry),
	}
}

func (m *MockWaitlistRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(entry.Email)
	if _, ok := m.Entries[key]; ok {
		return domain.ErrAlreadyOnWaitlist
	}
	if entry.ID == "" {
		entry.ID = nextID("entry")
	}
	m.Entries[key] = entry
	return nil
}

func (m *MockWaitlistRepository) GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.Entries[strings.ToLower(email)]; ok {
		return e, nil
	}
	return nil, domain.ErrWaitlistNotFound
}

func (m *MockWaitlistRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// MockWaitlistNotifier records confirmation requests
type MockWaitlistNotifier struct {
	mu sync.Mutex

	NotifyFunc func(ctx context.Context, entry *domain.WaitlistEntry) error
	Notified   []string
}

// NewMockWaitlistNotifier creates a notifier that accepts every request
func NewMockWaitlistNotifier() *MockWaitlistNotifier {
	return &MockWaitlistNotifier{}
}

func (m *MockWaitlistNotifier) NotifyJoined(ctx context.Context, entry *domain.WaitlistEntry) error {
	m.mu.Lock()
	m.Notified = append(m.Notified, entry.Email)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, entry)
	}
	return nil
}

// Calls returns the emails notified so far
func (m *MockWaitlistNotifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Notified...)
}
