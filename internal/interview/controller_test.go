package interview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/domain"
	"clevermock-web/internal/testutil"
)

type fakeTransport struct {
	mu     sync.Mutex
	joined []Credentials
	leaves int
	events chan Event
	joinFn func() error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 4)}
}

func (f *fakeTransport) Join(_ context.Context, creds Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, creds)
	if f.joinFn != nil {
		return f.joinFn()
	}
	return nil
}

func (f *fakeTransport) Leave(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	return nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) leaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaves
}

type tokenFunc func(ctx context.Context, room string) (*apiclient.LiveKitToken, error)

func (f tokenFunc) GetLiveKitToken(ctx context.Context, room string) (*apiclient.LiveKitToken, error) {
	return f(ctx, room)
}

func okTokens(t *testing.T, wantRoom string) TokenSource {
	return tokenFunc(func(_ context.Context, room string) (*apiclient.LiveKitToken, error) {
		assert.Equal(t, wantRoom, room)
		return &apiclient.LiveKitToken{Token: "lk", ServerURL: "wss://media", Room: room, Identity: "u1"}, nil
	})
}

type manualTicker struct {
	ch      chan time.Time
	started atomic.Bool
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) fn(time.Duration) (<-chan time.Time, func()) {
	m.started.Store(true)
	return m.ch, func() { m.stopped.Store(true) }
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	seen  chan Snapshot
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan Snapshot, 2048)}
}

func (r *recorder) observe(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	r.seen <- s
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) waitFor(t *testing.T, status Status) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.seen:
			if s.Status == status {
				return s
			}
		case <-timeout:
			t.Fatalf("timed out waiting for status %s", status)
		}
	}
}

func TestRun_NoContext(t *testing.T) {
	rec := newRecorder()
	ticker := newManualTicker()
	c := NewController(testutil.NewMockContextStore(nil), okTokens(t, ""), newFakeTransport(),
		WithObserver(rec.observe), WithTicker(ticker.fn))

	snap, err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, ErrorNoContext, snap.Error)
	assert.Equal(t, ErrorNoContext.Message(), snap.Message)
	assert.False(t, ticker.started.Load(), "countdown must not start without a room")
}

func TestRun_NoConversationID(t *testing.T) {
	store := testutil.NewMockContextStore(&domain.ConversationContext{Position: "dev"})
	c := NewController(store, okTokens(t, ""), newFakeTransport())

	snap, err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ErrorNoConversationID, snap.Error)
}

func TestRun_TokenFetchFailed(t *testing.T) {
	conv := testutil.NewTestConversation()
	tokens := tokenFunc(func(context.Context, string) (*apiclient.LiveKitToken, error) {
		return nil, &apiclient.APIError{StatusCode: 500, Message: "boom"}
	})
	transport := newFakeTransport()
	ticker := newManualTicker()
	c := NewController(testutil.NewMockContextStore(conv), tokens, transport, WithTicker(ticker.fn))

	snap, err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, ErrorTokenFetchFailed, snap.Error)
	assert.Equal(t, "Failed to fetch interview token", snap.Message)
	assert.Empty(t, transport.joined)
	assert.False(t, ticker.started.Load())
}

func TestRun_FullCountdownEndsWithTimeUp(t *testing.T) {
	conv := testutil.NewTestConversation(testutil.WithConversationID("conv-1"))
	transport := newFakeTransport()
	ticker := newManualTicker()
	rec := newRecorder()
	c := NewController(testutil.NewMockContextStore(conv), okTokens(t, "conv-1"), transport,
		WithObserver(rec.observe), WithTicker(ticker.fn))

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.Run(context.Background())
		done <- result{s, err}
	}()

	connected := rec.waitFor(t, StatusConnected)
	assert.Equal(t, TotalDuration, connected.TotalRemaining)
	assert.Equal(t, PhaseInterview, connected.Phase)
	assert.True(t, connected.Active)

	for i := 0; i < TotalDuration; i++ {
		ticker.ch <- time.Now()
	}

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, StatusDisconnected, res.snap.Status)
	assert.True(t, res.snap.TimeUp)
	assert.Equal(t, 0, res.snap.TotalRemaining)
	assert.Equal(t, PhaseFeedback, res.snap.Phase)
	assert.False(t, res.snap.Active)
	assert.Equal(t, 1, transport.leaveCount())
	assert.True(t, ticker.stopped.Load())

	require.Len(t, transport.joined, 1)
	assert.Equal(t, "lk", transport.joined[0].Token)
	assert.Equal(t, "wss://media", transport.joined[0].ServerURL)

	// Phase is always consistent with the remaining time.
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, s := range rec.snaps {
		if s.Status == StatusConnecting {
			continue
		}
		assert.Equal(t, PhaseFor(s.TotalRemaining), s.Phase)
	}
}

func TestRun_RemoteDisconnectIsNotTimeUp(t *testing.T) {
	conv := testutil.NewTestConversation()
	transport := newFakeTransport()
	ticker := newManualTicker()
	rec := newRecorder()
	c := NewController(testutil.NewMockContextStore(conv), okTokens(t, conv.ConversationID), transport,
		WithObserver(rec.observe), WithTicker(ticker.fn))

	done := make(chan Snapshot, 1)
	go func() {
		s, _ := c.Run(context.Background())
		done <- s
	}()

	rec.waitFor(t, StatusConnected)
	ticker.ch <- time.Now()
	transport.events <- Event{Kind: EventConnected}
	transport.events <- Event{Kind: EventDisconnected}

	snap := <-done
	assert.Equal(t, StatusDisconnected, snap.Status)
	assert.False(t, snap.TimeUp)
	assert.Equal(t, TotalDuration-1, snap.TotalRemaining)
	assert.Equal(t, 0, transport.leaveCount())
}

func TestRun_TransportErrors(t *testing.T) {
	tests := []struct {
		event Event
		want  ErrorKind
	}{
		{Event{Kind: EventError, Detail: "ice failed"}, ErrorTransport},
		{Event{Kind: EventMediaDeviceError, Detail: "NotAllowedError"}, ErrorMediaDevice},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			conv := testutil.NewTestConversation()
			transport := newFakeTransport()
			transport.events <- tt.event
			c := NewController(testutil.NewMockContextStore(conv), okTokens(t, conv.ConversationID), transport,
				WithTicker(newManualTicker().fn))

			snap, err := c.Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, StatusError, snap.Status)
			assert.Equal(t, tt.want, snap.Error)
			assert.False(t, snap.Active)
			assert.ErrorIs(t, snap.Error.Err(), domain.ErrTransport)
		})
	}
}

func TestErrorKind_Err(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want error
	}{
		{ErrorNoContext, domain.ErrNotFound},
		{ErrorNoConversationID, domain.ErrNotFound},
		{ErrorTokenFetchFailed, domain.ErrUnknown},
		{ErrorTransport, domain.ErrTransport},
		{ErrorMediaDevice, domain.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.ErrorIs(t, tt.kind.Err(), tt.want)
		})
	}

	assert.ErrorIs(t, ErrorKind("SOMETHING_ELSE").Err(), domain.ErrUnknown)
	assert.False(t, errors.Is(ErrorNoContext.Err(), domain.ErrTransport))
}

func TestRun_JoinFailure(t *testing.T) {
	conv := testutil.NewTestConversation()
	transport := newFakeTransport()
	transport.joinFn = func() error { return errors.New("socket closed") }
	c := NewController(testutil.NewMockContextStore(conv), okTokens(t, conv.ConversationID), transport,
		WithTicker(newManualTicker().fn))

	snap, err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ErrorTransport, snap.Error)
}

func TestRun_UnmountStopsEverything(t *testing.T) {
	conv := testutil.NewTestConversation()
	transport := newFakeTransport()
	ticker := newManualTicker()
	rec := newRecorder()
	c := NewController(testutil.NewMockContextStore(conv), okTokens(t, conv.ConversationID), transport,
		WithObserver(rec.observe), WithTicker(ticker.fn))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx)
		done <- err
	}()

	rec.waitFor(t, StatusConnected)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, ticker.stopped.Load())

	before := rec.count()
	transport.events <- Event{Kind: EventDisconnected}
	select {
	case ticker.ch <- time.Now():
		t.Fatal("tick delivered after unmount")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, before, rec.count())
	assert.Equal(t, 0, transport.leaveCount())
}

func TestRun_UnmountWhileFetchingToken(t *testing.T) {
	conv := testutil.NewTestConversation()
	ctx, cancel := context.WithCancel(context.Background())
	tokens := tokenFunc(func(ctx context.Context, _ string) (*apiclient.LiveKitToken, error) {
		cancel()
		return nil, ctx.Err()
	})
	transport := newFakeTransport()
	rec := newRecorder()
	c := NewController(testutil.NewMockContextStore(conv), tokens, transport, WithObserver(rec.observe))

	_, err := c.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rec.count(), "only the connecting state may be published")
	assert.Empty(t, transport.joined)
}
