package interview

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/domain"
	"clevermock-web/internal/observability"
)

type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// ErrorKind classifies why a session ended in StatusError. None of them is
// retried; the user has to start over.
type ErrorKind string

const (
	ErrorNoContext        ErrorKind = "NO_CONTEXT"
	ErrorNoConversationID ErrorKind = "NO_CONVERSATION_ID"
	ErrorTokenFetchFailed ErrorKind = "TOKEN_FETCH_FAILED"
	ErrorTransport        ErrorKind = "TRANSPORT_ERROR"
	ErrorMediaDevice      ErrorKind = "MEDIA_DEVICE_ERROR"
)

var errorMessages = map[ErrorKind]string{
	ErrorNoContext:        "No interview found. Please prepare your interview first.",
	ErrorNoConversationID: "No conversation ID found",
	ErrorTokenFetchFailed: "Failed to fetch interview token",
	ErrorTransport:        "Lost connection to the interview room",
	ErrorMediaDevice:      "Could not access your microphone. Please check your device permissions.",
}

// Message returns the text shown to the user.
func (k ErrorKind) Message() string {
	return errorMessages[k]
}

// Err returns the domain error behind the kind.
func (k ErrorKind) Err() error {
	switch k {
	case ErrorNoContext:
		return domain.ErrNoContext
	case ErrorNoConversationID:
		return domain.ErrNoConversationID
	case ErrorTokenFetchFailed:
		return domain.ErrRoomToken
	case ErrorTransport:
		return domain.ErrRoomConnection
	case ErrorMediaDevice:
		return domain.ErrMediaDevice
	}
	return domain.ErrUnknown
}

// Snapshot is the state handed to the presentation layer.
type Snapshot struct {
	Status         Status    `json:"status"`
	Phase          Phase     `json:"phase"`
	TotalRemaining int       `json:"totalRemaining"`
	PhaseRemaining int       `json:"phaseRemaining"`
	Active         bool      `json:"isActive"`
	TimeUp         bool      `json:"timeUp"`
	Error          ErrorKind `json:"error,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// Credentials let the browser join the voice room.
type Credentials struct {
	Token     string `json:"token"`
	ServerURL string `json:"serverUrl"`
	Room      string `json:"room"`
	Identity  string `json:"identity"`
}

type EventKind string

const (
	EventConnected        EventKind = "connected"
	EventDisconnected     EventKind = "disconnected"
	EventError            EventKind = "error"
	EventMediaDeviceError EventKind = "media_error"
)

// Event is an outcome reported by the real-time transport.
type Event struct {
	Kind   EventKind
	Detail string
}

// Transport is the real-time voice session as seen by the controller.
type Transport interface {
	Join(ctx context.Context, creds Credentials) error
	Leave(ctx context.Context) error
	Events() <-chan Event
}

// TokenSource issues room credentials. *apiclient.Client satisfies it.
type TokenSource interface {
	GetLiveKitToken(ctx context.Context, room string) (*apiclient.LiveKitToken, error)
}

// TickerFunc starts a ticker and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Observer receives every state change and every tick.
type Observer func(Snapshot)

type Option func(*Controller)

func WithTicker(f TickerFunc) Option {
	return func(c *Controller) {
		c.newTicker = f
	}
}

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observe = o
	}
}

// Controller drives one interview screen from connecting to its end.
type Controller struct {
	contexts  domain.ContextStore
	tokens    TokenSource
	transport Transport
	observe   Observer
	newTicker TickerFunc

	timer Timer
	snap  Snapshot
}

func NewController(contexts domain.ContextStore, tokens TokenSource, transport Transport, opts ...Option) *Controller {
	c := &Controller{
		contexts:  contexts,
		tokens:    tokens,
		transport: transport,
		observe:   func(Snapshot) {},
		newTicker: realTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run blocks until the session reaches StatusError or StatusDisconnected, or
// until ctx is canceled. Cancellation is the screen going away: Run returns
// ctx.Err() at once and makes no further transitions or notifications.
func (c *Controller) Run(ctx context.Context) (Snapshot, error) {
	log := observability.FromContext(ctx)

	c.timer = NewTimer()
	c.snap = Snapshot{Status: StatusConnecting}
	c.publish(ctx)

	conv, err := c.contexts.Load(ctx)
	if ctx.Err() != nil {
		return c.unmounted(ctx)
	}
	if err != nil {
		kind := ErrorNoContext
		if errors.Is(err, domain.ErrNoConversationID) {
			kind = ErrorNoConversationID
		} else if !errors.Is(err, domain.ErrNoContext) {
			log.Error("failed to load interview context", slog.String("error", err.Error()))
		}
		return c.fail(ctx, kind), nil
	}

	tok, err := c.tokens.GetLiveKitToken(ctx, conv.ConversationID)
	if ctx.Err() != nil {
		return c.unmounted(ctx)
	}
	if err != nil {
		log.Warn("failed to fetch room token",
			slog.String("conversation_id", conv.ConversationID),
			slog.String("error", err.Error()))
		return c.fail(ctx, ErrorTokenFetchFailed), nil
	}

	c.snap.Status = StatusConnected
	c.timer.Start()

	ticks, stop := c.newTicker(time.Second)
	defer stop()

	creds := Credentials{Token: tok.Token, ServerURL: tok.ServerURL, Room: tok.Room, Identity: tok.Identity}
	if creds.Room == "" {
		creds.Room = conv.ConversationID
	}
	if err := c.transport.Join(ctx, creds); err != nil {
		log.Warn("failed to join room", slog.String("error", err.Error()))
		return c.fail(ctx, ErrorTransport), nil
	}
	c.publish(ctx)

	events := c.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return c.unmounted(ctx)

		case <-ticks:
			if ctx.Err() != nil {
				return c.unmounted(ctx)
			}
			if c.timer.Tick() {
				return c.timeUp(ctx), nil
			}
			c.publish(ctx)

		case ev, ok := <-events:
			if ctx.Err() != nil {
				return c.unmounted(ctx)
			}
			if !ok {
				ev = Event{Kind: EventDisconnected}
			}
			switch ev.Kind {
			case EventConnected:
				log.Debug("voice room connected", slog.String("room", creds.Room))
			case EventDisconnected:
				return c.end(ctx, "disconnected"), nil
			case EventError:
				log.Warn("voice room error", slog.String("detail", ev.Detail))
				return c.fail(ctx, ErrorTransport), nil
			case EventMediaDeviceError:
				log.Warn("media device error", slog.String("detail", ev.Detail))
				return c.fail(ctx, ErrorMediaDevice), nil
			default:
				log.Warn("unknown transport event", slog.String("kind", string(ev.Kind)))
			}
		}
	}
}

func (c *Controller) timeUp(ctx context.Context) Snapshot {
	c.snap.TimeUp = true
	if err := c.transport.Leave(ctx); err != nil {
		observability.FromContext(ctx).Warn("failed to leave room", slog.String("error", err.Error()))
	}
	return c.end(ctx, "time_up")
}

func (c *Controller) end(ctx context.Context, reason string) Snapshot {
	c.timer.Stop()
	c.snap.Status = StatusDisconnected
	c.publish(ctx)
	observability.InterviewSessionsEnded.WithLabelValues(reason).Inc()
	return c.snapshot()
}

func (c *Controller) fail(ctx context.Context, kind ErrorKind) Snapshot {
	c.timer.Stop()
	c.snap.Status = StatusError
	c.snap.Error = kind
	c.snap.Message = kind.Message()
	c.publish(ctx)

	reason := "error"
	if errors.Is(kind.Err(), domain.ErrTransport) {
		reason = "transport_error"
	}
	observability.InterviewSessionsEnded.WithLabelValues(reason).Inc()
	return c.snapshot()
}

func (c *Controller) unmounted(ctx context.Context) (Snapshot, error) {
	c.timer.Stop()
	observability.InterviewSessionsEnded.WithLabelValues("unmounted").Inc()
	return c.snapshot(), ctx.Err()
}

func (c *Controller) snapshot() Snapshot {
	s := c.snap
	s.TotalRemaining = c.timer.Remaining()
	s.Phase = c.timer.Phase()
	s.PhaseRemaining = PhaseRemaining(s.TotalRemaining)
	s.Active = c.timer.Active()
	return s
}

func (c *Controller) publish(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c.observe(c.snapshot())
}
