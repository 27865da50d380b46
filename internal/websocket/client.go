package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"clevermock-web/internal/interview"
	"clevermock-web/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 1024
)

// Client is one interview screen connected over WebSocket. It is the
// interview.Transport of the controller serving that screen: join and leave
// instructions go out to the browser, room outcomes come back as events.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	key    string
	send   chan []byte
	events chan interview.Event

	writeMu   sync.Mutex
	closed    atomic.Bool
	quit      chan struct{}
	quitOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// ClientMessage is what the browser reports about the voice room.
type ClientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// ServerMessage is what the server tells the browser.
type ServerMessage struct {
	Type        string                 `json:"type"`
	State       *interview.Snapshot    `json:"state,omitempty"`
	Credentials *interview.Credentials `json:"credentials,omitempty"`
}

// NewClient wraps an upgraded connection. key identifies the screen in the
// hub; a later client with the same key supersedes this one.
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, key string) *Client {
	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		hub:       hub,
		conn:      conn,
		key:       key,
		send:      make(chan []byte, 256),
		events:    make(chan interview.Event, 8),
		quit:      make(chan struct{}),
		ctx:       clientCtx,
		ctxCancel: cancel,
	}
}

// Context is canceled when the screen goes away.
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) Join(ctx context.Context, creds interview.Credentials) error {
	return c.enqueue(ServerMessage{Type: "join", Credentials: &creds})
}

func (c *Client) Leave(ctx context.Context) error {
	return c.enqueue(ServerMessage{Type: "leave"})
}

func (c *Client) Events() <-chan interview.Event {
	return c.events
}

// Publish forwards a controller snapshot to the browser.
func (c *Client) Publish(s interview.Snapshot) {
	if err := c.enqueue(ServerMessage{Type: "state", State: &s}); err != nil {
		observability.FromContext(c.ctx).Warn("dropped state update", slog.String("error", err.Error()))
	}
}

// NotifySession tells the browser the stored session changed after the
// upgrade. The page answers by calling /api/auth/me, whose response carries
// the matching access_token cookie.
func (c *Client) NotifySession() {
	if err := c.enqueue(ServerMessage{Type: "session"}); err != nil {
		observability.FromContext(c.ctx).Warn("dropped session notice", slog.String("error", err.Error()))
	}
}

// SetCookie makes the client a session.CookieSink for the token store used
// while the socket is open.
func (c *Client) SetCookie(*http.Cookie) {
	c.NotifySession()
}

func (c *Client) enqueue(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.quit:
		return websocket.ErrCloseSent
	default:
		return errSendBufferFull
	}
}

// ReadPump turns browser reports into transport events. It returns when the
// connection closes, which cancels the client's context.
func (c *Client) ReadPump() {
	log := observability.FromContext(c.ctx)
	defer func() {
		c.ctxCancel()
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("websocket error", slog.String("error", err.Error()))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Warn("invalid message format", slog.String("error", err.Error()))
			continue
		}

		ev, ok := toEvent(msg)
		if !ok {
			log.Warn("unknown message type", slog.String("type", msg.Type))
			continue
		}

		select {
		case c.events <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

func toEvent(msg ClientMessage) (interview.Event, bool) {
	switch kind := interview.EventKind(msg.Type); kind {
	case interview.EventConnected, interview.EventDisconnected,
		interview.EventError, interview.EventMediaDeviceError:
		return interview.Event{Kind: kind, Detail: msg.Message}, true
	}
	return interview.Event{}, false
}

// WritePump sends queued messages and pings until Close is called. Messages
// queued before Close are flushed first.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.quit:
			for {
				select {
				case message := <-c.send:
					if err := c.writeMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = c.writeMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// Close flushes pending messages and closes the connection.
func (c *Client) Close() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// supersede tells the browser a newer screen took over, then ends this one.
func (c *Client) supersede() {
	_ = c.enqueue(ServerMessage{Type: "superseded"})
	c.ctxCancel()
}

// writeMessage writes a message to the WebSocket connection in a thread-safe manner
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the WebSocket connection
func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
