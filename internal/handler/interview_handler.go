package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/interview"
	"clevermock-web/internal/observability"
	"clevermock-web/internal/session"
	ws "clevermock-web/internal/websocket"

	"github.com/gorilla/websocket"
)

// InterviewHandler hosts one interview controller per WebSocket connection
type InterviewHandler struct {
	sessions *session.Manager
	api      *apiclient.Client
	hub      *ws.Hub
	upgrader websocket.Upgrader
	opts     []interview.Option
}

// NewInterviewHandler creates the interview screen endpoint. With no allowed
// origins only same-origin connections are accepted.
func NewInterviewHandler(sessions *session.Manager, api *apiclient.Client, hub *ws.Hub, allowedOrigins []string, opts ...interview.Option) *InterviewHandler {
	h := &InterviewHandler{
		sessions: sessions,
		api:      api,
		hub:      hub,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set["*"] || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// HandleConnection upgrades the request and runs the interview screen until
// it ends or the browser goes away.
func (h *InterviewHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	log := observability.FromContext(r.Context())

	id, ok := session.IdentityFrom(r.Context())
	if !ok {
		id = h.sessions.EnsureIdentity(w, r)
	}

	// The upgrade response is the last chance to set cookies, so identity
	// cookies and a refreshed access token are settled first.
	header := http.Header{}
	for _, c := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", c)
	}
	prefetch := h.api.WithTokens(h.sessions.Tokens(id.ClientID, session.HeaderSink(header)))
	if _, err := prefetch.GetValidAccessToken(r.Context()); err != nil {
		log.Error("failed to read session before upgrade", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}

	contexts := h.sessions.Context(id.TabID)
	key := "tab:" + id.TabID
	if conv, err := contexts.Load(r.Context()); err == nil {
		key = conv.ConversationID
	}

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(r.Context(), h.hub, conn, key)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	opts := append([]interview.Option{interview.WithObserver(client.Publish)}, h.opts...)
	controller := interview.NewController(
		contexts,
		h.api.WithTokens(h.sessions.Tokens(id.ClientID, client)),
		client,
		opts...,
	)

	final, err := controller.Run(client.Context())
	if err != nil {
		log.Debug("interview screen closed", slog.String("reason", err.Error()))
	} else if final.Status == interview.StatusError {
		log.Warn("interview session failed",
			slog.String("error_kind", string(final.Error)),
			slog.String("error", final.Error.Err().Error()))
	} else {
		log.Info("interview session ended",
			slog.String("status", string(final.Status)),
			slog.Bool("time_up", final.TimeUp))
	}
	client.Close()
}
