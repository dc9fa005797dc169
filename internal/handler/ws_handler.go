package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/middleware"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/service"
	ws "github.com/stemsi/student-registry/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// SessionChecker reports whether a token still maps to a live session
// without recording activity.
type SessionChecker interface {
	Check(ctx context.Context, token string) (*model.Session, error)
}

// WSHandler streams new registrations to admin dashboards.
type WSHandler struct {
	hub           *ws.Hub
	sessions      SessionChecker
	checkInterval time.Duration
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. Every checkInterval an open feed
// re-checks its session and closes once the session is gone.
func NewWSHandler(hub *ws.Hub, sessions SessionChecker, checkInterval time.Duration, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	return &WSHandler{
		hub:           hub,
		sessions:      sessions,
		checkInterval: checkInterval,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// StudentFeed godoc
// WS /ws/students
// Admin only. Pushes a student.created event for every registration.
// Clients may send {"action":"ping"} and get {"event":"pong"}.
// The feed closes with a policy-violation frame after logout or idle expiry.
func (h *WSHandler) StudentFeed(c *gin.Context) {
	sess := middleware.GetSession(c)
	token := middleware.GetToken(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	wsLog := h.log.With().Int64("account_id", sess.AccountID).Logger()
	wsLog.Info().Msg("Admin connected to live feed")

	// gorilla allows one concurrent writer, so the reader hands replies to the loop below.
	replies := make(chan any, 4)
	closed := make(chan struct{})
	go h.readLoop(conn, wsLog, replies, closed)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()
	sessionTicker := time.NewTicker(h.checkInterval)
	defer sessionTicker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ev); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		case reply := <-replies:
			if msg, ok := reply.(string); ok {
				if err := ws.WriteError(conn, msg); err != nil {
					return
				}
				continue
			}
			if err := ws.WriteTyped(conn, reply); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case <-sessionTicker.C:
			if h.sessionEnded(c.Request.Context(), token, wsLog) {
				_ = ws.WriteClose(conn, websocket.ClosePolicyViolation, "session ended")
				return
			}
		}
	}
}

func (h *WSHandler) sessionEnded(ctx context.Context, token string, wsLog zerolog.Logger) bool {
	sess, err := h.sessions.Check(ctx, token)
	switch {
	case err == nil:
		return sess.Role != model.RoleAdmin
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		wsLog.Info().Msg("Session ended, closing live feed")
	default:
		wsLog.Error().Err(err).Msg("Failed to check session")
	}
	return true
}

func (h *WSHandler) readLoop(conn *websocket.Conn, wsLog zerolog.Logger, replies chan<- any, closed chan<- struct{}) {
	defer close(closed)
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var reply any
		switch msg.Action {
		case ws.ActionPing:
			reply = ws.PongResponse{Event: ws.EventPong}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			reply = "unknown action: " + string(msg.Action)
		}
		select {
		case replies <- reply:
		default:
		}
	}
}
