// Package signal is the duplex-channel adapter: one WebSocket per
// participant, carrying session events outbound and signaling/editor/chat
// messages inbound.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/app"
	"github.com/skillswap/live/internal/config"
	"github.com/skillswap/live/internal/core"
	"github.com/skillswap/live/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Manager  *app.SessionManager
	Relay    *app.SignalingRelay
	Presence *app.PresenceRegistry

	cfg *config.Config
}

func NewController(cfg *config.Config, manager *app.SessionManager, relay *app.SignalingRelay, presence *app.PresenceRegistry) *Controller {
	return &Controller{cfg: cfg, Manager: manager, Relay: relay, Presence: presence}
}

// wsConn implements core.ClientConn over a gorilla websocket.
type wsConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) ID() domain.ConnID { return c.id }

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and binds the caller's presence entry.
// Registration happens at connect time so invitation and session_created
// pushes reach users who have not joined a session yet.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	uid := domain.UserID(c.GetString("user_id"))
	if uid == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "signal").Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &wsConn{
		id:   domain.ConnID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("user_id", string(uid)).Str("conn_id", string(conn.id)).Msg("new WS connection")

	ctl.Presence.Register(uid, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, uid, conn)
}
