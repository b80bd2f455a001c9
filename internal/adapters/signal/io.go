package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Str("module", "signal").Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Str("module", "signal").Err(err).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump reads until the connection drops, then runs the disconnect
// path: presence unregistered, user_left_session broadcast to the rooms
// the user was in. The durable session row is never touched here.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, uid domain.UserID, c *wsConn) {
	defer func() {
		cancel()
		c.Close()
		if gone, ok := ctl.Presence.Unregister(c.id); ok {
			ctl.Manager.HandleDisconnect(gone)
		}
		log.Info().Str("module", "signal").Str("user_id", string(uid)).Str("conn_id", string(c.id)).Msg("readPump closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Error().Str("module", "signal").Str("user_id", string(uid)).Err(err).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(uid, c, data)
		}
	}
}
