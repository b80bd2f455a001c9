package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/core"
	"github.com/skillswap/live/internal/domain"
)

// PresenceRegistry is the single in-process map between user identity and
// live connection, plus the ephemeral per-session membership used for
// broadcasts. It holds no durable state and is valid only for this
// process; multi-instance deployment would need a shared external
// presence store, which this design does not provide.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]core.ClientConn
	byConn map[domain.ConnID]domain.UserID

	// rooms tracks which users joined which session over the duplex
	// channel. Cleared on disconnect, unrelated to the durable row.
	rooms map[domain.SessionID]map[domain.UserID]struct{}
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[domain.UserID]core.ClientConn),
		byConn: make(map[domain.ConnID]domain.UserID),
		rooms:  make(map[domain.SessionID]map[domain.UserID]struct{}),
	}
}

// Register binds uid to conn. One active connection per user: a previous
// connection for the same user is closed and replaced.
func (p *PresenceRegistry) Register(uid domain.UserID, conn core.ClientConn) {
	p.mu.Lock()
	prev, had := p.byUser[uid]
	if had && prev.ID() != conn.ID() {
		delete(p.byConn, prev.ID())
	}
	p.byUser[uid] = conn
	p.byConn[conn.ID()] = uid
	p.mu.Unlock()

	if had && prev.ID() != conn.ID() {
		prev.Close()
	}
	metricConnectedUsers.Set(float64(p.Count()))
	log.Info().Str("module", "app.presence").Str("user_id", string(uid)).Str("conn_id", string(conn.ID())).Msg("registered")
}

// Unregister removes the connection and both directions of the mapping.
// It returns the user that was bound, so the connection layer can walk
// that user's sessions and broadcast user_left_session.
func (p *PresenceRegistry) Unregister(connID domain.ConnID) (domain.UserID, bool) {
	p.mu.Lock()
	uid, ok := p.byConn[connID]
	if !ok {
		p.mu.Unlock()
		return "", false
	}
	delete(p.byConn, connID)
	// Only drop the user mapping if it still points at this connection;
	// a reconnect may have replaced it already.
	if cur, ok := p.byUser[uid]; ok && cur.ID() == connID {
		delete(p.byUser, uid)
	}
	p.mu.Unlock()

	metricConnectedUsers.Set(float64(p.Count()))
	log.Info().Str("module", "app.presence").Str("user_id", string(uid)).Str("conn_id", string(connID)).Msg("unregistered")
	return uid, true
}

func (p *PresenceRegistry) Resolve(uid domain.UserID) (core.ClientConn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conn, ok := p.byUser[uid]
	return conn, ok
}

func (p *PresenceRegistry) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser)
}

// JoinRoom records uid as a live member of the session's room.
func (p *PresenceRegistry) JoinRoom(sid domain.SessionID, uid domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	members, ok := p.rooms[sid]
	if !ok {
		members = make(map[domain.UserID]struct{})
		p.rooms[sid] = members
	}
	members[uid] = struct{}{}
}

// LeaveRoom removes uid from the session's room; when that leaves the room
// empty, the room entry itself is dropped.
func (p *PresenceRegistry) LeaveRoom(sid domain.SessionID, uid domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	members, ok := p.rooms[sid]
	if !ok {
		return
	}
	delete(members, uid)
	if len(members) == 0 {
		delete(p.rooms, sid)
	}
}

// RoomsOf returns the sessions uid is currently a live member of.
func (p *PresenceRegistry) RoomsOf(uid domain.UserID) []domain.SessionID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []domain.SessionID
	for sid, members := range p.rooms {
		if _, ok := members[uid]; ok {
			out = append(out, sid)
		}
	}
	return out
}

// SendJSON marshals v and pushes it to uid's connection, if any.
// Delivery is best effort; a backpressured or missing connection drops
// the frame.
func (p *PresenceRegistry) SendJSON(uid domain.UserID, v any) error {
	conn, ok := p.Resolve(uid)
	if !ok {
		return domain.ErrTargetNotConnected
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.TrySend(b)
}
