package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/skillswap/live/internal/auth"
	"github.com/skillswap/live/internal/core"
	"github.com/skillswap/live/internal/domain"
	"github.com/skillswap/live/internal/store/memory"
)

// fakeConn records every frame pushed to it.
type fakeConn struct {
	id domain.ConnID

	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func newFakeConn(id domain.ConnID) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() domain.ConnID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// events decodes received frames and returns their type fields, in order.
func (c *fakeConn) events(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) hasEvent(t *testing.T, event string) bool {
	t.Helper()
	for _, e := range c.events(t) {
		if e == event {
			return true
		}
	}
	return false
}

type fakeNotify struct {
	mu    sync.Mutex
	kinds []string
}

func (n *fakeNotify) Notify(_ context.Context, _ domain.UserID, kind string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

type fixture struct {
	store     *memory.SessionStore
	exchanges *memory.ExchangeStore
	presence  *PresenceRegistry
	notify    *fakeNotify
	manager   *SessionManager
	relay     *SignalingRelay
	invites   *InvitationWorkflow
}

// newFixture wires a manager around an accepted exchange "ex1" between
// users u1 and u2.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewSessionStore(),
		exchanges: memory.NewExchangeStore(),
		presence:  NewPresenceRegistry(),
		notify:    &fakeNotify{},
	}
	f.exchanges.Put(domain.Exchange{
		ID:          "ex1",
		RequesterID: "u1",
		ProviderID:  "u2",
		Status:      domain.ExchangeAccepted,
	})
	tokens := auth.NewAuthorizer("test-secret", time.Hour)
	f.manager = NewSessionManager(f.store, f.exchanges, f.presence, f.notify, tokens)
	f.relay = NewSignalingRelay(f.store, f.presence)
	f.invites = NewInvitationWorkflow(f.manager)
	return f
}

// connect registers a fake connection for uid.
func (f *fixture) connect(uid domain.UserID) *fakeConn {
	conn := newFakeConn(domain.ConnID("conn-" + uid))
	f.presence.Register(uid, conn)
	return conn
}
