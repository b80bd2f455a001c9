// Package core declares the ports between the application layer and its
// adapters. Implementations live under internal/store, internal/notify
// and internal/adapters.
package core

import (
	"context"
	"time"

	"github.com/skillswap/live/internal/domain"
)

// Frame is a raw payload already encoded for the wire.
type Frame []byte

// ClientConn is one participant's duplex endpoint (WebSocket).
// Owned by the adapter; the adapter must Close() it.
type ClientConn interface {
	ID() domain.ConnID
	TrySend(Frame) error
	Close()
}

// SessionStore is the durable record of live sessions. Rows are never
// deleted; StatusEnded is terminal and retained for history.
type SessionStore interface {
	GetByID(id domain.SessionID) (domain.LiveSession, error)
	// GetOpenByExchange returns the single waiting/active row for an
	// exchange, if any.
	GetOpenByExchange(id domain.ExchangeID) (domain.LiveSession, bool)
	Create(s domain.LiveSession) error
	Update(s domain.LiveSession) error
	// ListWaitingBefore returns waiting sessions whose StartTime is
	// older than cutoff. Used by the expiry janitor.
	ListWaitingBefore(cutoff time.Time) []domain.LiveSession
}

// ExchangeStore is the external exchange service boundary. This server
// only ever asks who an exchange's parties are and whether it is accepted.
type ExchangeStore interface {
	GetByID(id domain.ExchangeID) (domain.Exchange, error)
}

// NotificationSink delivers fire-and-forget events to the other party.
// Content formatting and transport are out of scope here.
type NotificationSink interface {
	Notify(ctx context.Context, to domain.UserID, kind string, payload map[string]any)
}
