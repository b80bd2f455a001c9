package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/domain"
)

// Janitor expires waiting sessions whose second party never joined.
// This is the explicit timeout policy for otherwise-immortal waiting rows:
// after TTL the row moves to ended and session_ended is broadcast with
// reason "expired". A zero TTL disables expiry.
type Janitor struct {
	m        *SessionManager
	ttl      time.Duration
	interval time.Duration
}

func NewJanitor(m *SessionManager, ttl, interval time.Duration) *Janitor {
	return &Janitor{m: m, ttl: ttl, interval: interval}
}

func (j *Janitor) Run(ctx context.Context) {
	if j.ttl <= 0 {
		log.Info().Str("module", "app.janitor").Msg("waiting-session expiry disabled")
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	cutoff := j.m.now().Add(-j.ttl)
	for _, sess := range j.m.store.ListWaitingBefore(cutoff) {
		j.expire(sess.ID)
	}
}

func (j *Janitor) expire(id domain.SessionID) {
	unlock := j.m.locks.lock("session:" + string(id))
	defer unlock()

	// Re-check under the lock; the session may have activated or ended
	// since the sweep listed it.
	sess, err := j.m.store.GetByID(id)
	if err != nil || sess.Status != domain.StatusWaiting {
		return
	}

	sess.Status = domain.StatusEnded
	now := j.m.now()
	sess.EndTime = &now
	if err := j.m.store.Update(sess); err != nil {
		log.Error().Str("module", "app.janitor").Str("session_id", string(id)).Err(err).Msg("expire update failed")
		return
	}
	metricSessionsEnded.WithLabelValues("expired").Inc()
	log.Info().Str("module", "app.janitor").Str("session_id", string(id)).Msg("waiting session expired")

	j.m.broadcast(sess, envelope(domain.EventSessionEnded, map[string]any{
		"sessionId": id,
		"reason":    "expired",
	}))
}
