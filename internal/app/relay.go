package app

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/core"
	"github.com/skillswap/live/internal/domain"
)

// SignalingRelay routes opaque negotiation payloads (SDP offers/answers,
// ICE candidates, screen-share signals) between the two participants of a
// session. Delivery is at most once: no buffering, no retry, no ordering
// guarantee beyond FIFO per single connection. The payload is never
// interpreted; the server only relays it.
type SignalingRelay struct {
	store    core.SessionStore
	presence *PresenceRegistry
}

func NewSignalingRelay(store core.SessionStore, presence *PresenceRegistry) *SignalingRelay {
	return &SignalingRelay{store: store, presence: presence}
}

// Relay forwards payload verbatim to the target's connection, tagged with
// the sender. A target without a live connection yields
// ErrTargetNotConnected; the message is gone and the sender decides
// whether to resend.
func (r *SignalingRelay) Relay(from, to domain.UserID, sessionID domain.SessionID, event string, payload json.RawMessage) error {
	sess, err := r.store.GetByID(sessionID)
	if err != nil {
		metricSignalsFailed.WithLabelValues(event).Inc()
		return err
	}
	if !sess.IsParticipant(from) {
		metricSignalsFailed.WithLabelValues(event).Inc()
		return fmt.Errorf("user %s is not a participant of session %s: %w", from, sessionID, domain.ErrUnauthorized)
	}

	conn, ok := r.presence.Resolve(to)
	if !ok {
		metricSignalsFailed.WithLabelValues(event).Inc()
		return fmt.Errorf("user %s: %w", to, domain.ErrTargetNotConnected)
	}

	frame, err := json.Marshal(map[string]any{
		"type":      event,
		"from":      from,
		"sessionId": sessionID,
		"data":      payload,
	})
	if err != nil {
		metricSignalsFailed.WithLabelValues(event).Inc()
		return err
	}
	if err := conn.TrySend(core.Frame(frame)); err != nil {
		metricSignalsFailed.WithLabelValues(event).Inc()
		log.Warn().Str("module", "app.relay").Str("to", string(to)).Str("kind", event).Err(err).Msg("relay dropped")
		return fmt.Errorf("user %s: %w", to, domain.ErrTargetNotConnected)
	}

	metricSignalsRelayed.WithLabelValues(event).Inc()
	return nil
}
