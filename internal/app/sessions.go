// Package app owns the live-session state machine, the invitation
// workflow, the signaling relay and the presence registry.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/auth"
	"github.com/skillswap/live/internal/core"
	"github.com/skillswap/live/internal/domain"
)

// SessionView is what callers of the request/response API get back: the
// session row tagged with the caller's role.
type SessionView struct {
	domain.LiveSession
	IsInitiator bool   `json:"isInitiator"`
	Token       string `json:"token,omitempty"`
}

// SessionManager drives the waiting -> active -> ended state machine and
// enforces authorization against the session store and the owning exchange.
// All mutations are serialized per session (per exchange for creation)
// through a keyed mutex.
type SessionManager struct {
	store     core.SessionStore
	exchanges core.ExchangeStore
	presence  *PresenceRegistry
	notify    core.NotificationSink
	tokens    *auth.Authorizer

	locks *keyedMutex
	now   func() time.Time
}

func NewSessionManager(
	store core.SessionStore,
	exchanges core.ExchangeStore,
	presence *PresenceRegistry,
	notify core.NotificationSink,
	tokens *auth.Authorizer,
) *SessionManager {
	return &SessionManager{
		store:     store,
		exchanges: exchanges,
		presence:  presence,
		notify:    notify,
		tokens:    tokens,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// InitializeSession creates the live session for an accepted exchange, or
// returns the existing waiting/active one unchanged. Idempotent per
// exchange, including under concurrent calls.
func (m *SessionManager) InitializeSession(ctx context.Context, exchangeID domain.ExchangeID, caller domain.UserID) (SessionView, error) {
	ex, err := m.exchanges.GetByID(exchangeID)
	if err != nil {
		return SessionView{}, err
	}
	if !ex.IsParty(caller) {
		return SessionView{}, fmt.Errorf("user %s is not a party of exchange %s: %w", caller, exchangeID, domain.ErrUnauthorized)
	}
	if ex.Status != domain.ExchangeAccepted {
		return SessionView{}, fmt.Errorf("exchange %s is %s, not accepted: %w", exchangeID, ex.Status, domain.ErrInvalidState)
	}

	unlock := m.locks.lock("exchange:" + string(exchangeID))
	defer unlock()

	if existing, ok := m.store.GetOpenByExchange(exchangeID); ok {
		return m.view(existing, caller), nil
	}

	now := m.now()
	sess := domain.LiveSession{
		ID:           domain.SessionID(uuid.NewString()),
		ExchangeID:   exchangeID,
		Kind:         domain.KindSession,
		InitiatorID:  caller,
		ProviderID:   ex.OtherParty(caller),
		Status:       domain.StatusWaiting,
		InviteStatus: domain.InviteAccepted,
		Token:        m.tokens.Issue(),
		StartTime:    &now,
	}
	if err := m.store.Create(sess); err != nil {
		return SessionView{}, err
	}
	metricSessionsCreated.Inc()
	log.Info().Str("module", "app.sessions").Str("session_id", string(sess.ID)).Str("exchange_id", string(exchangeID)).Msg("session created")

	other := sess.ProviderID
	m.notify.Notify(ctx, other, domain.EventSessionCreated, map[string]any{
		"sessionId":  sess.ID,
		"exchangeId": exchangeID,
	})
	_ = m.presence.SendJSON(other, envelope(domain.EventSessionCreated, map[string]any{
		"sessionId":  sess.ID,
		"exchangeId": exchangeID,
		"from":       caller,
	}))

	return m.view(sess, caller), nil
}

// JoinSession verifies the token, flips the caller's joined flag and
// activates the session once both parties are in. connID may be empty for
// request/response joins; presence is only touched when it is set.
func (m *SessionManager) JoinSession(sessionID domain.SessionID, token string, caller domain.UserID, connID domain.ConnID) (SessionView, error) {
	unlock := m.locks.lock("session:" + string(sessionID))
	defer unlock()

	sess, err := m.store.GetByID(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if !m.tokens.Verify(sessionID, sess.Token, token) {
		return SessionView{}, fmt.Errorf("join token rejected for session %s: %w", sessionID, domain.ErrUnauthorized)
	}
	if !sess.IsParticipant(caller) {
		return SessionView{}, fmt.Errorf("user %s is not a participant of session %s: %w", caller, sessionID, domain.ErrUnauthorized)
	}
	if sess.Ended() {
		return SessionView{}, fmt.Errorf("session %s has ended: %w", sessionID, domain.ErrInvalidState)
	}

	if caller == sess.InitiatorID {
		sess.InitiatorJoined = true
	} else {
		sess.ProviderJoined = true
	}
	if sess.BothJoined() && sess.Status == domain.StatusWaiting {
		sess.Status = domain.StatusActive
		now := m.now()
		sess.StartTime = &now
	}
	if err := m.store.Update(sess); err != nil {
		return SessionView{}, err
	}

	if connID != "" {
		if conn, ok := m.presence.Resolve(caller); ok && conn.ID() == connID {
			m.presence.JoinRoom(sessionID, caller)
		}
	}

	log.Info().Str("module", "app.sessions").Str("session_id", string(sessionID)).Str("user_id", string(caller)).Str("status", string(sess.Status)).Msg("user joined")

	m.broadcast(sess, envelope(domain.EventUserJoinedSession, map[string]any{
		"sessionId": sessionID,
		"userId":    caller,
	}))
	m.broadcastState(sess)

	return m.view(sess, caller), nil
}

// EndSession moves the session to its terminal state. The presence
// registry is left alone; the connection layer's disconnect path owns it.
func (m *SessionManager) EndSession(ctx context.Context, sessionID domain.SessionID, caller domain.UserID) error {
	unlock := m.locks.lock("session:" + string(sessionID))
	defer unlock()

	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return err
	}
	if sess.Ended() {
		return fmt.Errorf("session %s already ended: %w", sessionID, domain.ErrInvalidState)
	}

	sess.Status = domain.StatusEnded
	now := m.now()
	sess.EndTime = &now
	sess.ScreenShareUserID = ""
	if err := m.store.Update(sess); err != nil {
		return err
	}
	metricSessionsEnded.WithLabelValues("ended").Inc()
	log.Info().Str("module", "app.sessions").Str("session_id", string(sessionID)).Str("user_id", string(caller)).Msg("session ended")

	m.broadcast(sess, envelope(domain.EventSessionEnded, map[string]any{
		"sessionId": sessionID,
		"endedBy":   caller,
	}))
	return nil
}

// ToggleAudio and ToggleVideo are advisory UI-sync flags, not a
// server-enforced mute: authorization plus broadcast, no stored state.
func (m *SessionManager) ToggleAudio(sessionID domain.SessionID, caller domain.UserID, enabled bool) error {
	return m.toggleMedia(sessionID, caller, domain.EventAudioToggled, "isAudioEnabled", enabled)
}

func (m *SessionManager) ToggleVideo(sessionID domain.SessionID, caller domain.UserID, enabled bool) error {
	return m.toggleMedia(sessionID, caller, domain.EventVideoToggled, "isVideoEnabled", enabled)
}

func (m *SessionManager) toggleMedia(sessionID domain.SessionID, caller domain.UserID, event, field string, enabled bool) error {
	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return err
	}
	m.broadcast(sess, envelope(event, map[string]any{
		"sessionId": sessionID,
		"userId":    caller,
		field:       enabled,
	}))
	return nil
}

// StartScreenShare claims the single screen-share slot. The per-session
// lock makes the check-and-set atomic, so two racing callers cannot both
// succeed.
func (m *SessionManager) StartScreenShare(sessionID domain.SessionID, caller domain.UserID) error {
	unlock := m.locks.lock("session:" + string(sessionID))
	defer unlock()

	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return err
	}
	if sess.Ended() {
		return fmt.Errorf("session %s has ended: %w", sessionID, domain.ErrInvalidState)
	}
	if sess.ScreenShareUserID != "" {
		return fmt.Errorf("user %s is already sharing in session %s: %w", sess.ScreenShareUserID, sessionID, domain.ErrAlreadyInProgress)
	}

	sess.ScreenShareUserID = caller
	if err := m.store.Update(sess); err != nil {
		return err
	}
	m.broadcast(sess, envelope(domain.EventScreenShareStarted, map[string]any{
		"sessionId": sessionID,
		"userId":    caller,
	}))
	return nil
}

func (m *SessionManager) StopScreenShare(sessionID domain.SessionID, caller domain.UserID) error {
	unlock := m.locks.lock("session:" + string(sessionID))
	defer unlock()

	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return err
	}
	if sess.ScreenShareUserID != caller {
		return fmt.Errorf("user %s does not own the screen share in session %s: %w", caller, sessionID, domain.ErrUnauthorized)
	}

	sess.ScreenShareUserID = ""
	if err := m.store.Update(sess); err != nil {
		return err
	}
	m.broadcast(sess, envelope(domain.EventScreenShareStopped, map[string]any{
		"sessionId": sessionID,
		"userId":    caller,
	}))
	return nil
}

// SyncEditorOperation forwards an opaque editor operation verbatim to the
// other participant. No transformation, no conflict resolution;
// last-write-wins is the client's problem.
func (m *SessionManager) SyncEditorOperation(sessionID domain.SessionID, caller domain.UserID, operation string, payload json.RawMessage) error {
	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return err
	}
	if sess.Status != domain.StatusActive {
		return fmt.Errorf("session %s is %s, not active: %w", sessionID, sess.Status, domain.ErrInvalidState)
	}
	metricEditorOps.Inc()
	_ = m.presence.SendJSON(sess.OtherParty(caller), envelope(domain.EventSyncEditor, map[string]any{
		"sessionId": sessionID,
		"userId":    caller,
		"operation": operation,
		"data":      payload,
	}))
	return nil
}

// LogChatActivity counts a chat message for an active session. Persistence
// and history live in the chat service; here it only feeds the counter.
func (m *SessionManager) LogChatActivity(sessionID domain.SessionID, caller domain.UserID, messageType string) error {
	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return err
	}
	if sess.Status != domain.StatusActive {
		return fmt.Errorf("session %s is %s, not active: %w", sessionID, sess.Status, domain.ErrInvalidState)
	}
	metricChatActivity.WithLabelValues(messageType).Inc()
	return nil
}

// GetSession returns the session for one of its participants.
func (m *SessionManager) GetSession(sessionID domain.SessionID, caller domain.UserID) (SessionView, error) {
	sess, err := m.authorized(sessionID, caller)
	if err != nil {
		return SessionView{}, err
	}
	return m.view(sess, caller), nil
}

// VerifyToken reports whether token grants access to the session.
func (m *SessionManager) VerifyToken(sessionID domain.SessionID, token string) (bool, error) {
	sess, err := m.store.GetByID(sessionID)
	if err != nil {
		return false, err
	}
	return m.tokens.Verify(sessionID, sess.Token, token), nil
}

// HandleDisconnect is called by the connection layer after it unregisters
// a connection. It broadcasts user_left_session to the rooms the user was
// in and clears the ephemeral membership; the durable row is untouched.
func (m *SessionManager) HandleDisconnect(uid domain.UserID) {
	for _, sid := range m.presence.RoomsOf(uid) {
		m.presence.LeaveRoom(sid, uid)
		sess, err := m.store.GetByID(sid)
		if err != nil {
			continue
		}
		m.broadcast(sess, envelope(domain.EventUserLeftSession, map[string]any{
			"sessionId": sid,
			"userId":    uid,
		}))
		log.Info().Str("module", "app.sessions").Str("session_id", string(sid)).Str("user_id", string(uid)).Msg("user left session")
	}
}

func (m *SessionManager) authorized(sessionID domain.SessionID, caller domain.UserID) (domain.LiveSession, error) {
	sess, err := m.store.GetByID(sessionID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	if !sess.IsParticipant(caller) {
		return domain.LiveSession{}, fmt.Errorf("user %s is not a participant of session %s: %w", caller, sessionID, domain.ErrUnauthorized)
	}
	return sess, nil
}

func (m *SessionManager) view(sess domain.LiveSession, caller domain.UserID) SessionView {
	return SessionView{
		LiveSession: sess,
		IsInitiator: caller == sess.InitiatorID,
		Token:       sess.Token,
	}
}

func (m *SessionManager) broadcast(sess domain.LiveSession, v any) {
	for _, uid := range sess.Participants() {
		_ = m.presence.SendJSON(uid, v)
	}
}

func (m *SessionManager) broadcastState(sess domain.LiveSession) {
	m.broadcast(sess, envelope(domain.EventSessionState, map[string]any{
		"sessionId":       sess.ID,
		"initiatorJoined": sess.InitiatorJoined,
		"providerJoined":  sess.ProviderJoined,
		"status":          sess.Status,
	}))
}

// envelope builds the standard event envelope pushed over the duplex channel.
func envelope(event string, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["type"] = event
	return out
}
