package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/domain"
)

func (ctl *Controller) dispatch(uid domain.UserID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Str("module", "signal").Err(err).Msg("bad json")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	switch env.Type {
	case "join_session":
		ctl.handleJoin(uid, c, data)
	case "signal":
		ctl.handleRelay(uid, c, data, domain.EventSignal, domain.EventSignalError)
	case "ice_candidate":
		ctl.handleRelay(uid, c, data, domain.EventSignal, domain.EventICECandidateError)
	case "screen_share_signal":
		ctl.handleRelay(uid, c, data, domain.EventScreenShareSignal, domain.EventScreenShareSignalError)
	case "sync_editor":
		ctl.handleSyncEditor(uid, c, data)
	case "chat_message":
		ctl.handleChat(uid, c, data)
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown message")
	}
}

func (ctl *Controller) handleJoin(uid domain.UserID, c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Token     string           `json:"token"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	view, err := ctl.Manager.JoinSession(p.SessionID, p.Token, uid, c.id)
	if err != nil {
		log.Warn().Str("module", "signal").Str("user_id", string(uid)).Str("session_id", string(p.SessionID)).Err(err).Msg("join rejected")
		ctl.sendJSON(c, map[string]any{
			"type":      "error",
			"error":     err.Error(),
			"sessionId": p.SessionID,
		})
		return
	}

	ctl.sendJSON(c, map[string]any{
		"type":    "session_joined",
		"session": view,
	})
}

// handleRelay forwards an opaque negotiation payload to its target and
// reports a failure back to the sender only, as the errEvent variant.
func (ctl *Controller) handleRelay(uid domain.UserID, c *wsConn, data []byte, event, errEvent string) {
	var p struct {
		Type      string           `json:"type"`
		To        domain.UserID    `json:"to"`
		SessionID domain.SessionID `json:"sessionId"`
		Data      json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	if err := ctl.Relay.Relay(uid, p.To, p.SessionID, event, p.Data); err != nil {
		ctl.sendJSON(c, map[string]any{
			"type":      errEvent,
			"to":        p.To,
			"error":     err.Error(),
			"sessionId": p.SessionID,
		})
	}
}

func (ctl *Controller) handleSyncEditor(uid domain.UserID, c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Operation string           `json:"operation"`
		Data      json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	if err := ctl.Manager.SyncEditorOperation(p.SessionID, uid, p.Operation, p.Data); err != nil {
		ctl.sendJSON(c, map[string]any{
			"type":      "error",
			"error":     err.Error(),
			"sessionId": p.SessionID,
		})
	}
}

// handleChat passes the message through to the other participant and
// counts it. Persistence and history belong to the chat service.
func (ctl *Controller) handleChat(uid domain.UserID, c *wsConn, data []byte) {
	var p struct {
		Type        string           `json:"type"`
		SessionID   domain.SessionID `json:"sessionId"`
		MessageType string           `json:"messageType"`
		Data        json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}
	if p.MessageType == "" {
		p.MessageType = "text"
	}

	if err := ctl.Manager.LogChatActivity(p.SessionID, uid, p.MessageType); err != nil {
		ctl.sendJSON(c, map[string]any{
			"type":      "error",
			"error":     err.Error(),
			"sessionId": p.SessionID,
		})
		return
	}

	view, err := ctl.Manager.GetSession(p.SessionID, uid)
	if err != nil {
		return
	}
	if err := ctl.Relay.Relay(uid, view.OtherParty(uid), p.SessionID, domain.EventChatMessage, p.Data); err != nil {
		ctl.sendJSON(c, map[string]any{
			"type":      "error",
			"error":     err.Error(),
			"sessionId": p.SessionID,
		})
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Str("module", "signal").Err(err).Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
