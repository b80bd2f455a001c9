// Package http is the request/response surface of the live-session core.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/app"
	"github.com/skillswap/live/internal/domain"
)

type Handlers struct {
	Manager *app.SessionManager
	Invites *app.InvitationWorkflow
}

func NewHandlers(manager *app.SessionManager, invites *app.InvitationWorkflow) *Handlers {
	return &Handlers{Manager: manager, Invites: invites}
}

func caller(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetString("user_id"))
}

func sessionID(c *gin.Context) domain.SessionID {
	return domain.SessionID(c.Param("sessionId"))
}

// abort maps domain errors onto HTTP statuses.
func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTargetNotConnected):
		status = http.StatusBadGateway
	default:
		log.Error().Str("module", "adapters.http").Err(err).Msg("unexpected error")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *Handlers) Initialize(c *gin.Context) {
	var req struct {
		ExchangeID domain.ExchangeID `json:"exchangeId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.Manager.InitializeSession(c.Request.Context(), req.ExchangeID, caller(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) Join(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.Manager.JoinSession(sessionID(c), req.Token, caller(c), "")
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) End(c *gin.Context) {
	if err := h.Manager.EndSession(c.Request.Context(), sessionID(c), caller(c)); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) ToggleAudio(c *gin.Context) {
	var req struct {
		IsAudioEnabled *bool `json:"isAudioEnabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Manager.ToggleAudio(sessionID(c), caller(c), *req.IsAudioEnabled); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) ToggleVideo(c *gin.Context) {
	var req struct {
		IsVideoEnabled *bool `json:"isVideoEnabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Manager.ToggleVideo(sessionID(c), caller(c), *req.IsVideoEnabled); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) StartScreenShare(c *gin.Context) {
	if err := h.Manager.StartScreenShare(sessionID(c), caller(c)); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) StopScreenShare(c *gin.Context) {
	if err := h.Manager.StopScreenShare(sessionID(c), caller(c)); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) GetSession(c *gin.Context) {
	view, err := h.Manager.GetSession(sessionID(c), caller(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) VerifyToken(c *gin.Context) {
	ok, err := h.Manager.VerifyToken(domain.SessionID(c.Param("sessionId")), c.Param("token"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isValid": ok})
}

func (h *Handlers) SendInvitation(c *gin.Context) {
	var req struct {
		ExchangeID domain.ExchangeID `json:"exchangeId" binding:"required"`
		ReceiverID domain.UserID     `json:"receiverId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := h.Invites.Send(c.Request.Context(), req.ExchangeID, caller(c), req.ReceiverID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handlers) AcceptInvitation(c *gin.Context) {
	res, err := h.Invites.Accept(c.Request.Context(), domain.SessionID(c.Param("invitationId")), caller(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) DeclineInvitation(c *gin.Context) {
	if err := h.Invites.Decline(c.Request.Context(), domain.SessionID(c.Param("invitationId")), caller(c)); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) SyncEditor(c *gin.Context) {
	var req struct {
		Operation string          `json:"operation" binding:"required"`
		Data      json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Manager.SyncEditorOperation(sessionID(c), caller(c), req.Operation, req.Data); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LogChat(c *gin.Context) {
	var req struct {
		MessageType string `json:"messageType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Manager.LogChatActivity(sessionID(c), caller(c), req.MessageType); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
