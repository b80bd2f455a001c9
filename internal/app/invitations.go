package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/domain"
)

// InvitationWorkflow models the invite -> accept/decline handshake that
// precedes token issuance. An invitation rides the same row as a session,
// discriminated by Kind; no token exists until acceptance.
type InvitationWorkflow struct {
	m *SessionManager
}

func NewInvitationWorkflow(m *SessionManager) *InvitationWorkflow {
	return &InvitationWorkflow{m: m}
}

// AcceptResult carries the freshly issued join credentials.
type AcceptResult struct {
	Token      string `json:"token"`
	SessionURL string `json:"sessionUrl"`
}

// Send creates a pending invitation for an accepted exchange and notifies
// the receiver.
func (w *InvitationWorkflow) Send(ctx context.Context, exchangeID domain.ExchangeID, sender, receiver domain.UserID) (domain.LiveSession, error) {
	ex, err := w.m.exchanges.GetByID(exchangeID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	if !ex.IsParty(sender) || !ex.IsParty(receiver) || sender == receiver {
		return domain.LiveSession{}, fmt.Errorf("users %s/%s are not the parties of exchange %s: %w", sender, receiver, exchangeID, domain.ErrUnauthorized)
	}
	if ex.Status != domain.ExchangeAccepted {
		return domain.LiveSession{}, fmt.Errorf("exchange %s is %s, not accepted: %w", exchangeID, ex.Status, domain.ErrInvalidState)
	}

	unlock := w.m.locks.lock("exchange:" + string(exchangeID))
	defer unlock()

	if existing, ok := w.m.store.GetOpenByExchange(exchangeID); ok {
		return existing, nil
	}

	now := w.m.now()
	inv := domain.LiveSession{
		ID:           domain.SessionID(uuid.NewString()),
		ExchangeID:   exchangeID,
		Kind:         domain.KindInvitation,
		InitiatorID:  sender,
		ProviderID:   receiver,
		Status:       domain.StatusWaiting,
		InviteStatus: domain.InvitePending,
		StartTime:    &now,
	}
	if err := w.m.store.Create(inv); err != nil {
		return domain.LiveSession{}, err
	}
	metricInvitations.WithLabelValues("sent").Inc()
	log.Info().Str("module", "app.invitations").Str("invitation_id", string(inv.ID)).Str("exchange_id", string(exchangeID)).Msg("invitation sent")

	w.m.notify.Notify(ctx, receiver, domain.EventInvitation, map[string]any{
		"invitationId": inv.ID,
		"exchangeId":   exchangeID,
		"from":         sender,
	})
	_ = w.m.presence.SendJSON(receiver, envelope(domain.EventInvitation, map[string]any{
		"invitationId": inv.ID,
		"exchangeId":   exchangeID,
		"from":         sender,
	}))
	return inv, nil
}

// Accept is only valid for the invitation's designated receiver and only
// while the invitation is pending. It issues the session token.
func (w *InvitationWorkflow) Accept(ctx context.Context, invitationID domain.SessionID, caller domain.UserID) (AcceptResult, error) {
	unlock := w.m.locks.lock("session:" + string(invitationID))
	defer unlock()

	inv, err := w.load(invitationID)
	if err != nil {
		return AcceptResult{}, err
	}
	if caller != inv.ProviderID {
		return AcceptResult{}, fmt.Errorf("user %s is not the receiver of invitation %s: %w", caller, invitationID, domain.ErrUnauthorized)
	}
	if inv.InviteStatus != domain.InvitePending {
		return AcceptResult{}, fmt.Errorf("invitation %s is %s, not pending: %w", invitationID, inv.InviteStatus, domain.ErrInvalidState)
	}

	inv.InviteStatus = domain.InviteAccepted
	inv.Token = w.m.tokens.Issue()
	if err := w.m.store.Update(inv); err != nil {
		return AcceptResult{}, err
	}
	metricInvitations.WithLabelValues("accepted").Inc()
	log.Info().Str("module", "app.invitations").Str("invitation_id", string(invitationID)).Msg("invitation accepted")

	w.m.notify.Notify(ctx, inv.InitiatorID, domain.EventInviteAccepted, map[string]any{
		"invitationId": invitationID,
		"sessionId":    invitationID,
	})
	_ = w.m.presence.SendJSON(inv.InitiatorID, envelope(domain.EventInviteAccepted, map[string]any{
		"invitationId": invitationID,
		"sessionId":    invitationID,
		"by":           caller,
	}))

	return AcceptResult{
		Token:      inv.Token,
		SessionURL: "/live/" + string(invitationID),
	}, nil
}

// Decline marks the invitation declined. No token is ever issued for a
// declined invitation.
func (w *InvitationWorkflow) Decline(ctx context.Context, invitationID domain.SessionID, caller domain.UserID) error {
	unlock := w.m.locks.lock("session:" + string(invitationID))
	defer unlock()

	inv, err := w.load(invitationID)
	if err != nil {
		return err
	}
	if caller != inv.ProviderID {
		return fmt.Errorf("user %s is not the receiver of invitation %s: %w", caller, invitationID, domain.ErrUnauthorized)
	}
	if inv.InviteStatus != domain.InvitePending {
		return fmt.Errorf("invitation %s is %s, not pending: %w", invitationID, inv.InviteStatus, domain.ErrInvalidState)
	}

	inv.InviteStatus = domain.InviteDeclined
	inv.Status = domain.StatusEnded
	now := w.m.now()
	inv.EndTime = &now
	if err := w.m.store.Update(inv); err != nil {
		return err
	}
	metricInvitations.WithLabelValues("declined").Inc()
	log.Info().Str("module", "app.invitations").Str("invitation_id", string(invitationID)).Msg("invitation declined")

	w.m.notify.Notify(ctx, inv.InitiatorID, "live_exchange_declined", map[string]any{
		"invitationId": invitationID,
		"by":           caller,
	})
	return nil
}

func (w *InvitationWorkflow) load(id domain.SessionID) (domain.LiveSession, error) {
	inv, err := w.m.store.GetByID(id)
	if err != nil {
		return domain.LiveSession{}, err
	}
	if inv.Kind != domain.KindInvitation {
		return domain.LiveSession{}, fmt.Errorf("session %s is not an invitation: %w", id, domain.ErrNotFound)
	}
	return inv, nil
}
