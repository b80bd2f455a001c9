// Package domain contains entities without logic, just meta-data
// and the small amount of state-machine bookkeeping they own.
package domain

import "time"

type (
	SessionID  string
	ExchangeID string
	UserID     string
	ConnID     string
)

// SessionStatus is the lifecycle of the call itself.
// Transitions are monotonic: waiting -> active -> ended.
type SessionStatus string

const (
	StatusWaiting SessionStatus = "waiting"
	StatusActive  SessionStatus = "active"
	StatusEnded   SessionStatus = "ended"
)

// InviteStatus is the lifecycle of the invitation, independent of SessionStatus.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// SessionKind discriminates the two variants that share the LiveSession row:
// an ad hoc session created directly, or one born as an invitation.
type SessionKind string

const (
	KindSession    SessionKind = "session"
	KindInvitation SessionKind = "invitation"
)

// LiveSession is the durable record of one live call tied to an accepted
// exchange. At most one non-ended row may exist per ExchangeID.
type LiveSession struct {
	ID         SessionID   `json:"id"`
	ExchangeID ExchangeID  `json:"exchangeId"`
	Kind       SessionKind `json:"kind"`

	InitiatorID UserID `json:"initiatorId"`
	ProviderID  UserID `json:"providerId"`

	Status       SessionStatus `json:"status"`
	InviteStatus InviteStatus  `json:"invitationStatus"`

	// Token is the opaque join secret. Empty for a pending invitation;
	// regenerated on creation and on invitation acceptance.
	Token string `json:"-"`

	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`

	InitiatorJoined bool `json:"initiatorJoined"`
	ProviderJoined  bool `json:"providerJoined"`

	// ScreenShareUserID is set while exactly one participant shares a
	// screen; empty otherwise. Must equal InitiatorID or ProviderID.
	ScreenShareUserID UserID `json:"screenShareUserId,omitempty"`
}

func (s *LiveSession) IsParticipant(uid UserID) bool {
	return uid == s.InitiatorID || uid == s.ProviderID
}

// OtherParty returns the participant that is not uid.
func (s *LiveSession) OtherParty(uid UserID) UserID {
	if uid == s.InitiatorID {
		return s.ProviderID
	}
	return s.InitiatorID
}

func (s *LiveSession) BothJoined() bool {
	return s.InitiatorJoined && s.ProviderJoined
}

func (s *LiveSession) Ended() bool {
	return s.Status == StatusEnded
}

// Participants returns both parties, initiator first.
func (s *LiveSession) Participants() [2]UserID {
	return [2]UserID{s.InitiatorID, s.ProviderID}
}
