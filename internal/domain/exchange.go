package domain

type ExchangeStatus string

const (
	ExchangePending   ExchangeStatus = "pending"
	ExchangeAccepted  ExchangeStatus = "accepted"
	ExchangeDeclined  ExchangeStatus = "declined"
	ExchangeCompleted ExchangeStatus = "completed"
)

// Exchange is the read-only view of a skill exchange this server needs:
// who its two parties are and whether it has been accepted. The full CRUD
// lifecycle lives in the exchange service, not here.
type Exchange struct {
	ID          ExchangeID     `json:"id"`
	RequesterID UserID         `json:"requesterId"`
	ProviderID  UserID         `json:"providerId"`
	Status      ExchangeStatus `json:"status"`
}

func (e *Exchange) IsParty(uid UserID) bool {
	return uid == e.RequesterID || uid == e.ProviderID
}

// OtherParty returns the party that is not uid.
func (e *Exchange) OtherParty(uid UserID) UserID {
	if uid == e.RequesterID {
		return e.ProviderID
	}
	return e.RequesterID
}
