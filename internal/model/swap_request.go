package model

import "time"

type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"
	SwapStatusAccepted SwapStatus = "ACCEPTED"
	SwapStatusRejected SwapStatus = "REJECTED"
)

// SwapRequest is a proposal to exchange ownership of two slots.
// Once it leaves PENDING it is never modified again.
type SwapRequest struct {
	ID              string     `json:"id"`
	InitiatorID     string     `json:"initiator_id"`
	ReceiverID      string     `json:"receiver_id"`
	InitiatorSlotID string     `json:"initiator_slot_id"`
	ReceiverSlotID  string     `json:"receiver_slot_id"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Initiator     *User  `json:"initiator,omitempty"`
	Receiver      *User  `json:"receiver,omitempty"`
	InitiatorSlot *Event `json:"initiator_slot,omitempty"`
	ReceiverSlot  *Event `json:"receiver_slot,omitempty"`
}

// IsPending checks if request is still awaiting the receiver's answer
func (r *SwapRequest) IsPending() bool {
	return r.Status == SwapStatusPending
}

// Involves reports whether userID is one of the two parties
func (r *SwapRequest) Involves(userID string) bool {
	return r.InitiatorID == userID || r.ReceiverID == userID
}

// SlotIDs returns both referenced slot ids, initiator first
func (r *SwapRequest) SlotIDs() []string {
	return []string{r.InitiatorSlotID, r.ReceiverSlotID}
}
