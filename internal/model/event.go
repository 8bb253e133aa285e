package model

import "time"

type EventStatus string

const (
	EventStatusBusy        EventStatus = "BUSY"
	EventStatusSwappable   EventStatus = "SWAPPABLE"
	EventStatusSwapPending EventStatus = "SWAP_PENDING" // Участвует в незавершённом обмене
)

// Event is a time slot owned by a single user
type Event struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Title     string      `json:"title"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Owner *User `json:"owner,omitempty"`
}

// Valid reports whether s is one of the known statuses
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusBusy, EventStatusSwappable, EventStatusSwapPending:
		return true
	}
	return false
}

// OwnerSettable reports whether an owner may put an event into status s directly.
// SWAP_PENDING is only ever set by a swap request.
func (s EventStatus) OwnerSettable() bool {
	return s == EventStatusBusy || s == EventStatusSwappable
}

// IsSwapPending checks if the event is locked by a pending swap
func (e *Event) IsSwapPending() bool {
	return e.Status == EventStatusSwapPending
}
