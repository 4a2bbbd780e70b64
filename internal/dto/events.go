package dto

import "time"

// Event types published to the account events topic. Messages are keyed by
// user ID so one account's events stay ordered on a single partition.
const (
	EventCodeIssued = "identity.code_issued"
	EventVerified   = "identity.verified"
	EventDeleted    = "identity.deleted"
)

// CodeIssuedEvent carries a fresh verification code to the mail service.
// It is the only place a code leaves this service.
type CodeIssuedEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

type AccountEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Soft   bool      `json:"soft,omitempty"`
	At     time.Time `json:"at"`
}
