package model

import "time"

// Notification is an append-only per-user message. Sent flips to true the
// first time the owner lists their notifications; rows are only ever removed
// by the bulk delete.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"createdAt"`
}
