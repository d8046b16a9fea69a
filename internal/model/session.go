package model

import "time"

// Session is a named, ordered conversation and the container for Messages.
// Title is empty until explicitly set or generated. CreatedAt is set once;
// UpdatedAt moves whenever the session or its message set changes.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
