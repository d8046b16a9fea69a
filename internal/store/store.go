package store

import (
	"context"

	"gemchat/internal/model"
)

// CreateSessionInput carries the caller-suppliable session fields. Title is
// optional and defaults to absent.
type CreateSessionInput struct {
	Title string
}

// SessionUpdate is a partial update. Nil fields are left untouched;
// UpdatedAt is always refreshed regardless of what is supplied.
type SessionUpdate struct {
	Title *string
}

// CreateMessageInput carries the caller-suppliable message fields. Metadata
// is normalized at the store boundary: only the three known fields are
// retained, and absent metadata is stored as nil.
type CreateMessageInput struct {
	SessionID string
	Role      string
	Content   string
	Metadata  *model.MessageMetadata
}

// Store owns all Session and Message records. Not-found is a valid,
// non-exceptional result reported as (nil, nil); the memory backend never
// returns a non-nil error.
type Store interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	UpdateSession(ctx context.Context, id string, update SessionUpdate) (*model.Session, error)
	// DeleteSession removes the session and every message that belongs to
	// it. Messages go first, then the session entry. Reports whether the
	// session existed.
	DeleteSession(ctx context.Context, id string) (bool, error)
	// ListSessions returns sessions ordered by UpdatedAt descending, most
	// recently active first.
	ListSessions(ctx context.Context) ([]model.Session, error)
	CreateMessage(ctx context.Context, input CreateMessageInput) (*model.Message, error)
	// Messages returns the session's messages ordered by Timestamp
	// ascending, with insertion order as the tie-break.
	Messages(ctx context.Context, sessionID string) ([]model.Message, error)
}

// normalizeMetadata keeps only the known metadata fields and collapses an
// all-empty record to nil.
func normalizeMetadata(meta *model.MessageMetadata) *model.MessageMetadata {
	if meta == nil {
		return nil
	}
	kept := &model.MessageMetadata{
		Model:  meta.Model,
		Tokens: meta.Tokens,
		Error:  meta.Error,
	}
	if kept.Model == "" && kept.Tokens == 0 && kept.Error == "" {
		return nil
	}
	return kept
}
