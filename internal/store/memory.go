package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gemchat/internal/model"
)

// MemoryStore is the reference backend: two maps guarded by one RWMutex.
// Nothing survives a process restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	messages map[string]*model.Message
	// seq disambiguates messages created within the same clock tick so
	// Messages() has a reproducible insertion-order tie-break.
	seq   uint64
	seqOf map[string]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		messages: make(map[string]*model.Message),
		seqOf:    make(map[string]uint64),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, input CreateSessionInput) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		Title:     input.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session

	copied := *session
	return &copied, nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, id string, update SessionUpdate) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if update.Title != nil {
		session.Title = *update.Title
	}
	session.UpdatedAt = time.Now()

	copied := *session
	return &copied, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	for msgID, msg := range s.messages {
		if msg.SessionID == id {
			delete(s.messages, msgID)
			delete(s.seqOf, msgID)
		}
	}
	delete(s.sessions, id)
	return true, nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, *session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, input CreateMessageInput) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message := &model.Message{
		ID:        uuid.NewString(),
		SessionID: input.SessionID,
		Role:      input.Role,
		Content:   input.Content,
		Timestamp: time.Now(),
		Metadata:  normalizeMetadata(input.Metadata),
	}
	s.seq++
	s.messages[message.ID] = message
	s.seqOf[message.ID] = s.seq

	copied := *message
	return &copied, nil
}

func (s *MemoryStore) Messages(_ context.Context, sessionID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ordered struct {
		msg model.Message
		seq uint64
	}
	collected := make([]ordered, 0)
	for id, msg := range s.messages {
		if msg.SessionID == sessionID {
			collected = append(collected, ordered{msg: *msg, seq: s.seqOf[id]})
		}
	}
	sort.Slice(collected, func(i, j int) bool {
		if collected[i].msg.Timestamp.Equal(collected[j].msg.Timestamp) {
			return collected[i].seq < collected[j].seq
		}
		return collected[i].msg.Timestamp.Before(collected[j].msg.Timestamp)
	})

	messages := make([]model.Message, 0, len(collected))
	for _, item := range collected {
		messages = append(messages, item.msg)
	}
	return messages, nil
}
