package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"

	"gemchat/internal/model"
)

const (
	sessionKeyPrefix  = "gemchat:session:"
	messagesKeyPrefix = "gemchat:messages:"
	sessionIndexKey   = "gemchat:sessions"
)

// RedisStore is an optional key-value backend with the same contract as
// MemoryStore. Sessions live as JSON values, a zset on UpdatedAt keeps the
// listing order, and each session's messages sit in a list whose push order
// doubles as the timestamp tie-break.
type RedisStore struct {
	client *redisv9.Client
}

func NewRedisStore(client *redisv9.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) CreateSession(ctx context.Context, input CreateSessionInput) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		Title:     input.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) UpdateSession(ctx context.Context, id string, update SessionUpdate) (*model.Session, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil || session == nil {
		return nil, err
	}
	if update.Title != nil {
		session.Title = *update.Title
	}
	session.UpdatedAt = time.Now()

	if err := s.writeSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	existed, err := s.client.Exists(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	if existed == 0 {
		return false, nil
	}

	// Messages first, then the session entry and its index slot.
	if err := s.client.Del(ctx, messagesKeyPrefix+id).Err(); err != nil {
		return false, fmt.Errorf("redis delete messages failed: %w", err)
	}
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return false, fmt.Errorf("redis delete session failed: %w", err)
	}
	if err := s.client.ZRem(ctx, sessionIndexKey, id).Err(); err != nil {
		return false, fmt.Errorf("redis remove session index failed: %w", err)
	}
	return true, nil
}

func (s *RedisStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	ids, err := s.client.ZRevRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list session index failed: %w", err)
	}

	sessions := make([]model.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if session == nil {
			continue
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (s *RedisStore) CreateMessage(ctx context.Context, input CreateMessageInput) (*model.Message, error) {
	message := &model.Message{
		ID:        uuid.NewString(),
		SessionID: input.SessionID,
		Role:      input.Role,
		Content:   input.Content,
		Timestamp: time.Now(),
		Metadata:  normalizeMetadata(input.Metadata),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal message failed: %w", err)
	}
	if err := s.client.RPush(ctx, messagesKeyPrefix+input.SessionID, payload).Err(); err != nil {
		return nil, fmt.Errorf("redis push message failed: %w", err)
	}
	return message, nil
}

func (s *RedisStore) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	raw, err := s.client.LRange(ctx, messagesKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list messages failed: %w", err)
	}

	messages := make([]model.Message, 0, len(raw))
	for _, item := range raw {
		var message model.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			return nil, fmt.Errorf("unmarshal message failed: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *RedisStore) writeSession(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	if err := s.client.ZAdd(ctx, sessionIndexKey, redisv9.Z{
		Score:  float64(session.UpdatedAt.UnixNano()),
		Member: session.ID,
	}).Err(); err != nil {
		return fmt.Errorf("redis index session failed: %w", err)
	}
	return nil
}
