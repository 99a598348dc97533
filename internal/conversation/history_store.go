package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HistoryStore persists conversation transcripts in Redis with a TTL, so a
// returning session id picks up where the patient left off.
type HistoryStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewHistoryStore creates a Redis-backed history store.
func NewHistoryStore(client *redis.Client, ttl time.Duration) *HistoryStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &HistoryStore{redis: client, ttl: ttl}
}

// Save replaces the stored transcript for a session and refreshes its TTL.
func (s *HistoryStore) Save(ctx context.Context, sessionID string, history []ChatMessage) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("conversation: marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: persist history: %w", err)
	}
	return nil
}

// Load returns the stored transcript. An unknown session is an empty
// transcript, not an error; every session has to start somewhere.
func (s *HistoryStore) Load(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}
	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("conversation: decode history: %w", err)
	}
	return history, nil
}

// Append loads, extends and saves a transcript in one call.
func (s *HistoryStore) Append(ctx context.Context, sessionID string, messages ...ChatMessage) error {
	history, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Save(ctx, sessionID, append(history, messages...))
}

func sessionKey(id string) string {
	return "conversation:" + id
}
