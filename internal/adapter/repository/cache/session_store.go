package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const sessionKeyPrefix = "session:"

// SessionStore keeps signed-in identities in Redis so every replica sees the
// same sessions. Each Save renews the TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, key string) (*session.Identity, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("SessionStore.Load: %w", err)
	}
	var id session.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("SessionStore.Load: decode: %w", err)
	}
	return &id, nil
}

func (s *SessionStore) Save(ctx context.Context, key string, id *session.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("SessionStore.Save: encode: %w", err)
	}
	return s.client.Set(ctx, sessionKeyPrefix+key, data, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, sessionKeyPrefix+key).Err()
}
