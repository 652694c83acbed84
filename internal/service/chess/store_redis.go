package chess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionKey = "webchess:session"
	defaultSessionTTL = 24 * time.Hour
)

type redisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore stores the snapshot as JSON under key with a TTL refreshed
// on every save.
func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) SessionStore {
	if strings.TrimSpace(key) == "" {
		key = DefaultSessionKey
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &redisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *redisStore) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &snap, nil
}

func (s *redisStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return s.Clear(ctx)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
