package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// client captures the subset of go-redis commands the store relies on.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisConfig describes how the Redis manager connects.
type RedisConfig struct {
	Client    redis.UniversalClient
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisManager keeps session data in Redis, one JSON-encoded list per
// (session, key). Each write refreshes the TTL.
type RedisManager struct {
	client    client
	ownClient bool
	ttl       time.Duration
	prefix    string
}

// NewRedisManager connects (or wraps cfg.Client) and pings the server.
func NewRedisManager(ctx context.Context, cfg RedisConfig) (*RedisManager, error) {
	var (
		cl  client
		own bool
	)
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redis address not configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	m := newRedisManager(cl, cfg.TTL, cfg.KeyPrefix)
	m.ownClient = own

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cl.Ping(pingCtx).Err(); err != nil {
		if own {
			_ = cl.Close()
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return m, nil
}

func newRedisManager(cl client, ttl time.Duration, prefix string) *RedisManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if prefix == "" {
		prefix = "thanks:session:"
	}
	return &RedisManager{client: cl, ttl: ttl, prefix: prefix}
}

// Open returns the store for sessionID.
func (m *RedisManager) Open(sessionID string) Store {
	return &redisStore{m: m, sid: sessionID}
}

// Close releases the client when the manager created it.
func (m *RedisManager) Close() error {
	if m.ownClient {
		return m.client.Close()
	}
	return nil
}

type redisStore struct {
	m   *RedisManager
	sid string
}

func (s *redisStore) key(k string) string { return s.m.prefix + s.sid + ":" + k }

func (s *redisStore) Get(ctx context.Context, key string) ([]string, bool, error) {
	if s.sid == "" {
		return nil, false, ErrNoSession
	}
	raw, err := s.m.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session get %q: %w", key, err)
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, fmt.Errorf("session decode %q: %w", key, err)
	}
	return clone(values), true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, values []string) error {
	if s.sid == "" {
		return ErrNoSession
	}
	raw, err := json.Marshal(clone(values))
	if err != nil {
		return err
	}
	if err := s.m.client.Set(ctx, s.key(key), raw, s.m.ttl).Err(); err != nil {
		return fmt.Errorf("session set %q: %w", key, err)
	}
	return nil
}
