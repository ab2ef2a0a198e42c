package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stageflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "stageflow:session:"

// neverExpires is the index score used when sessions have no TTL (2100-01-01).
const neverExpires = 4102444800

// Store implements ports.StateStore using Redis.
// Each session is a JSON value; a ZSET index scored by expiry backs List.
//
// Keys under the prefix are partitioned so no session id can reach another
// kind of key: prefix+"data:"+id, prefix+"index" and (for Locker) prefix+"lock:"+id.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client so a Locker can share the connection pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

// Key returns the redis key holding a session.
func (s *Store) Key(sessionID string) string {
	return s.prefix + "data:" + sessionID
}

// IndexKey returns the redis key of the session index.
func (s *Store) IndexKey() string {
	return s.prefix + "index"
}

// Save persists the state to Redis.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = neverExpires
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.Key(sessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.IndexKey(), backend.Z{
		Score:  score,
		Member: sessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	val, err := s.client.Get(ctx, s.Key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.Completed == nil {
		state.Completed = make(map[string]bool)
	}
	return &state, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.Key(sessionID))
	pipe.ZRem(ctx, s.IndexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns live sessions, lazily pruning index entries whose TTL elapsed.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.IndexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.IndexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Ping checks connectivity; used by health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
