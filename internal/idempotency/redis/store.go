// Package redis keeps idempotency responses and request locks in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	goredis "github.com/redis/go-redis/v9"
)

const (
	responsePrefix = "idempotency:response:"
	lockPrefix     = "idempotency:lock:"
)

// Store keeps JSON-encoded responses under a per-key TTL.
type Store struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewStore returns a store whose entries expire after ttl; zero keeps them forever.
func NewStore(client goredis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	raw, err := s.client.Get(ctx, responsePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}

	var resp ports.StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotency response: %w", err)
	}
	return &resp, nil
}

// Save writes the response only if the key is not already stored.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode idempotency response: %w", err)
	}

	if err := s.client.SetNX(ctx, responsePrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

// Locker implements ports.KeyLocker with redislock.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker holds each lock for at most ttl.
func NewLocker(client goredis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{client: redislock.New(client), ttl: ttl}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, lockPrefix+key, l.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ports.ErrKeyLocked
		}
		return nil, fmt.Errorf("obtain idempotency lock: %w", err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release idempotency lock: %w", err)
		}
		return nil
	}, nil
}

// NewClient connects to addr and verifies the connection with PING.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
