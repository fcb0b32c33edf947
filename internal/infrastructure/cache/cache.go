package cache

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store caches read-model responses in Redis. Entries are namespaced by a
// generation counter so one INCR invalidates every key of a namespace.
// A Store with a nil client is a valid no-op cache.
type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "cache"
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *Store) enabled() bool {
	return s != nil && s.rdb != nil && s.ttl > 0
}

func (s *Store) generationKey(namespace string) string {
	return fmt.Sprintf("%s:%s:gen", s.prefix, namespace)
}

// Key builds the cache key for parts under the namespace's current generation.
func (s *Store) Key(ctx context.Context, namespace string, parts ...string) (string, error) {
	if !s.enabled() {
		return "", nil
	}
	gen, err := s.rdb.Get(ctx, s.generationKey(namespace)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s:g%d:%x", s.prefix, namespace, gen, sum[:]), nil
}

// Get returns the cached bytes for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if !s.enabled() || key == "" {
		return nil, false
	}
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return bs, true
}

// Set stores value under key with the store's TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if !s.enabled() || key == "" {
		return nil
	}
	return s.rdb.SetEx(ctx, key, value, s.ttl).Err()
}

// Invalidate bumps the namespace generation; old entries expire on their own.
func (s *Store) Invalidate(ctx context.Context, namespace string) error {
	if !s.enabled() {
		return nil
	}
	return s.rdb.Incr(ctx, s.generationKey(namespace)).Err()
}
