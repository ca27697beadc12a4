package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// CacheRepository keeps JSON documents in Redis under a namespace. Without a client every lookup
// misses and every write is dropped.
type CacheRepository struct {
	rdb       redis.UniversalClient
	namespace string
}

// NewCacheRepository wraps client. Keys are stored as "<namespace>:<key>".
func NewCacheRepository(client redis.UniversalClient, namespace string) *CacheRepository {
	if c, ok := client.(*redis.Client); ok && c == nil {
		client = nil
	}
	return &CacheRepository{rdb: client, namespace: strings.TrimSuffix(namespace, ":")}
}

func (r *CacheRepository) key(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + ":" + key
}

// Get decodes the document stored at key into dest, or returns ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.rdb == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("cache get %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode %q: %w", key, err)
	}
	return nil
}

// Set stores value at key for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.rdb == nil {
		return nil
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}
	return r.rdb.Set(ctx, r.key(key), doc, ttl).Err()
}

// Delete removes key. Deleting a missing key is not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, r.key(key)).Err()
}
