package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore remembers the response of a write under a client supplied key so that a retried
// request can be answered without repeating the write. Keys are scoped by owner, so two students
// reusing the same key never see each other's responses.
type IdempotencyStore struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewIdempotencyStore builds a store. A nil repo disables it.
func NewIdempotencyStore(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyStore{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
}

// Active reports whether replays can be served.
func (s *IdempotencyStore) Active() bool {
	return s != nil && s.repo != nil
}

func idempotencyKey(scope, owner, key string) string {
	return strings.Join([]string{"idempotency", scope, owner, key}, ":")
}

// Replay loads the remembered response for (scope, owner, key) into dest. It reports false when
// nothing was remembered, when the key is blank, or when the backend is unreachable; backend errors
// are returned alongside so callers may log them, but never block the write.
func (s *IdempotencyStore) Replay(ctx context.Context, scope, owner, key string, dest interface{}) (bool, error) {
	key = strings.TrimSpace(key)
	if !s.Active() || key == "" {
		return false, nil
	}
	started := time.Now()
	err := s.repo.Get(ctx, idempotencyKey(scope, owner, key), dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(started))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("idempotency lookup failed", zap.String("scope", scope), zap.String("owner", owner), zap.Error(err))
		return false, err
	}
}

// Remember stores value for later replays.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, owner, key string, value interface{}) error {
	key = strings.TrimSpace(key)
	if !s.Active() || key == "" {
		return nil
	}
	started := time.Now()
	err := s.repo.Set(ctx, idempotencyKey(scope, owner, key), value, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(started))
	if err != nil {
		s.logger.Warn("idempotency store failed", zap.String("scope", scope), zap.String("owner", owner), zap.Error(err))
	}
	return err
}

// Forget drops a remembered response.
func (s *IdempotencyStore) Forget(ctx context.Context, scope, owner, key string) error {
	if !s.Active() {
		return nil
	}
	return s.repo.Delete(ctx, idempotencyKey(scope, owner, strings.TrimSpace(key)))
}
