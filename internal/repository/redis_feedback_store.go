package repository

import (
	"context"
	"fmt"
	"time"

	domrepo "FinSight/internal/domain/repository"
	pkgcache "FinSight/pkg/cache"
)

// RedisFeedbackStore keeps user feedback on insights and recommendations in
// Redis as JSON blobs. Feedback is advisory data; a bounded retention keeps
// the keyspace from growing without limit.
type RedisFeedbackStore struct {
	cache     pkgcache.Service
	retention time.Duration
}

type FeedbackOption func(*RedisFeedbackStore)

// WithRetention overrides how long feedback entries are kept.
func WithRetention(d time.Duration) FeedbackOption {
	return func(s *RedisFeedbackStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewRedisFeedbackStore(cache pkgcache.Service, opts ...FeedbackOption) *RedisFeedbackStore {
	s := &RedisFeedbackStore{
		cache:     cache,
		retention: 90 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisFeedbackStore) Put(ctx context.Context, key string, value any) error {
	if err := s.cache.Set(ctx, s.key(key), value, s.retention); err != nil {
		return fmt.Errorf("store feedback: %w", err)
	}
	return nil
}

func (s *RedisFeedbackStore) Get(ctx context.Context, key string, dest any) error {
	if err := s.cache.Get(ctx, s.key(key), dest); err != nil {
		if err == pkgcache.ErrCacheMiss {
			return fmt.Errorf("feedback %s not found", key)
		}
		return fmt.Errorf("load feedback: %w", err)
	}
	return nil
}

func (s *RedisFeedbackStore) key(k string) string {
	return pkgcache.GenerateKey("feedback", k)
}

var _ domrepo.FeedbackStore = (*RedisFeedbackStore)(nil)
