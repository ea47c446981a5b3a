package adapter

import (
	"context"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CacheLocker implements domain.Locker with SETNX and an owner token, so a
// lock that expired and was taken by someone else is never released by the
// previous holder.
type CacheLocker struct {
	cache domain.Cache
}

func NewCacheLocker(cache domain.Cache) domain.Locker {
	return &CacheLocker{cache: cache}
}

func (l *CacheLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	owner := uuid.NewString()
	ok, err := l.cache.SetNX(ctx, key, owner, ttl)
	if err != nil || !ok {
		return nil, false, err
	}

	release := func(ctx context.Context) error {
		released, err := l.cache.CompareAndDelete(ctx, key, owner)
		if err != nil {
			return err
		}
		if !released {
			logger.Get().Warn("Lock expired before release", zap.String("key", key))
		}
		return nil
	}
	return release, true, nil
}
