package cache

import (
	"context"
	"errors"
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a cache entry is not found
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned when a cache entry has expired
	ErrExpired = errors.New("cache entry expired")
)

// Repository is a prediction cache that owns a background cleanup task
type Repository interface {
	core.CacheRepository

	// Stop ends the cleanup task and releases the backing store
	Stop()
}

// startCleanupTask runs cleanup every freq until stopCh closes. A non-positive
// freq disables the task.
func startCleanupTask(freq time.Duration, cleanup func(context.Context) error, logger *zap.Logger, stopCh <-chan struct{}) {
	if freq <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(freq)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := cleanup(context.Background()); err != nil {
					logger.Error("Failed to clean up cache", zap.Error(err))
				}
			case <-stopCh:
				return
			}
		}
	}()
}
