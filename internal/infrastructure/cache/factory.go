package cache

import (
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when a client is available and
// an in-memory store otherwise. The in-memory store only deduplicates within
// one process.
func NewIdempotencyStore(client *redis.Client, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, "")
	}
	logger.Warn("Redis unavailable, using in-memory idempotency store; duplicate handling is per process only")
	return NewInMemoryIdempotencyStore()
}
