package service

import (
	"toolx/pkg/logger"
	"toolx/repository"

	"github.com/redis/go-redis/v9"
)

func newRedisState(client redis.UniversalClient) *repository.RedisStateStore {
	return repository.NewRedisStateStore(client, "toolx:", logger.NewNop())
}
