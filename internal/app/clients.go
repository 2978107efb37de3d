package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/wellslab/s4m-api/internal/clients/redis"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/storage"
)

type Clients struct {
	Cache   redis.Cache
	Storage storage.Provider
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis is optional; without it value lookups just hit the database.
	var cache redis.Cache
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := redis.NewCache(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		cache = c
	}

	provider, err := storage.NewProvider(log)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return Clients{}, fmt.Errorf("init storage provider: %w", err)
	}

	return Clients{
		Cache:   cache,
		Storage: provider,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
