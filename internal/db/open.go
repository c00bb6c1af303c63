package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/config"
)

// Open builds the KeyValueStore selected by cfg.StoreBackend. The returned
// close function releases any client connection.
func Open(cfg *config.Config) (KeyValueStore, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		log.WithField("quota_bytes", cfg.StorageQuotaBytes).Info("Using in-memory store")
		return NewMemoryStore(cfg.StorageQuotaBytes), func() error { return nil }, nil
	case config.BackendMongo:
		client, err := ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(log.Fields{"db": cfg.MongoDB, "collection": cfg.MongoCollection}).Info("Connected to MongoDB")
		coll := client.Database(cfg.MongoDB).Collection(cfg.MongoCollection)
		return NewMongoStore(coll), func() error { return client.Disconnect(context.Background()) }, nil
	case config.BackendRedis:
		client, err := ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")
		return NewRedisStore(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
