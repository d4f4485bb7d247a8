package database

import (
	"context"
	"fmt"
	"time"

	"inventory-catalog/internal/config"
	"inventory-catalog/internal/repository"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoService owns the MongoDB client backing STORAGE_DRIVER=mongo
type MongoService struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects, pings the primary with retries and ensures the catalog indexes
func ConnectMongo(ctx context.Context, cfg config.MongoConfig, attempts int, logger *zap.Logger) (*MongoService, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(max(attempts-1, 0)), retry.NewExponential(500*time.Millisecond))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			logger.Warn("MongoDB not reachable yet", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongodb after %d attempts: %w", attempt, err)
	}

	db := client.Database(cfg.Database)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to MongoDB", zap.String("database", cfg.Database))
	return &MongoService{client: client, db: db}, nil
}

func (m *MongoService) Database() *mongo.Database {
	return m.db
}

// Health pings the primary. The "status" key is "up" or "down".
func (m *MongoService) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	return map[string]string{"status": "up", "database": m.db.Name()}
}

func (m *MongoService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
