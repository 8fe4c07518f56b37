package server

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/repository"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

const connectTimeout = 10 * time.Second

// OpenStore connects the document store selected by STORE_DRIVER.
// The firebase app is only used by the firestore driver. The returned
// closer releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config, firebaseApp *firebase.App) (domain.DocumentStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreFirestore:
		if firebaseApp == nil {
			return nil, nil, fmt.Errorf("firestore store requires a firebase app")
		}
		client, err := firebaseApp.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get Firestore client: %w", err)
		}
		log.Info("✓ Firestore connected")
		return repository.NewFirestoreDocumentStore(client), func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Warn("error closing Firestore client")
			}
		}, nil

	case config.StoreMongo:
		return openMongoStore(ctx, cfg)

	case config.StoreSQLite:
		store, err := repository.OpenSQLiteDocumentStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.Store.SQLitePath).Info("✓ SQLite store opened")
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("error closing SQLite store")
			}
		}, nil

	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryDocumentStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}

func openMongoStore(ctx context.Context, cfg *config.Config) (domain.DocumentStore, func(), error) {
	ctxMongo, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	// Add OTEL monitor for MongoDB tracing
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	closer := func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("error disconnecting from MongoDB")
		}
	}

	// Ping MongoDB to verify connection
	if err := mongoClient.Ping(ctxMongo, nil); err != nil {
		closer()
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := repository.NewMongoDocumentStore(mongoClient.Database(cfg.MongoDB.Database))
	if err := store.EnsureIndexes(ctxMongo); err != nil {
		closer()
		return nil, nil, err
	}
	log.Info("✓ MongoDB connected")
	return store, closer, nil
}

// OpenRedis returns nil when REDIS_ADDR is unset.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		log.Info("REDIS_ADDR not set, caching and idempotency disabled")
		return nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})

	// Ping Redis to verify connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✓ Redis connected")
	return redisClient, nil
}

// OpenArchive returns a nil archive when S3_ENDPOINT is unset.
func OpenArchive(ctx context.Context, cfg *config.Config) (domain.SessionArchive, error) {
	if cfg.S3.Endpoint == "" {
		return nil, nil
	}
	s3Repo, err := repository.NewSeaweedS3Repository(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	log.WithField("bucket", cfg.S3.Bucket).Info("✓ S3 session archive ready")
	return s3Repo, nil
}
