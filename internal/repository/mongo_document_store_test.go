package repository

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestDB spins up a fresh MongoDB container and returns the database
// along with a cleanup function.
func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongodbContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("mongodb container unavailable: %s", err)
	}

	endpoint, err := mongodbContainer.ConnectionString(ctx)
	require.NoError(t, err)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	require.NoError(t, err)

	return mongoClient.Database("liftlog_test"), func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Warnf("failed to disconnect mongo: %v", err)
		}
		if err := mongodbContainer.Terminate(ctx); err != nil {
			log.Warnf("failed to terminate container: %v", err)
		}
	}
}

func TestMongoDocumentStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMongoDocumentStore(db)
	require.NoError(t, store.EnsureIndexes(context.Background()))

	exerciseDocumentStore(t, store)
}
