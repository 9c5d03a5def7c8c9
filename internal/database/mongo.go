package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	usersCollection = "users"
	pingTimeout     = 5 * time.Second
	connectRetries  = 5
)

// ConnectMongoDB establishes a connection to MongoDB and returns the client.
// The initial ping is retried with exponential backoff so the service can
// start alongside a database that is still booting.
func ConnectMongoDB(ctx context.Context, uri string, logger *zap.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect MongoDB: %w", err)
	}

	backoff := retry.WithMaxRetries(connectRetries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := Ping(ctx, client); err != nil {
			logger.Warn("MongoDB ping failed", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB")
	return client, nil
}

// Ping checks that the primary is reachable.
func Ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// GetUserCollection returns the MongoDB collection for users.
func GetUserCollection(client *mongo.Client, dbName string) *mongo.Collection {
	return client.Database(dbName).Collection(usersCollection)
}
