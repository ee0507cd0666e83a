package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB dials MongoDB and verifies the connection with a ping.
func ConnectDB(ctx context.Context, uri string, log logrus.FieldLogger) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri not set")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	log.Info("Connected to MongoDB")
	return client, nil
}

func CloseDBConnection(ctx context.Context, client *mongo.Client, log logrus.FieldLogger) {
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("Error closing database connection")
		return
	}
	log.Info("MongoDB connection closed")
}
