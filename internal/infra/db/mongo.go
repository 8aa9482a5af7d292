package db

import (
	"context"
	"fmt"
	"time"

	"scheduled-mailer/internal/pkg/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(
		options.Client().
			ApplyURI(cfg.URI).
			SetConnectTimeout(cfg.ConnectTimeout).
			SetRetryWrites(true).
			SetRetryReads(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	var lastErr error
	for range connectAttempts {
		if lastErr = client.Ping(ctx, nil); lastErr == nil {
			return client, nil
		}
		select {
		case <-ctx.Done():
		case <-time.After(retryInterval):
			continue
		}
		break
	}

	_ = client.Disconnect(context.Background())
	return nil, fmt.Errorf("failed to ping mongo: %w", lastErr)
}
