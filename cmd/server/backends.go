package main

import (
	"alcyxob/fitness-dashboard/internal/config"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/gateway/localauth"
	"alcyxob/fitness-dashboard/internal/gateway/supabase"
	"alcyxob/fitness-dashboard/internal/repository/memory"
	"alcyxob/fitness-dashboard/internal/repository/mongo"
	"alcyxob/fitness-dashboard/internal/repository/postgres"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// openStorage opens the local key-value store selected by cfg.Storage.Backend.
func openStorage(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger, "":
		return storage.NewBadgerStore(cfg.Storage.Path)
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendRedis:
		client, err := storage.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisStore(client, cfg.Storage.KeyPrefix), nil
	case config.BackendS3:
		return storage.NewS3Store(ctx, cfg.S3, cfg.Storage.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// openGateway builds the gateway handle selected by cfg.Gateway.Driver. It
// returns a nil handle, and no error, when the gateway is not configured.
func openGateway(ctx context.Context, cfg config.Config, kv storage.Store) (gateway.Gateway, error) {
	if !cfg.Gateway.IsConfigured() {
		slog.Warn("Gateway is not configured; data pages will show the configuration notice", "driver", cfg.Gateway.Driver)
		return nil, nil
	}

	switch cfg.Gateway.Driver {
	case config.DriverSupabase:
		gw, err := supabase.New(cfg.Gateway.URL, cfg.Gateway.APIKey, kv)
		if err != nil {
			return nil, err
		}
		return gw, nil

	case config.DriverMongo:
		secret, err := jwtSecret(cfg)
		if err != nil {
			return nil, err
		}
		client, err := mongo.ConnectDB(cfg.Gateway.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.Gateway.Database.Name)

		// Index creation runs in the background.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			if err := mongo.EnsureIndexes(ctx, db); err != nil {
				slog.Error("Failed to ensure MongoDB indexes", "error", err)
				return
			}
			slog.Info("Index creation process completed.")
		}()

		auth := localauth.New(mongo.NewMongoUserRepository(db), kv, secret, cfg.JWT.Expiration)
		return gateway.NewLocal(auth, mongo.NewMongoTableStore(db), func(ctx context.Context) error {
			slog.Info("Disconnecting MongoDB...")
			return mongo.DisconnectDB(ctx, client)
		}), nil

	case config.DriverPostgres:
		secret, err := jwtSecret(cfg)
		if err != nil {
			return nil, err
		}
		db, err := postgres.Connect(ctx, cfg.Gateway.Database.URI)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		auth := localauth.New(postgres.NewPostgresUserRepository(db), kv, secret, cfg.JWT.Expiration)
		return gateway.NewLocal(auth, postgres.NewPostgresTableStore(db), func(ctx context.Context) error {
			return db.Close()
		}), nil

	case config.DriverMemory:
		secret := cfg.JWT.Secret
		if secret == "" {
			// Data does not outlive the process, so neither need the tokens.
			secret = uuid.NewString()
		}
		store := memory.New()
		return gateway.NewLocal(localauth.New(store, kv, secret, cfg.JWT.Expiration), store, nil), nil

	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Gateway.Driver)
	}
}

func jwtSecret(cfg config.Config) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", fmt.Errorf("jwt.secret is required for the %s driver", cfg.Gateway.Driver)
	}
	return cfg.JWT.Secret, nil
}
