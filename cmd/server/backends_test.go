package main

import (
	"alcyxob/fitness-dashboard/internal/config"
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	kv, err := openStorage(ctx, config.Config{Storage: config.StorageConfig{Backend: config.BackendMemory}})
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, kv)

	// An empty path keeps badger in memory.
	kv, err = openStorage(ctx, config.Config{Storage: config.StorageConfig{Backend: config.BackendBadger}})
	require.NoError(t, err)
	assert.IsType(t, &storage.BadgerStore{}, kv)
	require.NoError(t, kv.Close())

	_, err = openStorage(ctx, config.Config{Storage: config.StorageConfig{Backend: "floppy"}})
	assert.Error(t, err)
}

func TestOpenGatewayNotConfigured(t *testing.T) {
	gw, err := openGateway(context.Background(), config.Config{Gateway: config.GatewayConfig{Driver: config.DriverSupabase}}, storage.NewMemoryStore())
	require.NoError(t, err)
	assert.Nil(t, gw)
}

func TestOpenGatewaySelfHostedNeedsSecret(t *testing.T) {
	cfg := config.Config{Gateway: config.GatewayConfig{
		Driver:   config.DriverMongo,
		Database: config.DatabaseConfig{URI: "mongodb://localhost:27017"},
	}}
	_, err := openGateway(context.Background(), cfg, storage.NewMemoryStore())
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestOpenGatewayMemory(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Gateway: config.GatewayConfig{Driver: config.DriverMemory},
		JWT:     config.JWTConfig{Expiration: time.Hour},
	}
	gw, err := openGateway(ctx, cfg, storage.NewMemoryStore())
	require.NoError(t, err)
	require.NotNil(t, gw)
	defer gw.Close(ctx)

	creds := gateway.Credentials{Email: "lifter@example.com", Password: "secret1"}
	require.NoError(t, gw.Auth().SignUp(ctx, creds))
	require.NoError(t, gw.Auth().SignInWithPassword(ctx, creds))

	sess, err := gw.Auth().GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)

	var workouts []domain.Workout
	require.NoError(t, gw.Table(domain.TableWorkouts).SelectAll(ctx, &workouts))
	assert.Empty(t, workouts)

	require.NoError(t, gw.Auth().SignOut(ctx))
	err = gw.Table(domain.TableWorkouts).SelectAll(ctx, &workouts)
	assert.ErrorIs(t, err, gateway.ErrNotAuthenticated)
}
