package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/ratelimit"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, sub := range []string{"serve", "ensure-schema"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestEnsureSchema_Memory(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"ensure-schema"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "schema is up to date")
}

func TestJWTSecret(t *testing.T) {
	logger := zap.NewNop().Sugar()

	cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}
	a, err := jwtSecret(cfg, logger)
	require.NoError(t, err)
	b, err := jwtSecret(cfg, logger)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	cfg.Auth.JWTSecret = "configured"
	s, err := jwtSecret(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, "configured", s)

	_, err = jwtSecret(&config.Config{Store: config.StoreConfig{Driver: config.DriverMongo}}, logger)
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()
	cfg := config.RateLimitConfig{Max: 5, Window: time.Minute}

	l, closeFn := newLimiter(ctx, cfg, logger)
	assert.IsType(t, &ratelimit.LocalLimiter{}, l)
	closeFn()

	cfg.RedisURL = "://bad"
	l, closeFn = newLimiter(ctx, cfg, logger)
	assert.IsType(t, &ratelimit.LocalLimiter{}, l)
	closeFn()

	mr := miniredis.RunT(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	l, closeFn = newLimiter(ctx, cfg, logger)
	defer closeFn()
	require.IsType(t, &ratelimit.RedisLimiter{}, l)
	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Remaining)
}
