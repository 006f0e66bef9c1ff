package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer_Defaults(t *testing.T) {
	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 256, cfg.WorkerPoolSize)
	assert.Equal(t, 100000, cfg.MaxConnections)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, time.Second, cfg.BotDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.BotTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.ServerName)

	wsCfg := cfg.WS()
	assert.Equal(t, cfg.ListenAddr, wsCfg.ListenAddr)
	assert.Equal(t, cfg.WorkerPoolSize, wsCfg.WorkerPoolSize)
}

func TestLoadServer_FromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("SERVER_NAME", "ws-7")
	t.Setenv("BOT_DELAY", "250ms")
	t.Setenv("BOT_SEED", "42")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, "ws-7", cfg.ServerName)
	assert.Equal(t, 250*time.Millisecond, cfg.BotDelay)
	assert.Equal(t, uint64(42), cfg.BotSeed)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadServer_Invalid(t *testing.T) {
	cases := map[string]string{
		"WORKER_POOL_SIZE": "0",
		"LISTEN_ADDR":      "not-an-address",
		"LOG_LEVEL":        "chatty",
		"BOT_DELAY":        "eventually",
		"NATS_URL":         "::nope",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := LoadServer()
			assert.Error(t, err)
		})
	}
}

func TestLoadResponder(t *testing.T) {
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("BOT_SEED", "7")

	cfg, err := LoadResponder()
	require.NoError(t, err)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, uint64(7), cfg.BotSeed)
	assert.Equal(t, "info", cfg.LogLevel)
}
