// Package config loads service configuration from environment variables.
// Binaries call godotenv first so a local .env file can supply them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/whisper/chatroom/internal/ws"
)

// Server configures the WebSocket gateway.
type Server struct {
	ListenAddr     string        `envconfig:"LISTEN_ADDR" default:":8080" validate:"required,hostname_port"`
	WorkerPoolSize int           `envconfig:"WORKER_POOL_SIZE" default:"256" validate:"min=1"`
	MaxConnections int           `envconfig:"MAX_CONNECTIONS" default:"100000" validate:"min=1"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`

	// Empty disables presence and connection rate limiting.
	RedisAddr string `envconfig:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	// Empty keeps the bot in-process.
	NATSURL    string `envconfig:"NATS_URL" validate:"omitempty,url"`
	ServerName string `envconfig:"SERVER_NAME"`

	BotDelay   time.Duration `envconfig:"BOT_DELAY" default:"1s" validate:"min=1ms"`
	BotSeed    uint64        `envconfig:"BOT_SEED" default:"0"` // 0 picks a random seed
	BotTimeout time.Duration `envconfig:"BOT_TIMEOUT" default:"500ms" validate:"min=1ms"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// Responder configures the NATS bot responder service.
type Responder struct {
	NATSURL  string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222" validate:"required,url"`
	BotSeed  uint64 `envconfig:"BOT_SEED" default:"0"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadServer reads and validates the gateway configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if cfg.ServerName == "" {
		cfg.ServerName, _ = os.Hostname()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "ws-1"
	}
	return cfg, nil
}

// LoadResponder reads and validates the responder configuration.
func LoadResponder() (Responder, error) {
	var cfg Responder
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// WS returns the transport settings.
func (c Server) WS() ws.ServerConfig {
	return ws.ServerConfig{
		ListenAddr:     c.ListenAddr,
		WorkerPoolSize: c.WorkerPoolSize,
		MaxConnections: c.MaxConnections,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
	}
}
