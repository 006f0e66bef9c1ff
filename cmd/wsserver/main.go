package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/whisper/chatroom/internal/app"
	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/config"
	"github.com/whisper/chatroom/internal/gateway"
	"github.com/whisper/chatroom/internal/logging"
	"github.com/whisper/chatroom/internal/messaging"
	"github.com/whisper/chatroom/internal/ratelimit"
	"github.com/whisper/chatroom/internal/session"
	"github.com/whisper/chatroom/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// --- Bot ---
	var responder bot.Responder = bot.NewDefaultSelector(cfg.BotSeed)
	var natsClient *messaging.NATSClient
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Name = "chatroom-" + cfg.ServerName

		natsClient, err = messaging.NewNATSClient(natsConfig, log.Named("nats"))
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		responder = bot.NewRemoteResponder(natsClient, responder, cfg.BotTimeout, log.Named("bot"))
	}

	// --- Redis ---
	var (
		presence     gateway.Presence
		sessionStore *session.Store
	)
	if cfg.RedisAddr != "" {
		sessionStore, err = session.NewStore(cfg.RedisAddr, cfg.ServerName)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		presence = sessionStore
	}

	log.Info("chatroom websocket server starting",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Int("worker_pool", cfg.WorkerPoolSize),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("read_timeout", cfg.ReadTimeout),
		zap.Duration("write_timeout", cfg.WriteTimeout),
		zap.String("nats_url", cfg.NATSURL),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("server_name", cfg.ServerName),
		zap.Duration("bot_delay", cfg.BotDelay))

	dispatcher := ws.NewMessageDispatcher(log.Named("dispatch"))
	server := ws.NewServer(cfg.WS(), log.Named("ws"), dispatcher.Dispatch)
	if sessionStore != nil {
		server.SetLimiter(ratelimit.NewLimiter(sessionStore.Client(), log.Named("ratelimit")))
	}

	gw := gateway.New(server, app.Config{
		Responder: responder,
		Delay:     cfg.BotDelay,
	}, presence, log.Named("gateway"))
	gw.Register(dispatcher)
	server.SetOnConnect(gw.OnConnect)
	server.SetOnDisconnect(gw.OnDisconnect)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(); err != nil {
			log.Warn("shutdown error", zap.Error(err))
		}
		gw.Close()
		if natsClient != nil {
			natsClient.Close()
		}
		if sessionStore != nil {
			if err := sessionStore.Close(); err != nil {
				log.Warn("session store close error", zap.Error(err))
			}
		}
		_ = log.Sync()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
