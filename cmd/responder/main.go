package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/whisper/chatroom/internal/bot"
	"github.com/whisper/chatroom/internal/config"
	"github.com/whisper/chatroom/internal/logging"
	"github.com/whisper/chatroom/internal/messaging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadResponder()
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
	log = log.Named("responder")

	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.Name = "chatroom-responder"

	natsClient, err := messaging.NewNATSClient(natsConfig, log.Named("nats"))
	if err != nil {
		log.Fatal("failed to connect to NATS", zap.Error(err))
	}

	selector := bot.NewDefaultSelector(cfg.BotSeed)
	err = natsClient.ServeBotReplies(func(data []byte) ([]byte, error) {
		return bot.HandleRequest(selector, data)
	})
	if err != nil {
		log.Fatal("failed to subscribe to bot replies", zap.Error(err))
	}

	log.Info("bot responder running",
		zap.String("nats_url", natsConfig.URL),
		zap.String("subject", messaging.SubjectBotReply))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal, shutting down", zap.String("signal", sig.String()))

	if err := natsClient.StopBotReplies(); err != nil {
		log.Warn("stop bot replies", zap.Error(err))
	}
	natsClient.Close()
}
