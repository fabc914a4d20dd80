package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/example/danceschool-promos/internal/common"
	"github.com/example/danceschool-promos/internal/mailinglist"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("mailinglist-worker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	ops := common.StartOpsServer(cfg.OpsPort)
	defer ops.Shutdown(context.Background())

	readerFactory := func() *kafka.Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.ServiceName,
			Topic:   cfg.RegistrationsTopic,
		})
	}

	client := &mailinglist.Client{
		Endpoint: envOr("MAILINGLIST_ENDPOINT", "https://mailinglist.local/3.0"),
		APIKey:   os.Getenv("MAILINGLIST_API_KEY"),
		ListID:   os.Getenv("MAILINGLIST_LIST_ID"),
	}

	worker := mailinglist.Worker{
		ReaderFactory: readerFactory,
		Client:        client,
		Logger:        logger,
	}

	ops.SetReady(true)
	logger.Info().Msg("mailing list worker started")
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("mailing list worker stopped")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
