package main

import (
	"context"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/example/danceschool-promos/internal/common"
	"github.com/example/danceschool-promos/internal/promo"
	"github.com/example/danceschool-promos/internal/school"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("promo-dispatcher")
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

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL must be provided")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	store := school.NewStore(pool)

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.EmailTopic,
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	dispatcher := &promo.Dispatcher{
		Catalog:   store,
		Vouchers:  store,
		Customers: store,
		Outbox:    &promo.KafkaOutbox{Writer: writer},
		DanceType: cfg.DanceTypeName,
		LevelName: cfg.LevelName,
		Window:    time.Duration(cfg.WindowDays) * 24 * time.Hour,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:    logger,
	}

	ops.SetReady(true)

	if cfg.RunOnce {
		if _, err := dispatcher.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("promotion run failed")
		}
		return
	}

	logger.Info().Str("run_at", cfg.RunAt).Msg("promo dispatcher started")
	for {
		next, err := promo.NextRun(time.Now(), cfg.RunAt)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid PROMO_RUN_AT")
		}
		logger.Info().Time("next_run", next).Msg("waiting for next scheduled run")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := dispatcher.Run(ctx); err != nil {
			// A failed run is retried naturally on the next schedule.
			logger.Error().Err(err).Msg("promotion run failed")
		}
	}
}
