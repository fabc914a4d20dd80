package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	OpsPort            int
	DatabaseURL        string
	KafkaBrokers       []string
	EmailTopic         string
	RegistrationsTopic string
	OTLPEndpoint       string
	ServiceName        string

	// Promotion run settings for the dispatcher service.
	RunAt         string
	RunOnce       bool
	WindowDays    int
	DanceTypeName string
	LevelName     string
}

func LoadConfig(service string) (*Config, error) {
	cfg := &Config{ServiceName: service}

	opsPort, err := getEnvInt("OPS_PORT", 9090)
	if err != nil {
		return nil, err
	}
	cfg.OpsPort = opsPort

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	} else {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	cfg.EmailTopic = getEnv("EMAIL_TOPIC", "dispatch.email")
	cfg.RegistrationsTopic = getEnv("REGISTRATIONS_TOPIC", "registrations")

	cfg.RunAt = getEnv("PROMO_RUN_AT", "13:30")
	cfg.RunOnce = getEnv("PROMO_RUN_ONCE", "") != ""

	windowDays, err := getEnvInt("PROMO_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cfg.WindowDays = windowDays

	cfg.DanceTypeName = getEnv("PROMO_DANCE_TYPE", "Lindy Hop")
	cfg.LevelName = getEnv("PROMO_LEVEL", "Level 1")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}
