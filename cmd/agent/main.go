package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"imonitor/internal/agent"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	token := flag.String("token", getEnv("IMONITOR_TOKEN", ""), "node token issued at reservation")
	endpoint := flag.String("endpoint", getEnv("IMONITOR_ENDPOINT", ""), "collector base URL")
	interval := flag.Int("interval", getEnvInt("IMONITOR_INTERVAL", 5), "seconds between reports")
	displayFlag := flag.String("flag", getEnv("IMONITOR_FLAG", "🖥️"), "display attribute shown next to the node")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logger)

	cfg := agent.Config{
		Token:       *token,
		Endpoint:    *endpoint,
		IntervalSec: *interval,
		Flag:        *displayFlag,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent.NewReporter(cfg, log).Run(ctx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
