package main

import (
	"flag"
	"log"
	"os"

	"RailScan/internal/di"
	"RailScan/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s redis=%t kafka=%t clickhouse=%t schedule=%t",
		cfg.Environment, cfg.Redis.Enabled, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.Schedule.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
