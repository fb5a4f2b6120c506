package main

import (
	"flag"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"imonitor/api"
	"imonitor/internal/config"
	"imonitor/internal/db"
	"imonitor/internal/events"
	"imonitor/internal/registry"
	"imonitor/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to INI configuration file (environment variables take precedence)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logger)

	// 1. Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromINI(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Info("Configuration loaded")

	// 2. Initialize database
	gdb, err := db.Init(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Info("Database ready")

	// 3. Optional Redis event publisher
	publisher, err := events.NewPublisher(cfg.Redis, log)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	if publisher != nil {
		defer publisher.Close()
		log.Info("Event publisher connected")
	}

	// 4. Wire the registry behind the HTTP surface
	reg := registry.NewService(store.New(gdb), publisher, cfg, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	api.SetupRouter(r, reg, cfg)

	log.Infof("Collector listening on %s (public URL %s)", cfg.HTTPAddr, cfg.PublicURL)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
