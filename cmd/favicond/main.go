package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iTrooz/favicon-cache/internal/config"
	"github.com/iTrooz/favicon-cache/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.Log.Apply(); err != nil {
		logrus.Fatalf("Invalid log configuration: %v", err)
	}

	if dump, err := cfg.Dump(); err != nil {
		logrus.Warnf("Failed to dump configuration: %v", err)
	} else {
		logrus.Debugf("Effective configuration:\n%s", dump)
	}

	srv, err := server.New(cfg)
	if err != nil {
		logrus.Fatalf("Failed to create favicon server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}
