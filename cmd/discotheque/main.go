package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"discotheque/internal/config"
	"discotheque/internal/database"
	"discotheque/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	root := flag.String("root", "", "library root directory (overrides config)")
	host := flag.String("host", "", "listen host (overrides config)")
	port := flag.String("port", "", "listen port (overrides config)")
	certFile := flag.String("cert", "", "TLS certificate file")
	keyFile := flag.String("key", "", "TLS key file")
	flag.Parse()

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.WithError(err).Warn("Could not load .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	if *root != "" {
		cfg.Library.RootPath = *root
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *certFile != "" || *keyFile != "" {
		cfg.Server.CertFile = *certFile
		cfg.Server.KeyFile = *keyFile
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger, logFile, err := cfg.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("Error configuring logger")
	}
	defer logFile.Close()

	if info, err := os.Stat(cfg.Library.RootPath); err != nil || !info.IsDir() {
		logger.WithField("library_path", cfg.Library.RootPath).Fatal("Library directory does not exist. Please create it and add your music files.")
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	musicServer, err := server.NewMusicServer(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating music server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := musicServer.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped")
		return
	}
	logger.Info("Received shutdown signal")
}
