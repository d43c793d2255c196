package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voicetime/internal/config"
	"voicetime/internal/database"
	"voicetime/internal/discord"
	"voicetime/internal/server"
	"voicetime/internal/tracker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Create activity store and session tracker
	repository := database.NewRepository(db, cfg.QueryTimeout)
	sessionTracker := tracker.New(repository, logger)

	// Initialize Discord bot
	bot, err := discord.New(cfg.DiscordToken, cfg.CommandPrefix, sessionTracker, logger)
	if err != nil {
		logger.Fatal("failed to create Discord bot", zap.Error(err))
	}

	// Keepalive + metrics server
	httpServer := server.New(cfg.HTTPAddr, logger)
	httpServer.Start()

	// Start bot
	if err := bot.Start(); err != nil {
		logger.Fatal("failed to start bot", zap.Error(err))
	}
	defer bot.Stop()

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.Info("shutting down bot")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapConfig.Build()
}
