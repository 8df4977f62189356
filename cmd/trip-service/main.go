package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yangakandeni/kwella/internal/shared/config"
	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/trip/bootstrap"
)

func main() {
	log := logger.NewLogger("trip-service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "config_load_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	log = logger.NewLoggerWithLevel("trip-service", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	bootstrap.Run(ctx, cfg, log)
}
