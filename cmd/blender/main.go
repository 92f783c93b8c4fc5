// Package main provides the entry point for the Daily Blend bot.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/di"
	"github.com/dailyblend/blender/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		var missing *config.MissingVariableError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, missing.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	// Create DI container
	injector := di.NewContainer(cfg)

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap bot: %v\n", err)
		_ = di.Shutdown(injector)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// Handles implement do.Shutdownable; the container closes them in
	// reverse dependency order.
	if err := di.Shutdown(injector); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Blend machine off")
}
