package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	gateway core.Gateway,
	classifier core.ExternalClassifier,
	reputation core.ReputationStore,
) error {
	defer logger.Sync()

	// Start the gateway
	if err := gateway.Start(); err != nil {
		logger.Fatal("Failed to start gateway", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := gateway.Stop(); err != nil {
		logger.Error("Failed to stop gateway", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier client", zap.Error(err))
		}
	}
	if stopper, ok := reputation.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	return nil
}
