package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aruiz/llm-phish-triage/internal/adapters/gateway"
	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/di"
	"github.com/aruiz/llm-phish-triage/internal/factory"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run classifies a single message from a file or stdin and prints the
// report.
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	pipeline *core.Pipeline,
	gatewayFactory *factory.GatewayFactory,
) error {
	defer logger.Sync()

	cli, err := gateway.NewCliGateway(pipeline, logger, flags.Verbose, gatewayFactory.AccountContext())
	if err != nil {
		return fmt.Errorf("failed to create CLI gateway: %w", err)
	}

	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	result, err := cli.ProcessMessage(context.Background(), reader)
	if err != nil {
		logger.Error("Failed to process message", zap.Error(err))
		return err
	}

	if result.Classification == core.ClassificationPhishing {
		os.Exit(2)
	}
	return nil
}
