// Command trove-stream is an AWS Lambda function that publishes entity
// lifecycle events from DynamoDB Streams to Kafka.
//
// Configuration comes from the file named by TROVE_CONFIG (optional) and
// TROVE_* environment variables.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/trove/config"
)

// shutdownTimeout bounds the final Kafka flush after SIGTERM.
const shutdownTimeout = 500 * time.Millisecond

func main() {
	cfg, err := config.Load(os.Getenv("TROVE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, nil)

	// Every table carrying the configured prefix is published.
	handler, closeFn, err := config.NewStreamHandler(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build stream handler", "error", err)
		os.Exit(1)
	}

	// lambda.Start never returns; the writer is closed when the runtime
	// signals shutdown.
	lambda.StartWithOptions(handler.HandleChanges,
		lambda.WithEnableSIGTERM(shutdown(closeFn, logger)),
	)
}

// shutdown returns the SIGTERM hook that flushes and closes the publisher.
func shutdown(closeFn config.CloseFunc, logger *slog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := closeFn(ctx); err != nil {
			logger.Error("failed to close publisher", "error", err)
			return
		}
		logger.Info("publisher closed")
	}
}
