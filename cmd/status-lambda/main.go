// Package main is the Lambda entrypoint for the reconciliation handler:
// it reacts to MediaConvert job state change notifications and applies
// terminal status updates to the matching job record.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"transcodetracker/internal/config"
	"transcodetracker/internal/handler"
	"transcodetracker/internal/metrics"
	"transcodetracker/internal/store"
)

func main() {
	cfg, err := config.LoadReconcile()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, cleanup := config.SetupLogger(cfg.LogLevel, cfg.LogFile)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log sink", "error", err)
		}
	}()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	st := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.TableName, logger)
	collector := metrics.NewCollector()
	h := handler.NewReconcile(st, logger, collector)

	logger.Info("reconcile handler ready", "table", cfg.TableName)

	lambda.Start(func(ctx context.Context, e events.CloudWatchEvent) error {
		res, err := h.Handle(ctx, e)
		if res.Outcome == handler.Retry {
			return err
		}
		logger.Debug("invocation finished", "outcome", res.Outcome.String(), "metrics", collector.Snapshot())
		return nil
	})
}
