// Package main is the Lambda entrypoint for the ingestion handler: it
// reacts to S3 "Object Created" notifications by submitting a
// MediaConvert job and writing the initial processing record.
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
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"

	"transcodetracker/internal/config"
	"transcodetracker/internal/handler"
	"transcodetracker/internal/metrics"
	"transcodetracker/internal/store"
	"transcodetracker/internal/transcoder"
)

func main() {
	cfg, err := config.LoadIngest()
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

	profile := transcoder.DefaultProfile()
	if cfg.EncodingProfilePath != "" {
		profile, err = transcoder.LoadProfile(cfg.EncodingProfilePath)
		if err != nil {
			logger.Error("invalid encoding profile", "error", err)
			os.Exit(1)
		}
	}

	// Clients are created once per process and reused across warm
	// invocations.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	st := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.TableName, logger)
	sub := transcoder.NewMediaConvert(mediaconvert.NewFromConfig(awsCfg), cfg.MediaConvertRoleARN, profile, logger)
	collector := metrics.NewCollector()
	h := handler.NewIngest(st, sub, profile, cfg.DestinationBucket, logger, collector)

	logger.Info("ingest handler ready", "table", cfg.TableName, "destination", cfg.DestinationBucket)

	lambda.Start(func(ctx context.Context, e events.CloudWatchEvent) (handler.Result, error) {
		res, err := h.Handle(ctx, e)
		if res.Outcome == handler.Retry {
			// Failing the invocation makes the substrate redeliver.
			return res, err
		}
		logger.Debug("invocation finished", "outcome", res.Outcome.String(), "metrics", collector.Snapshot())
		return res, nil
	})
}
