// Package config loads handler configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Environment variable names. The two handlers historically read the
// table name from different variables; both are kept.
const (
	EnvDestinationBucket = "DESTINATION_BUCKET"
	EnvMediaConvertRole  = "MEDIACONVERT_ROLE_ARN"
	EnvIngestTable       = "TABLE_NAME"
	EnvReconcileTable    = "TRANSCODE_JOBS_TABLE"
	EnvEncodingProfile   = "ENCODING_PROFILE"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFile           = "LOG_FILE"
)

// Ingest holds everything the ingestion handler needs.
type Ingest struct {
	DestinationBucket   string
	MediaConvertRoleARN string
	TableName           string
	EncodingProfilePath string // optional; empty means built-in default
	LogLevel            slog.Level
	LogFile             string // optional secondary log sink
}

// Reconcile holds everything the reconciliation handler needs.
type Reconcile struct {
	TableName string
	LogLevel  slog.Level
	LogFile   string
}

// LoadIngest reads the ingestion handler configuration. Missing required
// values fail immediately at cold start; nothing is silently defaulted.
func LoadIngest() (Ingest, error) {
	var cfg Ingest
	var err error

	if cfg.DestinationBucket, err = requireEnv(EnvDestinationBucket); err != nil {
		return Ingest{}, err
	}
	if cfg.MediaConvertRoleARN, err = requireEnv(EnvMediaConvertRole); err != nil {
		return Ingest{}, err
	}
	if cfg.TableName, err = requireEnv(EnvIngestTable); err != nil {
		return Ingest{}, err
	}

	cfg.EncodingProfilePath = os.Getenv(EnvEncodingProfile)
	cfg.LogLevel = parseLogLevel(os.Getenv(EnvLogLevel))
	cfg.LogFile = os.Getenv(EnvLogFile)
	return cfg, nil
}

// LoadReconcile reads the reconciliation handler configuration.
func LoadReconcile() (Reconcile, error) {
	table, err := requireEnv(EnvReconcileTable)
	if err != nil {
		return Reconcile{}, err
	}
	return Reconcile{
		TableName: table,
		LogLevel:  parseLogLevel(os.Getenv(EnvLogLevel)),
		LogFile:   os.Getenv(EnvLogFile),
	}, nil
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing required environment variable %s", key)
	}
	return v, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
