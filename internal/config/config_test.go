package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setIngestEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDestinationBucket, "dest-bucket")
	t.Setenv(EnvMediaConvertRole, "arn:aws:iam::123456789012:role/transcode")
	t.Setenv(EnvIngestTable, "transcode-jobs")
}

func TestLoadIngest(t *testing.T) {
	setIngestEnv(t)
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadIngest()
	require.NoError(t, err)

	assert.Equal(t, "dest-bucket", cfg.DestinationBucket)
	assert.Equal(t, "arn:aws:iam::123456789012:role/transcode", cfg.MediaConvertRoleARN)
	assert.Equal(t, "transcode-jobs", cfg.TableName)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Empty(t, cfg.EncodingProfilePath)
}

func TestLoadIngestFailsFastOnMissingValues(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{"destination bucket", EnvDestinationBucket},
		{"role arn", EnvMediaConvertRole},
		{"table name", EnvIngestTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setIngestEnv(t)
			t.Setenv(tt.missing, "")

			_, err := LoadIngest()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing, "the error names the missing variable")
		})
	}
}

func TestLoadReconcile(t *testing.T) {
	t.Setenv(EnvReconcileTable, "transcode-jobs")

	cfg, err := LoadReconcile()
	require.NoError(t, err)
	assert.Equal(t, "transcode-jobs", cfg.TableName)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadReconcileFailsFastOnMissingTable(t *testing.T) {
	t.Setenv(EnvReconcileTable, "")

	_, err := LoadReconcile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvReconcileTable)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}
