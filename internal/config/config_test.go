package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Run("negative retries", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retry.MaxRetriesDownload = -1
		assert.Error(t, Validate(cfg))
	})

	t.Run("max backoff below initial", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retry.MaxBackoffMs = 10
		cfg.Retry.InitialBackoffMs = 100
		assert.Error(t, Validate(cfg))
	})

	t.Run("bad log format", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Format = "xml"
		assert.Error(t, Validate(cfg))
	})
}

func TestLoadOrDefault_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, defaultMaxRetriesDownload, cfg.Retry.MaxRetriesDownload)
}

func TestLoad_DecodesTOMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[retry]
max_retries_download = 5

[webhook]
secret = "s3cr3t"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retry.MaxRetriesDownload)
	assert.Equal(t, "s3cr3t", cfg.Webhook.Secret)
	// Untouched fields keep their defaults.
	assert.Equal(t, defaultChunkSizeMB, cfg.Transfer.ChunkSizeMB)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("MAX_RETRIES_DOWNLOAD", "7")
	t.Setenv("WEBHOOK_DISABLE_SIGNATURE", "true")
	t.Setenv("DEFAULT_COURSE_ID", "42")

	ApplyEnvOverrides(cfg)

	assert.Equal(t, 7, cfg.Retry.MaxRetriesDownload)
	assert.True(t, cfg.Webhook.DisableSignature)
	assert.Equal(t, 42, cfg.CourseResolve.DefaultCourseID)
}

func TestServerConfig_PrePublishDelay(t *testing.T) {
	c := ServerConfig{PrePublishDelayMs: 30_000}
	assert.Equal(t, 30_000_000_000, int(c.PrePublishDelay()))

	zero := ServerConfig{}
	assert.Equal(t, int64(0), int64(zero.PrePublishDelay()))
}
