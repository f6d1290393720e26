package config

import "fmt"

// Validate checks the resolved configuration for internally-consistent,
// safe values: fail fast and loud on a value that would produce
// silently-wrong behavior at runtime rather than a clear error at
// startup.
func Validate(cfg *Config) error {
	if cfg.Retry.MaxRetriesDownload < 0 {
		return fmt.Errorf("retry.max_retries_download must be >= 0")
	}

	if cfg.Retry.MaxRetriesUpload < 0 {
		return fmt.Errorf("retry.max_retries_upload must be >= 0")
	}

	if cfg.Retry.InitialBackoffMs <= 0 {
		return fmt.Errorf("retry.initial_backoff_ms must be > 0")
	}

	if cfg.Retry.MaxBackoffMs < cfg.Retry.InitialBackoffMs {
		return fmt.Errorf("retry.max_backoff_ms must be >= retry.initial_backoff_ms")
	}

	if cfg.Transfer.ChunkSizeMB <= 0 {
		return fmt.Errorf("transfer.chunk_size_mb must be > 0")
	}

	if cfg.Transfer.UploadConcurrency <= 0 {
		return fmt.Errorf("transfer.upload_concurrency must be > 0")
	}

	if cfg.Validation.MinExpectedSizeMB <= 0 {
		return fmt.Errorf("validation.min_expected_size_mb must be > 0")
	}

	if cfg.Storage.DownloadsDir == "" {
		return fmt.Errorf("storage.downloads_dir must not be empty")
	}

	if cfg.Wakeup.MaxAttempts <= 0 {
		return fmt.Errorf("wakeup.max_attempts must be > 0")
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	switch cfg.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format must be one of auto, text, json (got %q)", cfg.Logging.Format)
	}

	return nil
}
