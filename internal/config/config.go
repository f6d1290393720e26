// Package config implements TOML configuration loading, validation, and
// environment-variable overrides for the recording pipeline.
package config

import "time"

// Config is the top-level configuration structure for the pipeline process.
// It is decoded from a single TOML file and layered with environment
// variable overrides (see env.go) before use.
type Config struct {
	Retry        RetryConfig        `toml:"retry"`
	Transfer     TransferConfig     `toml:"transfer"`
	Validation   ValidationConfig   `toml:"validation"`
	Storage      StorageConfig      `toml:"storage"`
	CourseResolve CourseResolveConfig `toml:"course_resolve"`
	Webhook      WebhookConfig      `toml:"webhook"`
	Wakeup       WakeupConfig       `toml:"wakeup"`
	Database     DatabaseConfig     `toml:"database"`
	Logging      LoggingConfig      `toml:"logging"`
	Conferencing ConferencingConfig `toml:"conferencing"`
	ObjectStore  ObjectStoreConfig  `toml:"object_store"`
	Forum        ForumConfig        `toml:"forum"`
	License      LicenseConfig      `toml:"license"`
	Server       ServerConfig       `toml:"server"`
}

// RetryConfig controls the exponential backoff policy (spec §4.3, §6).
type RetryConfig struct {
	MaxRetriesDownload int    `toml:"max_retries_download"`
	MaxRetriesUpload   int    `toml:"max_retries_upload"`
	InitialBackoffMs   int    `toml:"initial_backoff_ms"`
	MaxBackoffMs       int    `toml:"max_backoff_ms"`
}

// TransferConfig controls the resumable download/upload engine.
type TransferConfig struct {
	DownloadTimeoutMs int `toml:"download_timeout_ms"`
	UploadTimeoutMs   int `toml:"upload_timeout_ms"`
	ChunkSizeMB       int `toml:"chunk_size_mb"`
	UploadConcurrency int `toml:"upload_concurrency"`
}

// ValidationConfig controls artifact-validation thresholds (spec §4.1).
type ValidationConfig struct {
	MinExpectedSizeMB int `toml:"min_expected_size_mb"`
}

// StorageConfig controls local temp storage for in-flight downloads.
type StorageConfig struct {
	DownloadsDir string `toml:"downloads_dir"`
}

// CourseResolveConfig controls the course resolver (spec §4.5).
type CourseResolveConfig struct {
	DefaultCourseID int `toml:"default_course_id"`
	CacheTTLMs      int `toml:"cache_ttl_ms"`
}

// WebhookConfig controls webhook admission (spec §4.6).
type WebhookConfig struct {
	Secret            string `toml:"secret"`
	DisableSignature  bool   `toml:"disable_signature"`
}

// WakeupConfig controls the preview wakeup scheduled job (spec §4.9).
type WakeupConfig struct {
	Schedule        string `toml:"schedule"` // cron-style "M H * * *", default "0 2 * * *"
	MaxAttempts     int    `toml:"max_attempts"`
	ReattemptAfterMs int   `toml:"reattempt_after_ms"`
}

// DatabaseConfig controls SQLite persistence.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "auto", "text", "json"
}

// ConferencingConfig configures the conferencing-provider HTTP client.
type ConferencingConfig struct {
	BaseURL      string `toml:"base_url"`
	TokenURL     string `toml:"token_url"`
	AccountID    string `toml:"account_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// ObjectStoreConfig configures the long-term object store HTTP client.
type ObjectStoreConfig struct {
	BaseURL     string `toml:"base_url"`
	BearerToken string `toml:"bearer_token"`
	RootFolder  string `toml:"root_folder_id"`
}

// ForumConfig configures the LMS forum/web-service client.
type ForumConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// LicenseConfig configures the external license-pool release hook.
type LicenseConfig struct {
	BaseURL     string `toml:"base_url"`
	BearerToken string `toml:"bearer_token"`
}

// ServerConfig controls the HTTP admission surface.
type ServerConfig struct {
	Addr           string `toml:"addr"`
	PrePublishDelayMs int `toml:"prepublish_delay_ms"`
}

// PrePublishDelay returns the configured pre-publish delay. A zero or
// negative value disables the delay (some deployments omit it entirely);
// the 30s default comes from DefaultConfig, not from this method.
func (c ServerConfig) PrePublishDelay() time.Duration {
	if c.PrePublishDelayMs <= 0 {
		return 0
	}

	return time.Duration(c.PrePublishDelayMs) * time.Millisecond
}
