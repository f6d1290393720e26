package config

// Default values for configuration options — the "layer 0" of the
// defaults -> file -> env override chain, simplified to a single-profile
// server process.
const (
	defaultMaxRetriesDownload = 10
	defaultMaxRetriesUpload   = 10
	defaultInitialBackoffMs   = 30_000
	defaultMaxBackoffMs       = 300_000

	defaultDownloadTimeoutMs = 0 // unbounded; long downloads rely on context cancellation
	defaultUploadTimeoutMs   = 0
	defaultChunkSizeMB       = 32
	defaultUploadConcurrency = 3

	defaultMinExpectedSizeMB = 1

	defaultDownloadsDir = "downloads"

	defaultCourseCacheTTLMs = 5 * 60 * 1000

	defaultWakeupSchedule         = "0 2 * * *"
	defaultWakeupMaxAttempts      = 2
	defaultWakeupReattemptAfterMs = 90 * 60 * 1000

	defaultDatabasePath = "recording-pipeline.db"

	defaultLogLevel  = "info"
	defaultLogFormat = "auto"

	defaultServerAddr          = ":8080"
	defaultPrePublishDelayMs   = 30_000
)

// DefaultConfig returns a Config populated with all default values. Used as
// the starting point for TOML decoding (so unset fields keep their
// defaults) and as the fallback when no config file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxRetriesDownload: defaultMaxRetriesDownload,
			MaxRetriesUpload:   defaultMaxRetriesUpload,
			InitialBackoffMs:   defaultInitialBackoffMs,
			MaxBackoffMs:       defaultMaxBackoffMs,
		},
		Transfer: TransferConfig{
			DownloadTimeoutMs: defaultDownloadTimeoutMs,
			UploadTimeoutMs:   defaultUploadTimeoutMs,
			ChunkSizeMB:       defaultChunkSizeMB,
			UploadConcurrency: defaultUploadConcurrency,
		},
		Validation: ValidationConfig{
			MinExpectedSizeMB: defaultMinExpectedSizeMB,
		},
		Storage: StorageConfig{
			DownloadsDir: defaultDownloadsDir,
		},
		CourseResolve: CourseResolveConfig{
			CacheTTLMs: defaultCourseCacheTTLMs,
		},
		Wakeup: WakeupConfig{
			Schedule:         defaultWakeupSchedule,
			MaxAttempts:      defaultWakeupMaxAttempts,
			ReattemptAfterMs: defaultWakeupReattemptAfterMs,
		},
		Database: DatabaseConfig{
			Path: defaultDatabasePath,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Server: ServerConfig{
			Addr:              defaultServerAddr,
			PrePublishDelayMs: defaultPrePublishDelayMs,
		},
	}
}
