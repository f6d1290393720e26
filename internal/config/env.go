package config

import (
	"os"
	"strconv"
)

// Environment variable names, per spec §6's CLI/env surface.
const (
	EnvMaxRetriesDownload = "MAX_RETRIES_DOWNLOAD"
	EnvMaxRetriesUpload   = "MAX_RETRIES_UPLOAD"
	EnvInitialBackoffMs   = "INITIAL_BACKOFF_MS"
	EnvMaxBackoffMs       = "MAX_BACKOFF_MS"
	EnvDownloadTimeoutMs  = "DOWNLOAD_TIMEOUT_MS"
	EnvUploadTimeoutMs    = "UPLOAD_TIMEOUT_MS"
	EnvChunkSizeMB        = "CHUNK_SIZE_MB"
	EnvMinExpectedSizeMB  = "MIN_EXPECTED_SIZE_MB"
	EnvPrePublishDelayMs  = "PREPUBLISH_DELAY_MS"
	EnvDownloadsDir       = "DOWNLOADS_DIR"
	EnvDefaultCourseID    = "DEFAULT_COURSE_ID"
	EnvCoursesCacheMs     = "COURSES_CACHE_MS"
	EnvWebhookSecret      = "WEBHOOK_SECRET"
	EnvWebhookDisableSig  = "WEBHOOK_DISABLE_SIGNATURE"
	EnvConfigPath         = "RECORDING_PIPELINE_CONFIG"
)

// ApplyEnvOverrides mutates cfg in place with any recognized environment
// variables set in the process environment. Unset variables leave the
// existing (file- or default-derived) value untouched. A single pass
// since this process has no per-profile selection to resolve first.
func ApplyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.Retry.MaxRetriesDownload, EnvMaxRetriesDownload)
	overrideInt(&cfg.Retry.MaxRetriesUpload, EnvMaxRetriesUpload)
	overrideInt(&cfg.Retry.InitialBackoffMs, EnvInitialBackoffMs)
	overrideInt(&cfg.Retry.MaxBackoffMs, EnvMaxBackoffMs)

	overrideInt(&cfg.Transfer.DownloadTimeoutMs, EnvDownloadTimeoutMs)
	overrideInt(&cfg.Transfer.UploadTimeoutMs, EnvUploadTimeoutMs)
	overrideInt(&cfg.Transfer.ChunkSizeMB, EnvChunkSizeMB)

	overrideInt(&cfg.Validation.MinExpectedSizeMB, EnvMinExpectedSizeMB)

	overrideInt(&cfg.Server.PrePublishDelayMs, EnvPrePublishDelayMs)

	overrideString(&cfg.Storage.DownloadsDir, EnvDownloadsDir)

	overrideInt(&cfg.CourseResolve.DefaultCourseID, EnvDefaultCourseID)
	overrideInt(&cfg.CourseResolve.CacheTTLMs, EnvCoursesCacheMs)

	overrideString(&cfg.Webhook.Secret, EnvWebhookSecret)
	overrideBool(&cfg.Webhook.DisableSignature, EnvWebhookDisableSig)
}

func overrideString(dst *string, envVar string) {
	if v, ok := os.LookupEnv(envVar); ok && v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, envVar string) {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return
	}

	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func overrideBool(dst *bool, envVar string) {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return
	}

	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// ResolveConfigPath determines the config file path: cliPath if non-empty,
// else the env var, else "".
// An empty path means "run on defaults + env only" — there is no
// platform-default config path search, since this process typically
// runs from a single deployment descriptor.
func ResolveConfigPath(cliPath string) string {
	if cliPath != "" {
		return cliPath
	}

	return os.Getenv(EnvConfigPath)
}
