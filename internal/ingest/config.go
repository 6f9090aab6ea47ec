package ingest

import "time"

// Config contains configuration options that control how catalog
// candidates are ingested.
type Config struct {
	// Controls the number of workers that can perform ingestions. Reducing
	// to 1 means one download at a time, which keeps batch processing
	// strictly in page order.
	// Caution should be taken to not increase this value too high, as
	// ingestion involves talking to external APIs which may impose
	// rate limits.
	IngestionParallelism int `yaml:"parallelism" env:"INGEST_PARALLELISM" env-default:"1"`

	// When non-zero, the service runs a scheduled batch (with default
	// catalog parameters) every interval while running. Zero disables
	// the schedule entirely; batches then only run on demand.
	ScheduleIntervalSeconds int `yaml:"schedule_interval_seconds" env:"INGEST_SCHEDULE_INTERVAL" env-default:"0"`

	// Per-rendition download timeout. Expiry is reported as a download
	// failure for that candidate, not a crash.
	DownloadTimeoutSeconds int `yaml:"download_timeout_seconds" env:"INGEST_DOWNLOAD_TIMEOUT" env-default:"120"`
}

func (config *Config) ScheduleInterval() time.Duration {
	return time.Duration(config.ScheduleIntervalSeconds) * time.Second
}

func (config *Config) DownloadTimeout() time.Duration {
	if config.DownloadTimeoutSeconds <= 0 {
		return time.Minute * 2
	}

	return time.Duration(config.DownloadTimeoutSeconds) * time.Second
}
