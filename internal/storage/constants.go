package db

import "time"

// DateLayout is the canonical run-date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Settings keys consumed by the views.
const (
	SettingTeaserN        = "teaserN"
	SettingCurrentRunDate = "current_run_date"
)

// DefaultTeaserN is the teaser size used when the teaserN key is absent.
const DefaultTeaserN = 5

// Run status values recorded by the publisher.
const (
	RunStatusSuccess = "success"
	RunStatusFail    = "fail"
)

// Database connection constants.
const (
	// ConnectionRetrySleep is the sleep duration between connection retries.
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection.
	maxConnectionRetries = 10
)

// Database pool default constants.
const (
	defaultMaxConns          int32         = 25
	defaultMinConns          int32         = 5
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)
