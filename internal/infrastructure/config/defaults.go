package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultMetricsPort     = "9091"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultWorkerPoll      = time.Second
	DefaultWorkerBatch     = 1
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultFetchTimeout    = 2 * time.Minute
	DefaultDownloadTimeout = time.Minute
)
