package config

import "time"

// Application constants - hardcoded values for the tabprep service
const (
	// Application Info
	AppName    = "tabprep"
	AppVersion = "1.0.0"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultServerTimeout  = 15 * time.Second
	DefaultRequestTimeout = 60 * time.Second

	// File Paths (relative to working directory)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultArtifactsDir = "data/artifacts"
	DefaultOutputDir    = "data/output"

	// Pipeline Defaults
	DefaultSentinel        = "other"
	DefaultIndicatorSuffix = "_na"
	DefaultMissingMarkers  = "NA,NaN,null,N/A,?"

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Artifact Settings
	ArtifactFileExtension = ".json"
	ArtifactChecksumAlgo  = "sha256"
)
