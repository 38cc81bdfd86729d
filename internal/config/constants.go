package config

import "time"

// Application constants
const (
	AppName    = "wexport"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. WEXPORT_SERVER_PORT
	EnvPrefix = "WEXPORT"

	// ConfigFileEnv names the variable that points at an explicit config file
	ConfigFileEnv = "WEXPORT_CONFIG"

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"
	DefaultDatabase   = "data/wexport.db"

	// Export defaults
	DefaultOrderStatus        = "wc-completed"
	StatusPrefix              = "wc-"
	DefaultDelimiter          = ","
	DefaultMultiTermSeparator = "|"
	DefaultBatchSize          = 100
	PreviewBatchSize          = 5

	// Download handles
	DownloadKeyPrefix  = "wexport_download_"
	DefaultDownloadTTL = time.Hour

	// Retention
	DefaultLogRetentionDays = 30
	DefaultFileRetention    = 24 * time.Hour

	// Templates
	MaxTemplateNameLength = 100

	// Import
	MaxImportFileSize = 10 * 1024 * 1024

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40
)
