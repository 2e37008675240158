package config

import "retailetl/pkg/contracts"

// Application constants
const (
	AppName     = "Retail ETL"
	AppVersion  = contracts.Version
	ServiceName = "retail-etl"

	// EnvPrefix namespaces every environment variable, e.g. ETL_SERVER_PORT.
	EnvPrefix = "ETL"

	DefaultPort      = 8080
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMaxUploadBytes    int64 = 100 << 20
	DefaultMaxGridRows       int64 = 5_000_000
	DefaultMaxConcurrentRuns int64 = 4
)

// Item to series conflict policies.
const (
	ConflictLastWriteWins = "last_write_wins"
	ConflictError         = "error"
)

// Upload form fields and the download name.
const (
	SalesFileField     = "sales_file"
	InventoryFileField = "inventory_file"
	OutputFilename     = "vertex_training_data.csv"
)

// Endpoints
const (
	ProcessEndpoint = "/process"
	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)
