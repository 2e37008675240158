// Package config loads the ETL service configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order, later sources winning:
//
//	1. Default()
//	2. A YAML file: $ETL_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//	3. Environment variables prefixed with ETL_ (a .env file is loaded first)
//
// # Environment Variables
//
// Nested sections map to underscore separated names:
//
//	ETL_SERVER_PORT=8080
//	ETL_LOGGING_LEVEL=debug
//	ETL_PIPELINE_MAX_GRID_ROWS=1000000
//	ETL_PIPELINE_CONFLICT_POLICY=error
//	ETL_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Validation
//
// The merged struct is checked with go-playground/validator tags. Load
// fails on the first invalid source rather than silently correcting it.
package config
