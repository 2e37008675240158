// Package app wires the ETL server together: configuration, logging,
// OpenTelemetry, the ETL and health services, the HTTP router and the
// server lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and ETL_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the ETL and health services
//	4. Build the chi router and its middleware chain
//	5. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(frontendFS)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then lets in-flight runs finish within
// the configured shutdown timeout and flushes telemetry. The package never
// calls os.Exit.
package app
