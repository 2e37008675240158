// Package services implements the business logic layer of the ETL server.
// It sits between the HTTP handlers and the pipeline so that handlers stay
// thin and the same code path serves the command line tool.
//
// # Services
//
// ETLService validates uploads, reads them into tables, runs the pipeline
// and renders the training file into memory. A weighted semaphore bounds
// the number of runs in flight; waiting for a slot honours the caller's
// context.
//
// HealthService answers the health, readiness, liveness and version
// endpoints.
//
// # Usage
//
//	svc, err := services.NewETLService(cfg.Pipeline, providers, metrics, logger)
//	if err != nil {
//	    return err
//	}
//	result, err := svc.Process(ctx, services.ProcessRequest{
//	    Sales: &services.FileInput{Filename: "sales.csv", Reader: f},
//	})
package services
