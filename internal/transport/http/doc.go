// Package http implements the HTTP handlers of the ETL server. Handlers
// stay thin: they parse the request, call a service and format the
// response. Business rules live in the services package.
//
// # Routes
//
//	POST /process, /api/v1/process  multipart upload, returns the training CSV
//	GET  /api/health[/ready|/live]  health probes
//	GET  /api/version               build information
//	GET  /*                         the upload page
//
// # Error Handling
//
// Every failure is answered with RFC 7807 problem details through
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/etl/schema",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "sales file is missing required columns: price",
//	    "error_code": "SCHEMA",
//	    "missing_columns": ["price"],
//	    "trace_id": "3f0c..."
//	}
package http
