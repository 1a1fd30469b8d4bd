// Package services sits between the transports (HTTP handlers, CLI) and
// the reconciliation pipeline.
//
// # Run service
//
// RunService turns raw inputs into a pipeline run:
//
//	- uploads are validated (extension, size limit) before any byte is parsed
//	- column letters, multiplier and secret fall back to configuration
//	- only one run may be in flight; a second caller gets a CONFLICT error
//	- the report of the last run is kept for later inspection
//
// # Health service
//
// HealthService reports liveness, version and whether a run is in progress.
package services
