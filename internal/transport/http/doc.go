// Package http exposes the reconciliation service over HTTP.
//
// # Endpoints
//
//	POST /api/v1/runs        multipart upload of the tracking and extraction workbooks
//	GET  /api/v1/runs/last   report of the most recent run
//	POST /api/v1/sink/ping   reachability check of the configured sink
//	GET  /api/v1/health      liveness and version
//
// Errors are RFC 7807 problem documents produced by internal/errors.
package http
