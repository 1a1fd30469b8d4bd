// Package app wires the reconciliation service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (internal/config)
//	2. Initialize logging and OpenTelemetry
//	3. Build the sink, workbook reader, pipeline and run service
//	4. Start the websocket hub that streams run progress
//	5. Mount middleware and handlers on a chi router
//	6. Serve HTTP until SIGINT or SIGTERM, then shut down gracefully
//
// The CLI reuses BuildComponents so a command-line run goes through the
// same pipeline as an HTTP one.
package app
