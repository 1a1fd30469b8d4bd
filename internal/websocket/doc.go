// Package websocket streams the live log of reconciliation runs to browser
// clients. The Hub implements operations.ProgressReporter; every progress
// event is broadcast as one JSON text frame.
package websocket
