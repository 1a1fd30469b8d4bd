// Package security signs outbound sink requests so a receiver holding the
// shared secret can check their origin and freshness.
//
// A signed request carries three headers:
//
//	X-Reconcile-Timestamp  unix seconds
//	X-Reconcile-Nonce      random UUID
//	X-Reconcile-Signature  hex HMAC-SHA256 of "timestamp.nonce.body"
package security
