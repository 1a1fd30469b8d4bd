// Package shared holds code used across packages that belongs to no single
// layer. Its testutil subpackage provides a capturing slog handler and
// in-memory workbook fixtures for tests.
package shared
