// Package validation checks request input and source workbooks before a
// run starts. Failures are VALIDATION AppErrors.
package validation
