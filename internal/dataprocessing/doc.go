// Package dataprocessing is the reconciliation engine: it turns raw worksheet
// grids into per-contact, per-day tables and combines those tables.
//
// # Architecture
//
// The package is organized as a chain of pure stages:
//
//  1. Scalar parsers: ParseNumber and ParseDate coerce heterogeneous cells
//  2. NormContact: canonical identity string used as the grouping key
//  3. CleanGrid: drops a duplicated header row and a trailing total row
//  4. Aggregator: deduplicates rows by key column and sums a value column per (contact, day)
//  5. Merge: outer-joins two tables by contact and column, summing overlaps
//  6. Scale: multiplies every numeric cell of a table by a constant
//
// # Data Flow
//
//	Grid → CleanGrid → Records → dedupe → (contact, day) sums → Table
//	Table(tracking) + Table(extraction) → Merge → Scale
//
// # Error Handling
//
// Parsing is lenient: unparseable numbers are 0 and unparseable dates exclude
// the row from day bucketing. The only fatal condition is a column letter that
// does not exist in the header row, reported as a CONFIG AppError.
//
// # Concurrency
//
// Every stage is a function of its inputs and returns fresh structures, so
// stages may run concurrently on independent inputs.
package dataprocessing
