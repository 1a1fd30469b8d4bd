// Package operations runs a reconciliation from two uploaded workbooks to
// the sink.
//
// A run goes through fixed steps:
//
//	read       open both workbooks and detect their date epoch
//	aggregate  clean, deduplicate and sum each source into a Table
//	merge      outer-join the two Tables on contact and day
//	scale      derive the scaled Table
//	validate   refuse to deliver a Table without days or contacts
//	deliver    hand both Tables to the Sink
//
// The two sources are read and aggregated concurrently. Every step
// transition is published to a ProgressReporter and recorded in the
// RunReport returned to the caller.
package operations
