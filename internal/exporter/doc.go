// Package exporter writes run results to local files: one CSV per table
// (UTF-8 with BOM so Excel detects the encoding) and a workbook holding
// both tables as sheets.
package exporter
