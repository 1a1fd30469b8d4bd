// Package workbook reads uploaded spreadsheet bytes into raw grids.
//
// XLSX workbooks are opened with excelize; cell values are kept raw so
// numeric cells (including date serials) stay numeric. The workbook's date
// epoch (1900 or 1904) is read from its properties. Bytes that are not a zip
// container are read as CSV, exposing a single sheet named Sheet1.
package workbook
