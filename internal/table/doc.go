// Package table reads and writes the delimited (CSV/TSV) files that flow through
// the pipeline: fetched opportunity lists, the scoring master and the scored outputs.
//
// The delimiter is chosen from the file extension: .tsv and .tab use tabs, anything
// else uses commas. Rows are kept as strings; typing happens in the opportunity package.
package table
