// Package pipeline runs one scoring pass over a master table.
//
// Run reads and validates the master, triages every row, publishes the four
// CSV tables and the workbook as one batch, then renders the optional deck and
// one-page PDF. A missing input file or a missing required column fails the run
// before any output is touched.
package pipeline
