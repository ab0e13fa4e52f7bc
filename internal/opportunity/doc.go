// Package opportunity provides the typed funding-opportunity record used across
// the pipeline.
//
// A master table row is converted into a Record exactly once, at load time: the
// header is checked for every required column (identity plus scoring columns) and
// each cell is parsed into its typed field. Blank or malformed cells are never a load
// error; they become zero scores, a nil Match, or a nil Deadline that the triage step
// handles per row. Deadlines are ISO YYYY-MM-DD only.
package opportunity
