// Package export lays out triage results as tables and writes them to the
// output directory.
//
// All files of one run are staged as temporaries under an advisory lock on
// the directory and renamed into place by Batch.Commit. Each file is replaced
// atomically, and nothing is replaced when staging fails. If a rename fails
// partway through Commit, files renamed before it are new and the rest keep
// their previous contents.
package export
