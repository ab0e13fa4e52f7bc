// Package cli implements the command-line interface for grant-triage.
//
// The Cobra root command loads the optional YAML config and installs a logger
// tagged with a run id, then dispatches to the subcommands:
//
//	fetch KEYWORD     pull opportunities from Grants.gov into a CSV/TSV
//	template INPUT    add the scoring columns to a fetched file
//	prepare KEYWORD   fetch and template in one step
//	score             triage the master and write the output tables
//
// Input errors (missing file, malformed table, missing required column) exit
// with status 2; every other failure exits with status 1.
package cli
