// Package config loads grant-triage settings from an optional YAML file.
//
// Default supplies every value; a file only needs the keys it changes. Command-line
// flags override the loaded values in the cli package, so the rest of the program
// receives fully resolved settings and never reads ambient state.
package config
