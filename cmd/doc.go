// Package cmd implements the command-line interface for maildeck.
//
// This package provides the following commands:
//   - serve: Start the Gmail proxy backend for the dashboard frontend
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
