// Package logging builds slog loggers with console and JSON handlers shared by
// the CLI and the API server.
package logging
