// Package logging provides structured, file-based logging with rotation for
// the repo engine. Logs are written to ~/.orchestrator/logs/ by default, with
// an optional stderr tee.
package logging
