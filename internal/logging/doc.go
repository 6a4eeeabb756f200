// Package logging assembles structured slog loggers and formatting helpers used
// across visiontune.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so stage code automatically tags log
// lines with the run ID and stage name. Warnings go through WarnWithContext so
// each one carries an event type, an impact and a hint.
package logging
