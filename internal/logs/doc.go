// Package logs reads the persistent visiontune log file.
//
// It returns the last N lines with bounded memory and follows the file by
// polling from a byte offset, restarting from the top when the file shrinks.
// Only newline-terminated lines are returned so a line being written is never
// split.
package logs
