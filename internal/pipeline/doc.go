// Package pipeline orchestrates a fine-tuning run: preflight, fetch, prepare,
// train and export.
//
// A Runner holds an exclusive file lock on the output directory for the
// duration of any operation, tags stage logs with a run ID and records full
// runs in the history database. Individual stages can also be run on their
// own for the fetch, prepare and train commands.
package pipeline
