// Package services holds the error markers shared by components that drive
// external tools and by the CLI that reports their failures.
//
// Wrap tags an error with a marker and stage context; Hint turns the marker
// back into a one-line suggestion for the operator.
package services
