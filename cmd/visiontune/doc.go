// Package main hosts the visiontune CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, applies flag overrides,
// and hands work to the pipeline package. Commands render results as tables
// or status lines; structured logs go to stderr and the log file under the
// output directory.
package main
