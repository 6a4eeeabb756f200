// Package preflight provides readiness checks run before training.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before fetching anything. If a check fails,
//     the run stops before hours of training are spent on a doomed setup.
//   - The CLI "visiontune doctor" command renders the same results as a table.
//
// Network reachability is only probed for datasets that still need downloading.
package preflight
