// Package fetch downloads zipped dataset exports into per-dataset directories.
//
// A dataset whose directory already exists is left alone without touching the
// network, so repeated runs only download what is missing. Failures are
// reported per dataset and never stop the remaining downloads.
package fetch
