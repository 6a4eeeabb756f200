// Package taxonomy maps heterogeneous dataset labels onto the canonical
// anti-cheat detection classes.
//
// A Taxonomy pairs an ordered class list (index = position) with a many-to-one
// synonym table. Lookups are case-insensitive exact matches; labels without an
// entry normalize to Unknown and are dropped by callers.
package taxonomy
