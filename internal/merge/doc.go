// Package merge builds the unified training dataset from downloaded sources.
//
// Prepare wipes the merged directory, converts every available source into the
// train and valid output splits with labels remapped onto the canonical
// taxonomy, and writes the data.yaml manifest the trainer consumes.
package merge
