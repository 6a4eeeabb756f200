// Package dataset reads YOLO-format dataset exports and rewrites their labels
// into the canonical taxonomy.
//
// A raw dataset is a directory holding a data.yaml manifest and
// train/valid/test split folders, each with images/ and labels/. Label lines
// are "class cx cy w h" in normalized coordinates. Lines that are malformed,
// reference a class outside the manifest, or name a class with no canonical
// mapping are dropped and counted, never reported as errors.
package dataset
