// Package history records pipeline runs in SQLite.
//
// Each run is inserted when it starts, updated when it finishes and carries
// one row per configured dataset with the images and labels it contributed.
// The database lives in the output directory next to the artifacts it
// describes, so deleting an output directory also discards its history.
//
// Schema changes are added as new files under migrations/; applied versions
// are tracked in schema_migrations.
package history
