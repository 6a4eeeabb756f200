// Package trainer drives the external Ultralytics command-line trainer.
//
// Train fine-tunes a base checkpoint on the merged dataset and Export converts
// the resulting best weights into a portable format. Both stream the tool's
// output so epoch progress can be reported while the subprocess runs.
package trainer
