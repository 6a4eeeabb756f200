// Package config loads, normalizes, and validates visiontune configuration data.
//
// It supplies repository defaults (the dataset list, the anti-cheat taxonomy,
// and the fine-tuning hyperparameters), expands user paths including tilde
// shortcuts, and reads TOML files. Lists in a config file replace the
// defaults wholesale; sections left empty fall back to them.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical enum values, and clear validation errors.
package config
