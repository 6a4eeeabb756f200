// Package notifications tells an ntfy topic how pipeline runs ended.
//
// NewService returns a no-op when no topic is configured, so callers never
// need to check whether notifications are enabled.
package notifications
