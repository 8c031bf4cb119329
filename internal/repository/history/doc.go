// Package history persists the history of stress runs.
//
// The FileRepository appends run records to a JSON file on disk and exposes a
// Repository interface that the stress service and the history command depend on.
package history
