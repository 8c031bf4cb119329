// Package integration drives the services end to end with settings written to a temporary file.
package integration
