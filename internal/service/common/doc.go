// Package common holds helpers shared by several services.
//
// It builds queues from configuration and detects the system actor
// (hostname/username) recorded in run reports.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
