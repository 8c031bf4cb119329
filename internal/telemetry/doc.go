// Package telemetry keeps in-process counters for alarm queues.
package telemetry
