// Package config defines the settings shared by the alarm-queue commands and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type selects the queue discipline, the storage arena, log levels
// and the parameters of the stress harness.
package config
