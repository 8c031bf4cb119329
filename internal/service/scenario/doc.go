// Package scenario runs the scripted acceptance sequence against a fresh queue
// and reports every step as passed or failed.
package scenario
