// Package alarm contains core domain types for the alarm queue.
//
// It defines Kind (the two delivery tiers), Message (a payload tagged with its
// kind) and Releaser, the hook a payload implements when the queue must free
// it on teardown.
package alarm
