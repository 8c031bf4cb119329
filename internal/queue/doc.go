// Package queue implements the alarm queue: a thread-safe mailbox with two
// delivery tiers.
//
// Normal messages are kept in a first-in-first-out list of unbounded length.
// Alarm messages occupy a dedicated single-message slot and are always
// delivered before any normal message. While an alarm is outstanding, a second
// alarm cannot be accepted.
//
// Every queue picks one Discipline when it is created:
//   - Blocking: Receive on an empty queue and Send of an alarm while the slot
//     is occupied both suspend until the state allows them to proceed.
//   - NonBlocking: the same situations fail immediately with ErrNoMessage and
//     ErrNoRoom respectively.
//
// All state lives behind one mutex. Suspensions use condition variables and
// always re-check their predicate after waking. Operations must not be called
// re-entrantly from a payload's Release method.
package queue
