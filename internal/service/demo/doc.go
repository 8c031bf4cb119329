// Package demo runs the threaded demonstration of the alarm queue.
//
// Three parts run one after another on a single blocking queue:
//   - a producer that pauses between sends and a consumer waiting for it;
//   - two alarm senders competing for the slot and a late receiver that frees it;
//   - a burst of normal messages drained in order by a late receiver.
//
// Pauses steer the interleaving; every delivery is logged and recorded.
package demo
