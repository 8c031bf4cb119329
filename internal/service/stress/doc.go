// Package stress drives one queue with concurrent producers and consumers and
// verifies delivery afterwards: nothing duplicated, nothing lost or altered,
// normal messages in order per producer and at most one alarm outstanding.
package stress
