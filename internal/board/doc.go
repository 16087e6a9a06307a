// Package board holds the in-memory board state: the ordered column sequence, the
// global ordered card sequence and the active drag selection.
//
// A State is a value. Every operation returns a new State and leaves the receiver
// untouched, so callers can keep an older State around and compare it with the next.
package board
