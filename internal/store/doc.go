// Package store holds the current text value of every node.
//
// The store is last-write-wins: SetValue overwrites in place and no history
// is kept. Absent entries read as "no value". It has no internal locking;
// one owner (normally an engine.Engine) uses it from one goroutine.
package store
