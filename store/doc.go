// Package store is the client-side cache of shepherd and non-shepherd events.
//
// An EventStore never performs I/O. It changes only when a Dispatcher delivers
// an Action, computes the next snapshot with Reduce and then notifies the
// listeners registered for the resulting Notification. Listeners carry no
// payload; they read the new state back through the getters.
package store
