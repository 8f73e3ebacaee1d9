// Package inmemorystore provides the thread-safe, in-memory memo of task
// states and results used by the scheduler. Entries outlive a single
// scheduling round so later requests for a finished task are answered
// without re-evaluating it.
package inmemorystore
