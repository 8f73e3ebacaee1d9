// Package dag is a small concurrency-safe directed graph keyed by string ids.
//
// It is used twice: the graph builder checks the static reference graph of a
// script for cycles, and the scheduler records which task waits on which so
// it can refuse a request that would close a cycle at runtime.
package dag
