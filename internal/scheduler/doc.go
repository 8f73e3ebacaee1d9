// Package scheduler drives task evaluation to a fixed point.
//
// A single owner goroutine holds every piece of mutable scheduling state.
// Workers evaluate tasks and report back over a channel; the owner records
// results in the memo, attaches requesters to in-flight tasks and resumes
// continuations once all of their dependencies are terminal. Because only
// the owner starts tasks, a task is never running twice.
package scheduler
