// Package evaluator turns build tasks into results.
//
// Every function here is non-blocking: when a task needs the answer of
// another task it returns a continuation naming that task, and the
// scheduler resumes it once the answer is known. Work that blocks on the
// file system, the cache database or a rule implementation is wrapped in a
// task.LongRunning result so it runs on the pool reserved for blocking I/O.
package evaluator
