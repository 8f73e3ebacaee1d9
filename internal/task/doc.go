// Package task defines the units of work of the build engine and the
// results they produce.
//
// A Task names something to compute, such as the value of an expression in
// one project instance or the invocation of a rule. Evaluating a task yields
// a Result: either a final answer or a continuation listing further tasks
// and how to combine their results. The scheduler drives continuations to a
// fixed point and memoizes every task by its Key.
package task
