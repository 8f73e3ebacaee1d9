// Package project keeps the graph models of every project taking part in a
// build and the import instances created while evaluating them.
//
// Project ids are stable within a run: 1 is the main project, 2 the
// prelude, then the preloaded plugins in name order, then external
// projects in the order they are first imported.
package project
