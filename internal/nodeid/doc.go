// internal/nodeid/doc.go

/*
Package nodeid provides the identifiers shared by the graph model and the
evaluator.

A Name identifies a declaration inside a project's namespace tree. It is a
dot-separated sequence of tokens, e.g. `tools.compile`. Names are plain
strings underneath so they can be used directly as map keys; tokens never
contain a dot.
*/
package nodeid
