// Package graph builds the immutable graph model of one build script.
//
// Every expression and type annotation of the script becomes a node in an
// expression graph or a type graph. Node ids are derived from the syntax
// tree, so traversing the same syntax twice yields the same node and the
// builder can add nodes idempotently. Declarations (targets, rules,
// variables, classes, enums, imports and actions) are recorded by their
// dotted name and refer to graph nodes by id.
//
// Names are resolved while the graph is built through a scope chain of
// NameLookupTables: the innermost namespace first, then enclosing ones, then
// preloaded plugin names, then prelude names. A name whose first token is an
// import is kept unresolved as an ImportedExpr node; the evaluator resolves
// it once the import itself is known.
package graph
