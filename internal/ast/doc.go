// Package ast defines the syntax tree of a build script.
//
// Every node carries a NodeID that is unique within one parsed script and is
// issued in source order, so parsing the same text twice yields the same ids.
// The graph builder keys its expression and type nodes off these ids.
package ast
