package graph

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/ast"
)

// DuplicateNameError is returned when a scope declares a name twice.
type DuplicateNameError struct {
	Name string
	Pos  ast.Pos
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate name %q at %s", e.Name, e.Pos)
}

// NameNotFoundError is returned when a name cannot be resolved.
type NameNotFoundError struct {
	Tokens []string
	Pos    ast.Pos
}

func (e *NameNotFoundError) Error() string {
	if e.Pos.Line == 0 {
		return fmt.Sprintf("name not found: %s", strings.Join(e.Tokens, "."))
	}
	return fmt.Sprintf("name not found: %s at %s", strings.Join(e.Tokens, "."), e.Pos)
}

// CycleError is returned when targets or variables refer to each other in a
// cycle.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference cycle: %s", strings.Join(e.Names, " -> "))
}

// ScriptError reports any other invalid construct with its location.
type ScriptError struct {
	Pos ast.Pos
	Msg string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

func scriptErrorf(n ast.Node, format string, args ...any) error {
	return &ScriptError{Pos: n.Span().Start, Msg: fmt.Sprintf(format, args...)}
}
