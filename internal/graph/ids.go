package graph

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/nodeid"
)

// ExprID identifies a node in the expression graph.
type ExprID string

// TypeID identifies a node in the type graph.
type TypeID string

func astExprID(astID int) ExprID {
	return ExprID(fmt.Sprintf("e%d", astID))
}

func astTypeID(astID int) TypeID {
	return TypeID(fmt.Sprintf("t%d", astID))
}

func refID(kind string, defID int) ExprID {
	return ExprID(fmt.Sprintf("%s:%d", kind, defID))
}

func typeRefID(kind string, defID int) TypeID {
	return TypeID(fmt.Sprintf("%s:%d", kind, defID))
}

func importedID(kind string, source string, name nodeid.Name) string {
	return fmt.Sprintf("%s:%s:%s", kind, source, name)
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, ".")
}
