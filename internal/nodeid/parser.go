// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenRegex matches a single token of a name, e.g. `compile` or `x86_64`.
var tokenRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Parse converts a dotted string into a Name, validating every token.
func Parse(s string) (Name, error) {
	if s == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	tokens := strings.Split(s, ".")
	for i, token := range tokens {
		token = strings.TrimSpace(token)
		if !tokenRegex.MatchString(token) {
			return "", fmt.Errorf("invalid token '%s' at position %d in name '%s'", token, i, s)
		}
		tokens[i] = token
	}
	return NewName(tokens...), nil
}

// MustParse is like Parse but panics on error. It is intended for tests and
// for names that are compiled into the binary.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}
