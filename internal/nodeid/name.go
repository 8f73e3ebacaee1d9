// internal/nodeid/name.go
package nodeid

import "strings"

// Name is a declaration name made of one or more tokens.
type Name string

// NewName joins the given tokens into a Name.
func NewName(tokens ...string) Name {
	return Name(strings.Join(tokens, "."))
}

// Tokens returns the individual tokens of the name.
func (n Name) Tokens() []string {
	if n == "" {
		return nil
	}
	return strings.Split(string(n), ".")
}

// String returns the canonical dotted form.
func (n Name) String() string {
	return string(n)
}

// Last returns the last token.
func (n Name) Last() string {
	s := string(n)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Namespace returns the name without its last token. A single-token name has
// an empty namespace.
func (n Name) Namespace() Name {
	s := string(n)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return Name(s[:i])
	}
	return ""
}

// Append returns a new name with the given tokens added at the end.
func (n Name) Append(tokens ...string) Name {
	if len(tokens) == 0 {
		return n
	}
	if n == "" {
		return NewName(tokens...)
	}
	return Name(string(n) + "." + strings.Join(tokens, "."))
}

// HasPrefix reports whether prefix is a token-wise prefix of n.
func (n Name) HasPrefix(prefix Name) bool {
	if prefix == "" || n == prefix {
		return true
	}
	return strings.HasPrefix(string(n), string(prefix)+".")
}

// TrimPrefix removes a token-wise prefix. It returns n unchanged when prefix
// is not a prefix of n.
func (n Name) TrimPrefix(prefix Name) Name {
	if prefix == "" || !n.HasPrefix(prefix) {
		return n
	}
	if n == prefix {
		return ""
	}
	return Name(strings.TrimPrefix(string(n), string(prefix)+"."))
}

// Equal reports whether both names have the same tokens.
func (n Name) Equal(other Name) bool {
	return n == other
}
