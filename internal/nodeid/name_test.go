// internal/nodeid/name_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName_Tokens(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, NewName("a", "b", "c").Tokens())
	assert.Equal(t, []string{"a"}, Name("a").Tokens())
	assert.Nil(t, Name("").Tokens())
}

func TestName_LastAndNamespace(t *testing.T) {
	n := NewName("tools", "jvm", "compile")
	assert.Equal(t, "compile", n.Last())
	assert.Equal(t, Name("tools.jvm"), n.Namespace())
	assert.Equal(t, Name(""), Name("x").Namespace())
	assert.Equal(t, "x", Name("x").Last())
}

func TestName_Append(t *testing.T) {
	assert.Equal(t, Name("a.b.c"), Name("a").Append("b", "c"))
	assert.Equal(t, Name("b"), Name("").Append("b"))
	assert.Equal(t, Name("a"), Name("a").Append())
}

func TestName_Prefix(t *testing.T) {
	n := Name("lib.tools.compile")

	assert.True(t, n.HasPrefix("lib"))
	assert.True(t, n.HasPrefix("lib.tools"))
	assert.True(t, n.HasPrefix(n))
	assert.True(t, n.HasPrefix(""))
	assert.False(t, n.HasPrefix("li"), "prefix must match whole tokens")

	assert.Equal(t, Name("tools.compile"), n.TrimPrefix("lib"))
	assert.Equal(t, Name(""), n.TrimPrefix(n))
	assert.Equal(t, n, n.TrimPrefix("other"))
}

func TestName_Equal(t *testing.T) {
	assert.True(t, NewName("a", "b").Equal(MustParse("a.b")))
	assert.False(t, NewName("a", "b").Equal(MustParse("a.c")))
}
