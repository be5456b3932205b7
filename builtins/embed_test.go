package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesMatchSources(t *testing.T) {
	assert.Len(t, Names, 12)
	for _, name := range Names {
		src, ok := Source(name)
		assert.True(t, ok, "missing embedded source for %s", name)
		assert.NotEmpty(t, src)
		assert.True(t, IsBuiltin(name))
	}
}

func TestIsBuiltinRejectsUnknown(t *testing.T) {
	assert.False(t, IsBuiltin("not_a_builtin"))
	_, ok := Source("not_a_builtin")
	assert.False(t, ok)
}
