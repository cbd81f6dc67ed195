package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOption_SomeAndNone(t *testing.T) {
	s := Some("/page2")
	v, ok := s.Get()
	assert.True(t, ok)
	assert.True(t, s.IsSome())
	assert.Equal(t, "/page2", v)
	assert.Equal(t, "/page2", s.UnwrapOr("/"))

	n := None[string]()
	assert.False(t, n.IsSome())
	assert.Equal(t, "", n.UnwrapOr(""))

	var zero Option[int]
	assert.False(t, zero.IsSome())
}
