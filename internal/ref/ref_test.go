package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniquePointerIdentity(t *testing.T) {
	a, b := new(int), new(int)
	ua, ub := NewUnique(a), NewUnique(b)

	assert.True(t, ua.Equal(NewUnique(a)))
	assert.False(t, ua.Equal(ub))
	assert.Equal(t, ua.Hash(), NewUnique(a).Hash())
	assert.NotEqual(t, ua.Hash(), ub.Hash())
	assert.Same(t, a, ua.Value())
}

func TestUniqueLessIsStrictTotalOrder(t *testing.T) {
	a, b := new(int), new(int)
	ua, ub := NewUnique(a), NewUnique(b)

	assert.True(t, ua.Less(ub) != ub.Less(ua), "exactly one direction holds for distinct pointers")
	assert.False(t, ua.Less(ua))

	// The order is stable: re-wrapping the same pointers never flips it.
	first := ua.Less(ub)
	for i := 0; i < 4; i++ {
		assert.Equal(t, first, NewUnique(a).Less(NewUnique(b)))
	}
}
