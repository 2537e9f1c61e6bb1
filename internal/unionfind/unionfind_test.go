package unionfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cell struct {
	Node
	id int
}

func (c *cell) UFNode() *Node { return &c.Node }

func TestZeroValueIsRoot(t *testing.T) {
	c := &cell{id: 1}
	_, ok := Parent(c)
	assert.False(t, ok)
	assert.Same(t, c, Lookup(c).(*cell))
}

func TestLinkAndLookup(t *testing.T) {
	a, b, c := &cell{id: 1}, &cell{id: 2}, &cell{id: 3}
	Link(a, b)
	Link(b, c)

	assert.Same(t, c, Lookup(a).(*cell))
	assert.Same(t, c, Lookup(b).(*cell))

	// Path compression relinked a straight to the representative.
	p, ok := Parent(a)
	require.True(t, ok)
	assert.Same(t, c, p.(*cell))
}

func TestLookupIdempotent(t *testing.T) {
	a, b := &cell{id: 1}, &cell{id: 2}
	Link(a, b)
	r := Lookup(a)
	assert.Same(t, r, Lookup(r))
}
