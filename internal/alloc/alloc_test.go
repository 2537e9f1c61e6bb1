package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaloisInc/yapall/internal/names"
)

func instr(fn string, idx int) *names.InstructionName {
	parent := &names.FunctionName{Name: fn, Defined: true}
	return &names.InstructionName{
		Parent: parent,
		Block:  &names.BlockName{Parent: parent, Name: "entry"},
		Index:  idx,
	}
}

func sz(v uint64) *uint64 { return &v }

func TestTableInternsOnePerOrigin(t *testing.T) {
	tab := NewTable()
	i := instr("main", 0)
	assert.Same(t, tab.Stack(i), tab.Stack(i))
	assert.Same(t, tab.Heap(i, sz(8)), tab.Heap(i, sz(8)))

	fn := &names.FunctionName{Name: "f"}
	assert.Same(t, tab.Function(fn), tab.Function(fn))

	g := &names.GlobalName{Name: "g"}
	assert.Same(t, tab.Global(g, false, nil), tab.Global(g, false, nil))

	assert.NotSame(t, tab.Stack(i), tab.Stack(instr("main", 1)))
}

func TestPredicates(t *testing.T) {
	tab := NewTable()
	fnAlloc := tab.Function(&names.FunctionName{Name: "f"})
	stack := tab.Stack(instr("main", 0))
	heap := tab.Heap(instr("main", 1), nil)
	constG := tab.Global(&names.GlobalName{Name: "c"}, true, nil)
	mutG := tab.Global(&names.GlobalName{Name: "m"}, false, nil)

	assert.False(t, fnAlloc.Loadable())
	assert.False(t, tab.Null().Loadable())
	assert.True(t, stack.Loadable())
	assert.True(t, tab.Top().Loadable())

	assert.False(t, fnAlloc.Storable())
	assert.False(t, tab.Null().Storable())
	assert.False(t, constG.Storable(), "a read-only global is not storable")
	assert.True(t, mutG.Storable())
	assert.True(t, tab.Top().Storable())

	assert.True(t, heap.Freeable())
	assert.True(t, tab.Top().Freeable())
	assert.False(t, stack.Freeable())
	assert.False(t, mutG.Freeable())
}

func TestMergeCompatibility(t *testing.T) {
	tab := NewTable()
	h8a := tab.Heap(instr("main", 0), sz(8))
	h8b := tab.Heap(instr("main", 1), sz(8))
	h16 := tab.Heap(instr("main", 2), sz(16))
	stack := tab.Stack(instr("main", 3))

	assert.False(t, Merge(h8a, h16), "heap allocations with differing sizes never merge")
	assert.False(t, Merge(h8a, stack), "differing kinds never merge")
	assert.False(t, Merge(tab.Top(), tab.Null()))
	assert.True(t, Merge(tab.Top(), tab.Top()), "an allocation is trivially in its own class")

	require.True(t, Merge(h8a, h8b))
	assert.Same(t, Lookup(h8a), Lookup(h8b))
}

func TestMergeGlobalsByConstness(t *testing.T) {
	tab := NewTable()
	a := tab.Global(&names.GlobalName{Name: "a"}, false, nil)
	b := tab.Global(&names.GlobalName{Name: "b"}, false, nil)
	c := tab.Global(&names.GlobalName{Name: "c"}, true, nil)

	assert.False(t, Merge(a, c), "constness must agree")
	require.True(t, Merge(a, b))
	assert.Same(t, Lookup(a), Lookup(b))
}

func TestLookupIdempotentAcrossMergedClass(t *testing.T) {
	tab := NewTable()
	a := tab.Stack(instr("main", 0))
	b := tab.Stack(instr("main", 1))
	c := tab.Stack(instr("main", 2))

	require.True(t, Merge(a, b))
	require.True(t, Merge(b, c))

	root := Lookup(a)
	assert.Same(t, root, Lookup(b))
	assert.Same(t, root, Lookup(c))
	assert.Same(t, root, Lookup(root), "lookup(lookup(x)) == lookup(x)")
}

func TestMergeIsOrderInsensitive(t *testing.T) {
	tab := NewTable()
	a := tab.Stack(instr("main", 0))
	b := tab.Stack(instr("main", 1))
	require.True(t, Merge(a, b))
	require.True(t, Merge(b, a), "re-merging an already-merged pair succeeds")
	assert.Same(t, Lookup(a), Lookup(b))
}

func TestString(t *testing.T) {
	tab := NewTable()
	assert.Equal(t, "*i", tab.Stack(instr("main", 0)).String())
	assert.Equal(t, "*i(8)", tab.Heap(instr("main", 1), sz(8)).String())
	assert.Equal(t, "*i", tab.Heap(instr("main", 2), nil).String())
	assert.Equal(t, "*g:const(8)", tab.Global(&names.GlobalName{Name: "g"}, true, sz(8)).String())
	assert.Equal(t, "*g", tab.Global(&names.GlobalName{Name: "h"}, false, nil).String())
	assert.Equal(t, "*f", tab.Function(&names.FunctionName{Name: "f"}).String())
	assert.Equal(t, "*null", tab.Null().String())
	assert.Equal(t, "Top", tab.Top().String())
}
