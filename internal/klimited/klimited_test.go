package klimited

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GaloisInc/yapall/internal/names"
)

func site(fn *names.FunctionName, idx int) *names.InstructionName {
	return &names.InstructionName{
		Parent: fn,
		Block:  &names.BlockName{Parent: fn, Name: "entry"},
		Index:  idx,
	}
}

func TestPushAtZeroDepthIsNoOp(t *testing.T) {
	fn := &names.FunctionName{Name: "main"}
	c := Empty(0)
	c2 := c.Push(site(fn, 0))
	assert.Empty(t, c2.Sites())
	assert.Equal(t, c.Key(), c2.Key())
}

func TestPushTruncatesOldest(t *testing.T) {
	fn := &names.FunctionName{Name: "main"}
	s0, s1, s2 := site(fn, 0), site(fn, 1), site(fn, 2)

	c := Empty(2).Push(s0).Push(s1)
	assert.Equal(t, []*names.InstructionName{s0, s1}, c.Sites())

	c = c.Push(s2)
	assert.Equal(t, []*names.InstructionName{s1, s2}, c.Sites(), "oldest entry drops once length exceeds k")
}

func TestPushIsPersistent(t *testing.T) {
	fn := &names.FunctionName{Name: "main"}
	base := Empty(2).Push(site(fn, 0))
	a := base.Push(site(fn, 1))
	b := base.Push(site(fn, 2))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Len(t, base.Sites(), 1, "pushing never mutates the receiver")
}

func TestKeyDistinguishesContexts(t *testing.T) {
	fn := &names.FunctionName{Name: "main"}
	a := Empty(2).Push(site(fn, 0))
	b := Empty(2).Push(site(fn, 1))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), Empty(2).Push(site(fn, 0)).Key())
}

func TestString(t *testing.T) {
	fn := &names.FunctionName{Name: "f"}
	assert.Equal(t, "[]", Empty(1).String())
	assert.Equal(t, "[f:entry:3]", Empty(1).Push(site(fn, 3)).String())
}
