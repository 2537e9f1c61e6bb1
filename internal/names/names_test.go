package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMain(t *testing.T) {
	assert.True(t, (&FunctionName{Name: "main"}).IsMain())
	assert.True(t, (&FunctionName{Name: "_ZN7example4main17h9b09372e63d29e17E"}).IsMain())
	assert.False(t, (&FunctionName{Name: "domain"}).IsMain())
	assert.False(t, (&FunctionName{Name: "remainder"}).IsMain())
}

func TestStrings(t *testing.T) {
	fn := &FunctionName{Name: "f"}
	blk := &BlockName{Parent: fn, Name: "entry"}

	assert.Equal(t, "@g", (&GlobalName{Name: "g"}).String())
	assert.Equal(t, "@f", fn.String())
	assert.Equal(t, "f:entry", blk.String())
	assert.Equal(t, "f:entry:2", (&InstructionName{Parent: fn, Block: blk, Index: 2}).String())
	assert.Equal(t, "f:x", (&ParameterName{Parent: fn, Name: "x"}).String())
}

func TestLocalName(t *testing.T) {
	fn := &FunctionName{Name: "f"}
	p := &LocalName{Parameter: &ParameterName{Parent: fn, Name: "x"}}
	assert.False(t, p.IsInstruction())
	assert.Equal(t, "f:x", p.String())

	blk := &BlockName{Parent: fn, Name: "entry"}
	i := &LocalName{Instruction: &InstructionName{Parent: fn, Block: blk, Index: 0}}
	assert.True(t, i.IsInstruction())
	assert.Equal(t, "f:entry:0", i.String())
}
