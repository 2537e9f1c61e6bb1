package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaloisInc/yapall/internal/names"
)

func TestConstantPointers(t *testing.T) {
	fn := &names.FunctionName{Name: "f"}
	g := &names.GlobalName{Name: "g"}
	fc := NewFunctionConstant(fn)
	gc := NewGlobalConstant(g)

	// Base cases yield themselves.
	assert.Equal(t, []*Constant{fc}, fc.Pointers())
	assert.Equal(t, []*Constant{gc}, gc.Pointers())

	// Pass-through expressions unwrap to their payload's base cases.
	wrapped := NewBitCastConstant(NewGetElementPtrConstant(fc))
	assert.Equal(t, []*Constant{fc}, wrapped.Pointers())
	assert.Equal(t, []*Constant{fc}, NewPtrToIntConstant(fc).Pointers())
	assert.Equal(t, []*Constant{fc}, NewIntToPtrConstant(fc).Pointers())

	// Aggregates recurse over every element.
	agg := NewStructConstant([]*Constant{fc, NewArrayConstant([]*Constant{gc, NewNullConstant()})})
	ps := agg.Pointers()
	require.Len(t, ps, 3)
	assert.Same(t, fc, ps[0])
	assert.Same(t, gc, ps[1])
	assert.Equal(t, ConstantNull, ps[2].Kind)

	// Opaque constants contribute nothing.
	assert.Empty(t, NewOtherConstant().Pointers())
}

func TestFunctionBuilderPassThroughSharing(t *testing.T) {
	fn := &names.FunctionName{Name: "f", Defined: true}
	bn := &names.BlockName{Parent: fn, Name: "entry"}
	b := NewFunctionBuilder(fn)

	p := b.AddParameter("p", "p")
	require.Equal(t, OperandLocal, p.Kind)

	// A pass-through of a local shares the source's operand identity.
	b.DefineResult("cast", bn, 0, p)
	castOp, ok := b.LocalOperand("cast")
	require.True(t, ok)
	assert.Same(t, p, castOp)

	// A non-pass-through result gets its own operand.
	in := b.DefineResult("fresh", bn, 1, nil)
	freshOp, ok := b.LocalOperand("fresh")
	require.True(t, ok)
	assert.NotSame(t, p, freshOp)
	assert.Same(t, in, freshOp.Local.Instruction)
	assert.True(t, freshOp.Local.IsInstruction())

	// A pass-through of a constant does not share.
	b.DefineResult("constcast", bn, 2, NewConstantOperand(NewNullConstant()))
	ccOp, _ := b.LocalOperand("constcast")
	assert.Equal(t, OperandLocal, ccOp.Kind)

	_, ok = b.LocalOperand("undefined")
	assert.False(t, ok)
}

func TestDeclHasPointer(t *testing.T) {
	ptr := PointerType(nil)
	i32 := IntType(32)

	assert.True(t, (&Decl{ReturnType: ptr}).HasPointer())
	assert.True(t, (&Decl{ReturnType: i32, Parameters: []Type{i32, ptr}}).HasPointer())
	assert.False(t, (&Decl{ReturnType: i32, Parameters: []Type{i32}}).HasPointer())
}

func TestGlobalSize(t *testing.T) {
	inner := PointerType(nil)
	ptrToPtr := &Global{Type: PointerType(&inner)}
	require.NotNil(t, ptrToPtr.Size())
	assert.Equal(t, uint64(8), *ptrToPtr.Size())

	i32 := IntType(32)
	plain := &Global{Type: PointerType(&i32)}
	assert.Nil(t, plain.Size())

	untyped := &Global{Type: Type{}}
	assert.Nil(t, untyped.Size())
}

func TestOpcodeOperands(t *testing.T) {
	a := NewConstantOperand(NewIntConstant(64, 1))
	b := NewConstantOperand(NewIntConstant(64, 2))
	callee := NewConstantOperand(NewFunctionConstant(&names.FunctionName{Name: "f"}))

	assert.Equal(t, []*Operand{a, b}, OpAdd{Operand0: a, Operand1: b}.Operands())
	assert.Equal(t, []*Operand{a, b}, OpStore{Value: a, Pointer: b}.Operands())
	assert.Empty(t, OpAlloca{}.Operands())

	// Call lists the callee first, invoke lists it last.
	call := OpCall{Callee: OperandCallee(callee), Args: []*Operand{a}}
	assert.Equal(t, []*Operand{callee, a}, call.Operands())
	inv := OpInvoke{Callee: OperandCallee(callee), Args: []*Operand{a}}
	assert.Equal(t, []*Operand{a, callee}, inv.Operands())

	// An asm callee contributes no operand.
	asmCall := OpCall{Callee: AsmCallee(), Args: []*Operand{a}}
	assert.Equal(t, []*Operand{a}, asmCall.Operands())

	assert.Empty(t, OpRet{}.Operands())
	assert.Equal(t, []*Operand{a}, OpRet{Operand: a}.Operands())
}

func TestConstantIntOperand(t *testing.T) {
	v, bits, ok := NewConstantOperand(NewIntConstant(32, 7)).ConstantInt()
	require.True(t, ok)
	assert.Equal(t, uint64(7), v)
	assert.Equal(t, uint32(32), bits)

	_, _, ok = NewConstantOperand(NewNullConstant()).ConstantInt()
	assert.False(t, ok)
	_, _, ok = NewMetadataOperand().ConstantInt()
	assert.False(t, ok)
}
