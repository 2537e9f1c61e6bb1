package intprop

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

// modBuilder mirrors the pointer engine's test builder over the subset of
// shapes this analysis distinguishes.
type modBuilder struct {
	mod *ir.Module
}

func newModBuilder() *modBuilder { return &modBuilder{mod: ir.NewModule()} }

func (b *modBuilder) declare(name string, ret ir.Type, params ...ir.Type) *names.FunctionName {
	fn := &names.FunctionName{Name: name}
	b.mod.Decls[fn] = &ir.Decl{Name: fn, Parameters: params, ReturnType: ret}
	return fn
}

func (b *modBuilder) define(name string, nparams int) *fnBuilder {
	fn := &names.FunctionName{Name: name, Defined: true}
	f := &ir.Function{Name: fn}
	for i := 0; i < nparams; i++ {
		pn := &names.ParameterName{Parent: fn, Name: fmt.Sprintf("p%d", i)}
		f.Parameters = append(f.Parameters, ir.NewLocalOperand(&names.LocalName{Parameter: pn}))
	}
	bn := &names.BlockName{Parent: fn, Name: "entry"}
	blk := &ir.Block{Name: bn}
	f.Blocks = []*ir.Block{blk}
	b.mod.Functions[fn] = f
	return &fnBuilder{fn: fn, f: f, blk: blk, bn: bn}
}

type fnBuilder struct {
	fn  *names.FunctionName
	f   *ir.Function
	blk *ir.Block
	bn  *names.BlockName
	idx int
}

func (fb *fnBuilder) param(i int) *ir.Operand { return fb.f.Parameters[i] }

func (fb *fnBuilder) inst(op ir.Opcode, ty ir.Type) *ir.Instruction {
	in := &names.InstructionName{Parent: fb.fn, Block: fb.bn, Index: fb.idx}
	fb.idx++
	instr := &ir.Instruction{
		Name:   in,
		Opcode: op,
		Type:   ty,
		Result: ir.NewLocalOperand(&names.LocalName{Instruction: in}),
	}
	fb.blk.Instructions = append(fb.blk.Instructions, instr)
	return instr
}

func (fb *fnBuilder) call(callee *names.FunctionName, args ...*ir.Operand) *ir.Instruction {
	op := ir.NewConstantOperand(ir.NewFunctionConstant(callee))
	return fb.inst(ir.OpCall{Callee: ir.OperandCallee(op), Args: args}, ir.IntType(64))
}

func (fb *fnBuilder) ret(op *ir.Operand) {
	in := &names.InstructionName{Parent: fb.fn, Block: fb.bn, Index: fb.idx}
	fb.idx++
	fb.blk.Terminator = &ir.Terminator{Name: in, Opcode: ir.OpRet{Operand: op}}
}

func intConst(v uint64) *ir.Operand {
	return ir.NewConstantOperand(ir.NewIntConstant(64, v))
}

func valueOf(out *Output, op *ir.Operand) (IntLattice, bool) {
	for _, f := range out.OperandVal {
		if f.Op == op {
			return f.Value, true
		}
	}
	return Bottom(), false
}

func TestConstantThroughPhi(t *testing.T) {
	b := newModBuilder()
	main := b.define("main", 0)
	p := main.inst(ir.OpPhi{Values: []*ir.Operand{intConst(7), intConst(7)}}, ir.IntType(64))
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	v, ok := valueOf(out, p.Result)
	require.True(t, ok)
	require.True(t, v.IsConstant())
	assert.Equal(t, uint64(7), v.Value)
	assert.Equal(t, uint32(64), v.Bits)
}

func TestConflictingPhiWidensToTop(t *testing.T) {
	b := newModBuilder()
	main := b.define("main", 0)
	p := main.inst(ir.OpPhi{Values: []*ir.Operand{intConst(7), intConst(9)}}, ir.IntType(64))
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{Metrics: true})

	v, ok := valueOf(out, p.Result)
	require.True(t, ok)
	assert.True(t, v.IsTop())
	require.NotNil(t, out.Metrics)
	assert.Equal(t, 1, out.Metrics.Tops)
}

func TestSelectJoinsBothArms(t *testing.T) {
	b := newModBuilder()
	main := b.define("main", 0)
	same := main.inst(ir.OpSelect{True: intConst(3), False: intConst(3)}, ir.IntType(64))
	diff := main.inst(ir.OpSelect{True: intConst(3), False: intConst(4)}, ir.IntType(64))
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	v, _ := valueOf(out, same.Result)
	assert.True(t, v.IsConstant())
	v, _ = valueOf(out, diff.Result)
	assert.True(t, v.IsTop())
}

func TestArithmeticWidensToTop(t *testing.T) {
	b := newModBuilder()
	main := b.define("main", 0)
	sum := main.inst(ir.OpAdd{Operand0: intConst(3), Operand1: intConst(4)}, ir.IntType(64))
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	v, ok := valueOf(out, sum.Result)
	require.True(t, ok)
	assert.True(t, v.IsTop())
}

func TestCallPropagatesConstants(t *testing.T) {
	b := newModBuilder()
	id := b.define("id", 1)
	id.ret(id.param(0))
	main := b.define("main", 0)
	r := main.call(id.fn, intConst(7))
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	pv, ok := valueOf(out, id.param(0))
	require.True(t, ok)
	require.True(t, pv.IsConstant())
	assert.Equal(t, uint64(7), pv.Value)

	rv, ok := valueOf(out, r.Result)
	require.True(t, ok)
	require.True(t, rv.IsConstant())
	assert.Equal(t, uint64(7), rv.Value)
}

func TestExternalCallReturnsTop(t *testing.T) {
	b := newModBuilder()
	rand := b.declare("rand", ir.IntType(32))
	main := b.define("main", 0)
	r := main.call(rand)
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	v, ok := valueOf(out, r.Result)
	require.True(t, ok)
	assert.True(t, v.IsTop())
}

func TestEveryMainLikeFunctionIsSeeded(t *testing.T) {
	b := newModBuilder()
	exact := b.define("main", 0)
	ep := exact.inst(ir.OpPhi{Values: []*ir.Operand{intConst(1)}}, ir.IntType(64))
	exact.ret(nil)
	mangled := b.define("_ZN3foo4main17h0123456789abcdefE", 0)
	mp := mangled.inst(ir.OpPhi{Values: []*ir.Operand{intConst(2)}}, ir.IntType(64))
	mangled.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	v, ok := valueOf(out, ep.Result)
	require.True(t, ok)
	assert.Equal(t, uint64(1), v.Value)
	v, ok = valueOf(out, mp.Result)
	require.True(t, ok, "every main-like function seeds reachability")
	assert.Equal(t, uint64(2), v.Value)
}

func TestUnreachableFunctionContributesNothing(t *testing.T) {
	b := newModBuilder()
	other := b.define("other", 0)
	p := other.inst(ir.OpPhi{Values: []*ir.Operand{intConst(1)}}, ir.IntType(64))
	other.ret(nil)
	main := b.define("main", 0)
	main.ret(nil)

	out := Analyze(b.mod, nil, Options{})

	_, ok := valueOf(out, p.Result)
	assert.False(t, ok)
}

func TestLatticeJoin(t *testing.T) {
	assert.True(t, Bottom().Join(Bottom()).IsBottom())
	assert.Equal(t, Constant(32, 5), Bottom().Join(Constant(32, 5)))
	assert.Equal(t, Constant(32, 5), Constant(32, 5).Join(Constant(32, 5)))
	assert.True(t, Constant(32, 5).Join(Constant(32, 6)).IsTop())
	assert.True(t, Constant(32, 5).Join(Constant(64, 5)).IsTop(), "differing widths conflict")
	assert.True(t, Top().Join(Bottom()).IsTop())
	assert.True(t, Bottom().Join(Top()).IsTop())
}
