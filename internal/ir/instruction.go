package ir

import "github.com/GaloisInc/yapall/internal/names"

// Opcode is the closed set of instruction shapes the rule system
// distinguishes -- everything else (other binary/conversion ops, vector and
// atomic instructions, landingpad/exception machinery) collapses to
// OpOther.
//
// Each concrete type below implements Operands(), the authoritative
// per-opcode operand list the pass-through and points-to rules iterate.
// This mirrors the shape github.com/llir/llvm itself uses for ir.Instruction
// (one concrete Inst* type per opcode implementing a common interface)
// rather than a single struct with a kind tag and unused fields.
type Opcode interface {
	Operands() []*Operand
	opcode()
}

type OpAdd struct{ Operand0, Operand1 *Operand }

func (OpAdd) opcode() {}
func (o OpAdd) Operands() []*Operand { return []*Operand{o.Operand0, o.Operand1} }

type OpAlloca struct{}

func (OpAlloca) opcode()              {}
func (OpAlloca) Operands() []*Operand { return nil }

type OpBitCast struct{ Pointer *Operand }

func (OpBitCast) opcode()              {}
func (o OpBitCast) Operands() []*Operand { return []*Operand{o.Pointer} }

type OpCall struct {
	Callee Callee
	Args   []*Operand
}

func (OpCall) opcode() {}

// Operands returns the callee operand first (if any), then the arguments --
// the reverse of OpInvoke's callee-last order.
func (o OpCall) Operands() []*Operand {
	ops := make([]*Operand, 0, len(o.Args)+1)
	if o.Callee.Kind == CalleeOperand {
		ops = append(ops, o.Callee.Operand)
	}
	return append(ops, o.Args...)
}

type OpGetElementPtr struct {
	Pointer *Operand
	Indices []*Operand
	// Offset is the statically-known byte offset. internal/loader does not
	// compute it, so it is nil for every lowered GEP.
	Offset *int64
}

func (OpGetElementPtr) opcode() {}
func (o OpGetElementPtr) Operands() []*Operand {
	return append(append([]*Operand{}, o.Indices...), o.Pointer)
}

type OpICmp struct{ Operand0, Operand1 *Operand }

func (OpICmp) opcode()              {}
func (o OpICmp) Operands() []*Operand { return []*Operand{o.Operand0, o.Operand1} }

type OpIntToPtr struct{ Int *Operand }

func (OpIntToPtr) opcode()              {}
func (o OpIntToPtr) Operands() []*Operand { return []*Operand{o.Int} }

type OpLoad struct{ Pointer *Operand }

func (OpLoad) opcode()              {}
func (o OpLoad) Operands() []*Operand { return []*Operand{o.Pointer} }

type OpPhi struct{ Values []*Operand }

func (OpPhi) opcode()              {}
func (o OpPhi) Operands() []*Operand { return o.Values }

type OpPtrToInt struct{ Pointer *Operand }

func (OpPtrToInt) opcode()              {}
func (o OpPtrToInt) Operands() []*Operand { return []*Operand{o.Pointer} }

type OpSelect struct{ True, False *Operand }

func (OpSelect) opcode()              {}
func (o OpSelect) Operands() []*Operand { return []*Operand{o.True, o.False} }

type OpStore struct{ Value, Pointer *Operand }

func (OpStore) opcode()              {}
func (o OpStore) Operands() []*Operand { return []*Operand{o.Value, o.Pointer} }

type OpSub struct{ Minuend, Subtrahend *Operand }

func (OpSub) opcode()              {}
func (o OpSub) Operands() []*Operand { return []*Operand{o.Minuend, o.Subtrahend} }

type OpOther struct{}

func (OpOther) opcode()              {}
func (OpOther) Operands() []*Operand { return nil }

// Instruction is one instruction inside a Block, with a stable name and the
// type the rules need (pointer-ness, int width).
type Instruction struct {
	Name   *names.InstructionName
	Opcode Opcode
	Type   Type

	// Result is the operand other instructions use to reference this
	// instruction's value. For a void instruction it is still populated
	// (some callers key lookups by instruction regardless of whether the
	// result is ever consumed), interned once by the same FunctionBuilder
	// call that produced Name.
	Result *Operand
}
