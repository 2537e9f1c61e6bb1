package ir

import "github.com/GaloisInc/yapall/internal/names"

// TerminatorOpcode mirrors Opcode but for block terminators: only Invoke and
// Ret carry payloads the rules need (call resolution, return propagation);
// every branch/switch/exception terminator collapses to OpTermOther, which
// is why this analysis models no explicit control-flow edges at all -- it
// is flow-insensitive by construction, not merely by approximation.
type TerminatorOpcode interface {
	Operands() []*Operand
	terminatorOpcode()
}

type OpInvoke struct {
	Callee Callee
	Args   []*Operand
}

func (OpInvoke) terminatorOpcode() {}

// Operands returns the arguments followed by the callee operand (if any) --
// the reverse of OpCall's callee-first order.
func (o OpInvoke) Operands() []*Operand {
	ops := append([]*Operand{}, o.Args...)
	if o.Callee.Kind == CalleeOperand {
		ops = append(ops, o.Callee.Operand)
	}
	return ops
}

type OpRet struct{ Operand *Operand }

func (OpRet) terminatorOpcode() {}
func (o OpRet) Operands() []*Operand {
	if o.Operand == nil {
		return nil
	}
	return []*Operand{o.Operand}
}

type OpTermOther struct{}

func (OpTermOther) terminatorOpcode()        {}
func (OpTermOther) Operands() []*Operand { return nil }

// Terminator is a block's closing instruction.
type Terminator struct {
	Name   *names.InstructionName
	Opcode TerminatorOpcode
	Type   Type

	// Result is populated only for Invoke (the one terminator whose value
	// other instructions can reference, via its normal-return edge); nil for
	// every other terminator kind.
	Result *Operand
}
