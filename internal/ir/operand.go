package ir

import "github.com/GaloisInc/yapall/internal/names"

// OperandKind distinguishes the three operand shapes an instruction or
// terminator may reference.
type OperandKind int

const (
	OperandConstant OperandKind = iota
	OperandLocal
	OperandMetadata
)

// Operand is a constant, a local (parameter or instruction result), or
// opaque metadata. Operands referencing the same local are interned to the
// same *Operand during IR construction (see function.go), so pointer
// equality on *Operand matches the Unique-wrapper contract the pass-through
// identity-sharing optimization depends on.
type Operand struct {
	Kind     OperandKind
	Constant *Constant
	Local    *names.LocalName
}

func NewConstantOperand(c *Constant) *Operand {
	return &Operand{Kind: OperandConstant, Constant: c}
}

func NewLocalOperand(l *names.LocalName) *Operand {
	return &Operand{Kind: OperandLocal, Local: l}
}

func NewMetadataOperand() *Operand {
	return &Operand{Kind: OperandMetadata}
}

// ConstantInt returns the operand's integer value when it is a constant
// int, and ok=false otherwise.
func (o *Operand) ConstantInt() (value uint64, bits uint32, ok bool) {
	if o.Kind == OperandConstant && o.Constant.Kind == ConstantInt {
		return o.Constant.IntValue, o.Constant.IntBits, true
	}
	return 0, 0, false
}

func (o *Operand) String() string {
	switch o.Kind {
	case OperandConstant:
		return o.Constant.String()
	case OperandLocal:
		return o.Local.String()
	default:
		return "<metadata>"
	}
}

// CalleeKind distinguishes a normal callee operand from inline assembly.
type CalleeKind int

const (
	CalleeOperand CalleeKind = iota
	CalleeAsm
)

// Callee is the target of a Call instruction or Invoke terminator: either a
// regular operand (possibly indirect, through a local) or inline asm, which
// internal/analysis/pointer treats as calling every arity-compatible
// function and internal/analysis/callgraph as calling every function.
type Callee struct {
	Kind     CalleeKind
	Operand  *Operand
}

func OperandCallee(op *Operand) Callee { return Callee{Kind: CalleeOperand, Operand: op} }
func AsmCallee() Callee                { return Callee{Kind: CalleeAsm} }
