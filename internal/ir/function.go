package ir

import "github.com/GaloisInc/yapall/internal/names"

// Function is a defined function: an ordered parameter list and ordered
// basic blocks, each with its own ordered instructions and terminator.
type Function struct {
	Name       *names.FunctionName
	Parameters []*Operand
	Blocks     []*Block
	ReturnType Type
}

// Block is one basic block.
type Block struct {
	Name         *names.BlockName
	Instructions []*Instruction
	Terminator   *Terminator
}

// Decl is a function declaration (an external function with no body in this
// module).
type Decl struct {
	Name       *names.FunctionName
	Parameters []Type
	ReturnType Type
}

// HasPointer reports whether the declaration's signature mentions a pointer
// anywhere, in its return type or its parameters -- the last of the five
// needs-signature conditions.
func (d *Decl) HasPointer() bool {
	if d.ReturnType.IsPointer() {
		return true
	}
	for _, p := range d.Parameters {
		if p.IsPointer() {
			return true
		}
	}
	return false
}

// Global is a global variable or alias.
type Global struct {
	Name        *names.GlobalName
	Initializer *Constant
	IsConst     bool
	Type        Type
}

// Size returns the global's conservative byte size: 8 when the pointee is
// itself a pointer (a pointer-to-pointer global, always 8 bytes on every
// target this engine cares about), and unknown otherwise. Deliberately
// coarse; full DataLayout-driven sizing is out of scope.
func (g *Global) Size() *uint64 {
	if !g.Type.IsPointer() || g.Type.Pointee == nil {
		return nil
	}
	if g.Type.Pointee.Kind != TypePointer {
		return nil
	}
	sz := uint64(8)
	return &sz
}

// Module is the fully-lowered, read-only IR the fixpoint engine consumes.
type Module struct {
	Functions map[*names.FunctionName]*Function
	Decls     map[*names.FunctionName]*Decl
	Globals   map[*names.GlobalName]*Global
}

func NewModule() *Module {
	return &Module{
		Functions: make(map[*names.FunctionName]*Function),
		Decls:     make(map[*names.FunctionName]*Decl),
		Globals:   make(map[*names.GlobalName]*Global),
	}
}

// AllFunctionNames returns every function name known to the module,
// defined or declared -- used by the Top-widening indirect call rule.
func (m *Module) AllFunctionNames() []*names.FunctionName {
	out := make([]*names.FunctionName, 0, len(m.Functions)+len(m.Decls))
	for n := range m.Functions {
		out = append(out, n)
	}
	for n := range m.Decls {
		out = append(out, n)
	}
	return out
}

// ParamCount returns the declared arity of a function name, whether it is
// defined or merely declared. Used by the arity-lower-bound widening rule
// for indirect and Asm calls.
func (m *Module) ParamCount(n *names.FunctionName) int {
	if f, ok := m.Functions[n]; ok {
		return len(f.Parameters)
	}
	if d, ok := m.Decls[n]; ok {
		return len(d.Parameters)
	}
	return 0
}

// FunctionBuilder assists lowering a single function's body while
// preserving the pass-through identity-sharing optimization: when a pass-through
// instruction's (BitCast/PtrToInt/IntToPtr; not GEP) source operand is itself a
// local, the result shares that operand's identity directly rather than
// allocating a fresh one naming the instruction. This must happen while
// the locals map is being built, in a two-pass shape: first register every
// instruction's result name (and decide pass-thru sharing), second build instruction
// bodies referencing already-registered operands, since LLVM instructions
// may reference results defined later in the block.
type FunctionBuilder struct {
	fn     *names.FunctionName
	locals map[string]*Operand
}

func NewFunctionBuilder(fn *names.FunctionName) *FunctionBuilder {
	return &FunctionBuilder{fn: fn, locals: make(map[string]*Operand)}
}

// AddParameter interns a parameter name and operand. Must be called exactly
// once per parameter, in order -- this is one of the three sites (the only
// one for parameters) that constructs a ParameterName.
func (b *FunctionBuilder) AddParameter(id, llvmName string) *Operand {
	pn := &names.ParameterName{Parent: b.fn, Name: llvmName}
	op := NewLocalOperand(&names.LocalName{Parameter: pn})
	b.locals[id] = op
	return op
}

// DefineResult registers the result-producing instruction at id (block,
// index) and decides whether it shares identity with passThroughSource (a
// nil source, or a non-local source, both mean "no sharing": allocate a
// fresh InstructionName-backed operand). Returns the interned instruction
// name. This is one of the three sites that constructs an InstructionName.
func (b *FunctionBuilder) DefineResult(id string, blockName *names.BlockName, index int, passThroughSource *Operand) *names.InstructionName {
	in := &names.InstructionName{Parent: b.fn, Block: blockName, Index: index}
	if passThroughSource != nil && passThroughSource.Kind == OperandLocal {
		b.locals[id] = passThroughSource
	} else {
		b.locals[id] = NewLocalOperand(&names.LocalName{Instruction: in})
	}
	return in
}

// LocalOperand resolves a previously-registered id to its operand. The
// bool is false when id names a local never defined in this function --
// lowering must treat that as a malformed-module error.
func (b *FunctionBuilder) LocalOperand(id string) (*Operand, bool) {
	op, ok := b.locals[id]
	return op, ok
}
