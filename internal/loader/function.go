package loader

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
	llvmtypes "github.com/llir/llvm/ir/types"
	llvmvalue "github.com/llir/llvm/ir/value"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

// lowerFunction lowers one defined function's body in the two-pass shape
// internal/ir.FunctionBuilder documents: first every instruction and
// terminator result is registered (deciding pass-through identity sharing
// for the unary conversion opcodes along the way), then every instruction
// body is built referencing the now-fully-registered operand table.
//
// The pass-thru sharing decision only looks backward through values already
// registered earlier in this same walk, matching how LLVM's own verifier
// requires a non-phi use to be dominated by its definition: for the
// overwhelming majority of modules (anything not hand-assembled to exploit
// the verifier's narrower dominance-vs-textual-order distinction), walking
// blocks and instructions in the order llir/llvm lists them satisfies this.
// A forward reference across blocks in that rare case falls back to "no
// sharing" for the affected instruction rather than erroring -- a precision
// loss, not unsoundness, and one assumed not to arise from any real
// compiler's output.
func (fl *funcLowerer) lowerFunction(f *llvmir.Func) *ir.Function {
	fn := fl.funcs[f.Name()]
	fb := ir.NewFunctionBuilder(fn)

	out := &ir.Function{
		Name:       fn,
		ReturnType: lowerType(f.Sig.RetType),
	}
	for _, p := range f.Params {
		op := fb.AddParameter(paramID(p), p.Name())
		out.Parameters = append(out.Parameters, op)
		fl.instrOperand[p] = op
	}

	blockNames := make(map[*llvmir.Block]*names.BlockName, len(f.Blocks))
	for _, b := range f.Blocks {
		blockNames[b] = &names.BlockName{Parent: fn, Name: b.Name()}
	}

	for _, b := range f.Blocks {
		bn := blockNames[b]
		for idx, inst := range b.Insts {
			fl.registerInst(fb, bn, idx, inst)
		}
		fl.registerTerm(fb, bn, len(b.Insts), b.Term)
	}

	for _, b := range f.Blocks {
		block := &ir.Block{Name: blockNames[b]}
		for _, inst := range b.Insts {
			block.Instructions = append(block.Instructions, fl.buildInst(inst))
		}
		block.Terminator = fl.buildTerm(b.Term)
		out.Blocks = append(out.Blocks, block)
	}

	return out
}

func paramID(p *llvmir.Param) string { return fmt.Sprintf("%p", p) }

// registerInst reserves instr's result operand, sharing identity with its
// source for a BitCast/PtrToInt/IntToPtr whose source is already a
// registered local. GetElementPtr is deliberately not included here even
// though it is one of the four pass-thru opcodes in internal/ir's
// instruction model: a GEP always carries index operands of its own that
// the points-to rules must still see individually, so its pass-thru
// propagation is handled by the rules layer (internal/analysis/pointer)
// reactively rather than by identity-sharing at construction time.
func (fl *funcLowerer) registerInst(fb *ir.FunctionBuilder, bn *names.BlockName, idx int, inst llvmir.Instruction) {
	var src llvmvalue.Value
	switch ii := inst.(type) {
	case *llvmir.InstBitCast:
		src = ii.From
	case *llvmir.InstPtrToInt:
		src = ii.From
	case *llvmir.InstIntToPtr:
		src = ii.From
	}
	var passThru *ir.Operand
	if src != nil {
		if op, ok := fl.instrOperand[src]; ok {
			passThru = op
		}
	}
	id := fmt.Sprintf("%p", inst)
	name := fb.DefineResult(id, bn, idx, passThru)
	op, _ := fb.LocalOperand(id)
	fl.instrOperand[inst] = op
	fl.instrName[inst] = name
}

func (fl *funcLowerer) registerTerm(fb *ir.FunctionBuilder, bn *names.BlockName, idx int, term llvmir.Terminator) {
	id := fmt.Sprintf("%p", term)
	name := fb.DefineResult(id, bn, idx, nil)
	op, _ := fb.LocalOperand(id)
	fl.instrOperand[term] = op
	fl.instrName[term] = name
}

func (fl *funcLowerer) buildInst(inst llvmir.Instruction) *ir.Instruction {
	name := fl.instrName[inst]
	result := fl.instrOperand[inst]

	switch ii := inst.(type) {
	case *llvmir.InstAlloca:
		return &ir.Instruction{Name: name, Opcode: ir.OpAlloca{}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstLoad:
		return &ir.Instruction{Name: name, Opcode: ir.OpLoad{Pointer: fl.resolveOperand(ii.Src)}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstStore:
		return &ir.Instruction{Name: name, Opcode: ir.OpStore{Value: fl.resolveOperand(ii.Src), Pointer: fl.resolveOperand(ii.Dst)}, Result: result}
	case *llvmir.InstGetElementPtr:
		if _, ok := ii.Src.Type().(*llvmtypes.PointerType); !ok {
			panic(ir.Errorf("getelementptr computed on non-pointer type"))
		}
		idxs := make([]*ir.Operand, len(ii.Indices))
		for i, v := range ii.Indices {
			idxs[i] = fl.resolveOperand(v)
		}
		return &ir.Instruction{Name: name, Opcode: ir.OpGetElementPtr{Pointer: fl.resolveOperand(ii.Src), Indices: idxs}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstBitCast:
		return &ir.Instruction{Name: name, Opcode: ir.OpBitCast{Pointer: fl.resolveOperand(ii.From)}, Type: lowerType(ii.To), Result: result}
	case *llvmir.InstPtrToInt:
		return &ir.Instruction{Name: name, Opcode: ir.OpPtrToInt{Pointer: fl.resolveOperand(ii.From)}, Type: lowerType(ii.To), Result: result}
	case *llvmir.InstIntToPtr:
		return &ir.Instruction{Name: name, Opcode: ir.OpIntToPtr{Int: fl.resolveOperand(ii.From)}, Type: lowerType(ii.To), Result: result}
	case *llvmir.InstICmp:
		return &ir.Instruction{Name: name, Opcode: ir.OpICmp{Operand0: fl.resolveOperand(ii.X), Operand1: fl.resolveOperand(ii.Y)}, Type: ir.IntType(1), Result: result}
	case *llvmir.InstAdd:
		return &ir.Instruction{Name: name, Opcode: ir.OpAdd{Operand0: fl.resolveOperand(ii.X), Operand1: fl.resolveOperand(ii.Y)}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstSub:
		return &ir.Instruction{Name: name, Opcode: ir.OpSub{Minuend: fl.resolveOperand(ii.X), Subtrahend: fl.resolveOperand(ii.Y)}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstPhi:
		vals := make([]*ir.Operand, len(ii.Incs))
		for i, inc := range ii.Incs {
			vals[i] = fl.resolveOperand(inc.X)
		}
		return &ir.Instruction{Name: name, Opcode: ir.OpPhi{Values: vals}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstSelect:
		return &ir.Instruction{Name: name, Opcode: ir.OpSelect{True: fl.resolveOperand(ii.ValueTrue), False: fl.resolveOperand(ii.ValueFalse)}, Type: lowerType(ii.Type()), Result: result}
	case *llvmir.InstCall:
		args := make([]*ir.Operand, len(ii.Args))
		for i, a := range ii.Args {
			args[i] = fl.resolveOperand(a)
		}
		return &ir.Instruction{Name: name, Opcode: ir.OpCall{Callee: fl.resolveCallee(ii.Callee), Args: args}, Type: lowerType(ii.Type()), Result: result}
	default:
		return &ir.Instruction{Name: name, Opcode: ir.OpOther{}, Result: result}
	}
}

func (fl *funcLowerer) buildTerm(term llvmir.Terminator) *ir.Terminator {
	name := fl.instrName[term]
	switch tt := term.(type) {
	case *llvmir.TermRet:
		var op *ir.Operand
		if tt.X != nil {
			op = fl.resolveOperand(tt.X)
		}
		return &ir.Terminator{Name: name, Opcode: ir.OpRet{Operand: op}}
	case *llvmir.TermInvoke:
		args := make([]*ir.Operand, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = fl.resolveOperand(a)
		}
		return &ir.Terminator{
			Name:   name,
			Opcode: ir.OpInvoke{Callee: fl.resolveCallee(tt.Invokee), Args: args},
			Type:   lowerType(tt.Type()),
			Result: fl.instrOperand[term],
		}
	default:
		return &ir.Terminator{Name: name, Opcode: ir.OpTermOther{}}
	}
}
