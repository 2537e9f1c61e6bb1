// Package loader lowers an LLVM module parsed by github.com/llir/llvm into
// this analysis's own IR model (internal/ir). It is the sole point of
// contact with the LLVM ecosystem: everything downstream of Load operates
// on internal/ir, never on llir/llvm's types directly.
//
// github.com/llir/llvm's asm subpackage is a pure-Go textual-IR assembler,
// not a bitcode reader. Load therefore accepts textual .ll input; a caller
// holding bitcode is expected to have already run it through `llvm-dis`.
package loader

import (
	"fmt"
	"math/big"

	"github.com/llir/llvm/asm"
	llvmir "github.com/llir/llvm/ir"
	llvmtypes "github.com/llir/llvm/ir/types"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
	"github.com/GaloisInc/yapall/internal/perror"
)

// Load parses the LLVM textual IR module at path and lowers it into this
// analysis's IR model.
func Load(path string) (*ir.Module, error) {
	m, err := asm.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return Lower(m)
}

// Lower converts an already-parsed llir/llvm module into this analysis's IR
// model. Exported separately from Load so tests can build a *llvmir.Module
// directly with llir/llvm's own constructors, without a textual .ll file on
// disk.
func Lower(m *llvmir.Module) (*ir.Module, error) {
	l := &lowerer{
		mod:         ir.NewModule(),
		funcs:       make(map[string]*names.FunctionName),
		globals:     make(map[string]*names.GlobalName),
		funcConst:   make(map[*names.FunctionName]*ir.Constant),
		globalConst: make(map[*names.GlobalName]*ir.Constant),
	}

	l.internNames(m)
	l.lowerGlobals(m)
	l.lowerDecls(m)

	// Every defined function's body lowers independently of every other --
	// names, globals and decls are already fully interned above, and the two
	// module-wide constant caches are populated lazily, keyed by the
	// (already-unique) *FunctionName/*GlobalName and guarded by a mutex, so
	// concurrent first uses still yield a single shared *ir.Constant per
	// function/global. Lowering failures
	// from the parallel walk are collected through internal/perror.
	defined := make([]*llvmir.Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if len(f.Blocks) > 0 {
			defined = append(defined, f)
		}
	}

	pe := perror.New(len(defined))
	results := make(chan *ir.Function, len(defined))
	for _, f := range defined {
		f := f
		go func() {
			defer func() {
				if r := recover(); r != nil {
					if irErr, ok := r.(*ir.Error); ok {
						pe.Append(irErr)
						results <- nil
						return
					}
					panic(r)
				}
			}()
			fl := &funcLowerer{
				lowerer:      l,
				instrOperand: make(map[any]*ir.Operand),
				instrName:    make(map[any]*names.InstructionName),
			}
			results <- fl.lowerFunction(f)
		}()
	}
	for range defined {
		if fn := <-results; fn != nil {
			l.mu.Lock()
			l.mod.Functions[fn.Name] = fn
			l.mu.Unlock()
		}
	}
	pe.Stop()
	if errs := pe.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}

	return l.mod, nil
}

func lowerType(t llvmtypes.Type) ir.Type {
	switch tt := t.(type) {
	case *llvmtypes.PointerType:
		pointee := lowerType(tt.ElemType)
		return ir.PointerType(&pointee)
	case *llvmtypes.IntType:
		return ir.IntType(uint32(tt.BitSize))
	default:
		return ir.Type{}
	}
}

// bigToUint64 reduces an arbitrary-precision LLVM integer constant to its
// low 64 bits, two's complement. Only the raw bit pattern matters for
// points-to purposes -- no rule ever interprets an integer constant's sign
// -- so truncation beyond 64 bits (for an i128 or wider literal) loses
// nothing this analysis tracks.
func bigToUint64(v *big.Int) uint64 {
	var bits big.Int
	bits.And(v, new(big.Int).SetUint64(^uint64(0)))
	return bits.Uint64()
}
