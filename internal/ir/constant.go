package ir

import (
	"fmt"

	"github.com/GaloisInc/yapall/internal/names"
)

// ConstantKind is the closed set of LLVM constant shapes the engine
// distinguishes. Everything LLVM can express that isn't one of these
// collapses to ConstantOther -- floats, vectors, aggregate-zero, poison,
// block addresses and the comparison/arithmetic constant expressions carry
// no points-to information, so they get no dedicated payloads.
type ConstantKind int

const (
	ConstantFunction ConstantKind = iota
	ConstantGlobal
	ConstantInt
	ConstantNull
	ConstantUndef
	ConstantArray
	ConstantStruct
	ConstantBitCast
	ConstantGetElementPtr
	ConstantPtrToInt
	ConstantIntToPtr
	ConstantOther
)

// Constant is a closed sum over LLVM constant expressions. Only the fields
// relevant to Kind are populated; see the Kind-named constructors below,
// which are the only way to build one.
type Constant struct {
	Kind ConstantKind

	Function *names.FunctionName // ConstantFunction
	Global   *names.GlobalName   // ConstantGlobal
	IntBits  uint32              // ConstantInt
	IntValue uint64              // ConstantInt

	Elements []*Constant // ConstantArray, ConstantStruct

	// Inner is the sub-constant for the pass-through expressions: the
	// bitcast/GEP/ptrtoint/inttoptr operand. Note the GEP constant payload
	// (unlike the GEP instruction) carries only this base pointer -- no
	// index list -- since constant-expression GEPs only ever matter here
	// for what they point to, never for their offset.
	Inner *Constant
}

func NewFunctionConstant(f *names.FunctionName) *Constant {
	return &Constant{Kind: ConstantFunction, Function: f}
}

func NewGlobalConstant(g *names.GlobalName) *Constant {
	return &Constant{Kind: ConstantGlobal, Global: g}
}

func NewIntConstant(bits uint32, value uint64) *Constant {
	return &Constant{Kind: ConstantInt, IntBits: bits, IntValue: value}
}

func NewNullConstant() *Constant { return &Constant{Kind: ConstantNull} }

func NewUndefConstant() *Constant { return &Constant{Kind: ConstantUndef} }

func NewArrayConstant(elems []*Constant) *Constant {
	return &Constant{Kind: ConstantArray, Elements: elems}
}

func NewStructConstant(fields []*Constant) *Constant {
	return &Constant{Kind: ConstantStruct, Elements: fields}
}

func NewBitCastConstant(inner *Constant) *Constant {
	return &Constant{Kind: ConstantBitCast, Inner: inner}
}

func NewGetElementPtrConstant(pointer *Constant) *Constant {
	return &Constant{Kind: ConstantGetElementPtr, Inner: pointer}
}

func NewPtrToIntConstant(pointer *Constant) *Constant {
	return &Constant{Kind: ConstantPtrToInt, Inner: pointer}
}

func NewIntToPtrConstant(i *Constant) *Constant {
	return &Constant{Kind: ConstantIntToPtr, Inner: i}
}

func NewOtherConstant() *Constant { return &Constant{Kind: ConstantOther} }

// Pointers returns the sub-constants whose points-to must be propagated
// when this constant is used as an operand: itself for the base cases
// (Function, Global, Int, Null, Undef), the recursively-unrolled payload
// for pass-through expressions and aggregates, and nothing for every
// opaque/arithmetic constant kind.
func (c *Constant) Pointers() []*Constant {
	switch c.Kind {
	case ConstantFunction, ConstantGlobal, ConstantInt, ConstantNull, ConstantUndef:
		return []*Constant{c}
	case ConstantBitCast, ConstantGetElementPtr, ConstantPtrToInt, ConstantIntToPtr:
		return c.Inner.Pointers()
	case ConstantArray, ConstantStruct:
		var out []*Constant
		for _, e := range c.Elements {
			out = append(out, e.Pointers()...)
		}
		return out
	default:
		return nil
	}
}

func (c *Constant) String() string {
	switch c.Kind {
	case ConstantFunction:
		return c.Function.String()
	case ConstantGlobal:
		return c.Global.String()
	case ConstantInt:
		return fmt.Sprintf("i%d %d", c.IntBits, c.IntValue)
	case ConstantNull:
		return "null"
	case ConstantUndef:
		return "undef"
	default:
		return "<const>"
	}
}
