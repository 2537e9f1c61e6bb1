package loader

import (
	"sync"

	llvmir "github.com/llir/llvm/ir"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

// lowerer holds the state shared across one Lower call: the name tables
// built once up front, the two dedup caches for named constants, and the
// per-value lookup tables a function body's operands resolve through.
// mu guards only mod.Functions, the single map defined-function lowering
// goroutines write into; every other field here is either read-only or
// privately owned by one goroutine by the time concurrent lowering starts.
type lowerer struct {
	mod *ir.Module
	mu  sync.Mutex

	funcs   map[string]*names.FunctionName
	globals map[string]*names.GlobalName

	// funcConst and globalConst intern one *ir.Constant per function/global
	// name, deduplicating identity across every use site. Populated under
	// constMu since multiple function-lowering goroutines may reference the
	// same function/global constant at once.
	constMu     sync.Mutex
	funcConst   map[*names.FunctionName]*ir.Constant
	globalConst map[*names.GlobalName]*ir.Constant
}

// funcLowerer holds the state private to lowering one function's body:
// never shared across goroutines, unlike lowerer itself.
type funcLowerer struct {
	*lowerer
	instrOperand map[any]*ir.Operand
	instrName    map[any]*names.InstructionName
}

// internNames registers every function (defined or declared) and global
// variable's interned name up front, before any per-function lowering
// starts -- this is the one piece of shared state every goroutine only
// reads.
func (l *lowerer) internNames(m *llvmir.Module) {
	for _, f := range m.Funcs {
		l.funcs[f.Name()] = &names.FunctionName{Name: f.Name(), Defined: len(f.Blocks) > 0}
	}
	for _, g := range m.Globals {
		l.globals[g.Name()] = &names.GlobalName{Name: g.Name()}
	}
	for _, a := range m.Aliases {
		l.globals[a.Name()] = &names.GlobalName{Name: a.Name()}
	}
}

func ptrToType(t ir.Type) *ir.Type { return &t }

// lowerGlobals lowers every global variable's initializer and conservative
// pointer-ness. Aliases are folded in as ordinary globals whose initializer
// is their aliasee -- LLVM's distinction between a global and an alias to
// one carries no information this analysis' rules consume.
func (l *lowerer) lowerGlobals(m *llvmir.Module) {
	for _, g := range m.Globals {
		gn := l.globals[g.Name()]
		var init *ir.Constant
		if g.Init != nil {
			init = l.lowerConstant(g.Init)
		}
		l.mod.Globals[gn] = &ir.Global{
			Name:        gn,
			Initializer: init,
			IsConst:     g.Immutable,
			Type:        ir.PointerType(ptrToType(lowerType(g.ContentType))),
		}
	}
	for _, a := range m.Aliases {
		gn := l.globals[a.Name()]
		var init *ir.Constant
		if a.Aliasee != nil {
			init = l.lowerConstant(a.Aliasee)
		}
		l.mod.Globals[gn] = &ir.Global{
			Name:        gn,
			Initializer: init,
			IsConst:     true,
			Type:        ir.PointerType(ptrToType(lowerType(a.Typ.ElemType))),
		}
	}
}

// lowerDecls records the signature of every function with no body: an
// external or merely-declared function, the inputs to the needs-signature
// derivation.
func (l *lowerer) lowerDecls(m *llvmir.Module) {
	for _, f := range m.Funcs {
		if len(f.Blocks) > 0 {
			continue
		}
		fn := l.funcs[f.Name()]
		params := make([]ir.Type, len(f.Params))
		for i, p := range f.Params {
			params[i] = lowerType(p.Type())
		}
		l.mod.Decls[fn] = &ir.Decl{
			Name:       fn,
			Parameters: params,
			ReturnType: lowerType(f.Sig.RetType),
		}
	}
}
