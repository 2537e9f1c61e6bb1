package pointer

import "github.com/GaloisInc/yapall/internal/names"

// computeNeedsSignature derives the needs-signature report: a declared
// external function needs a signature when it was actually called from a
// reachable context,
// isn't a memcpy-family intrinsic, isn't on the built-in allowlist, matches
// no signature pattern, and its signature mentions a pointer anywhere.
func (e *engine) computeNeedsSignature() {
	called := make(map[*names.FunctionName]bool)
	for k := range e.calls {
		called[k.callee] = true
	}
	for fn := range called {
		if _, defined := e.mod.Functions[fn]; defined {
			continue
		}
		decl, ok := e.mod.Decls[fn]
		if !ok {
			continue
		}
		if isMemcpyName(fn.Name) {
			continue
		}
		if knownExternals[fn.Name] {
			continue
		}
		if _, matched := e.sigs.For(fn.Name); matched {
			continue
		}
		if !decl.HasPointer() {
			continue
		}
		e.needsSig[fn] = true
	}
}
