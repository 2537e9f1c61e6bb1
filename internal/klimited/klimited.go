// Package klimited implements the k-limited call-string context: a bounded
// deque of call sites recording the last k dynamic callers.
package klimited

import "github.com/GaloisInc/yapall/internal/names"

// Context is an immutable k-limited call string. The zero value is the
// empty context main starts in. Context holds a slice and so is not
// comparable (a fixed-capacity array would be, but k is a runtime parameter
// here); maps throughout internal/analysis are keyed by its string Key
// instead.
type Context struct {
	k     int
	key   string
	elems []*names.InstructionName // oldest first
}

// Empty returns the empty context for a k-limited analysis with the given
// depth. k=0 disables context sensitivity entirely: every Push on such a
// Context is a no-op, so every reachable call collapses to the same, empty,
// context.
func Empty(k int) Context {
	return Context{k: k}
}

// Push returns the context produced by calling through site from ctx. When
// k=0 this returns ctx unchanged. Otherwise the new call site is appended
// and, once length exceeds k, the oldest entry is dropped.
func (c Context) Push(site *names.InstructionName) Context {
	if c.k == 0 {
		return c
	}
	elems := make([]*names.InstructionName, 0, c.k)
	start := 0
	if len(c.elems)+1 > c.k {
		start = len(c.elems) + 1 - c.k
	}
	elems = append(elems, c.elems[start:]...)
	elems = append(elems, site)
	return Context{k: c.k, key: buildKey(elems), elems: elems}
}

// Sites returns the call sites, oldest first.
func (c Context) Sites() []*names.InstructionName { return c.elems }

// Key returns a value suitable for use as a map key: Context itself
// contains a slice and so is not comparable, but its Key is. The key is
// precomputed at construction -- the engines re-key contexts on every
// relation insertion, so recomputing here would dominate fixpoint time.
func (c Context) Key() string { return c.key }

func buildKey(elems []*names.InstructionName) string {
	var b []byte
	for _, s := range elems {
		b = append(b, []byte(s.String())...)
		b = append(b, 0)
	}
	return string(b)
}

func (c Context) String() string {
	s := "["
	for i, e := range c.elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}
