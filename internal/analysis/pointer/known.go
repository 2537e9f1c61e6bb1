package pointer

// heapAllocSizeArg maps a heap-allocating function's name to the index of
// its size argument, when one exists. An entry mapping to -1 means the size
// is not statically tracked.
var heapAllocSizeArg = map[string]int{
	"_Znwm":        0,
	"calloc":       -1,
	"malloc":       0,
	"realloc":      1,
	"reallocarray": -1,
}

func isHeapAllocator(name string) bool {
	_, ok := heapAllocSizeArg[name]
	return ok
}

// knownExternals is the allowlist of external functions exempt from
// needs-signature even though they're reachable, unsignatured, and
// pointer-shaped: the heap-management family, the C string-to-integer
// family, and the assertion functions test harnesses inject.
var knownExternals = map[string]bool{
	"assert_disjoint":            true,
	"assert_may_alias":           true,
	"assert_points_to_nothing":   true,
	"assert_points_to_something": true,
	"assert_reachable":           true,
	"assert_unreachable":         true,
	"__memcpy_chk":               true,
	"calloc":                     true,
	"free":                       true,
	"realloc":                    true,
	"reallocarray":               true,
	"malloc":                     true,
	"_Znwm":                      true,
	"strtol":                     true,
	"strtoll":                    true,
	"strtoul":                    true,
}

// implicitGlobals is the set of external globals that get a fabricated
// companion allocation when the module declares them without an
// initializer: stdio streams, optarg, and glibc's __ctype_b_loc cache.
var implicitGlobals = map[string]bool{
	"stdin":         true,
	"stdout":        true,
	"stderr":        true,
	"optarg":        true,
	"__ctype_b_loc": true,
}

// isFreeName reports whether name is one of the functions whose first
// argument is checked for freeable-ness (the free_non_heap metric).
func isFreeName(name string) bool {
	return name == "free" || name == "realloc" || name == "reallocarray"
}

func isMemcpyName(name string) bool {
	if name == "memcpy" || name == "__memcpy_chk" {
		return true
	}
	return hasPrefix(name, "llvm.memcpy") || hasPrefix(name, "llvm.memmove")
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
