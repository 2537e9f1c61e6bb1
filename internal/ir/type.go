package ir

// TypeKind classifies the handful of LLVM type distinctions the analysis
// actually needs. Full type-layout modeling (DataLayout-based sizes, struct
// field offsets) is out of scope -- GEP offsets are not computed, and
// globals are sized only well enough to tell a pointer-to-pointer
// apart from everything else.
type TypeKind int

const (
	TypeOther TypeKind = iota
	TypePointer
	TypeInt
)

// Type is a conservative shadow of an llvm type, retaining only what the
// rules in internal/analysis need: is this a pointer (for needs-signature
// and argv detection), is this an integer of known bit width (for the
// integer analysis' constant lattice), and, for a pointer, what does it
// point to (for Global.Size's pointer-to-pointer special case).
type Type struct {
	Kind    TypeKind
	IntBits uint32
	Pointee *Type
}

// IsPointer reports whether t denotes a pointer type.
func (t Type) IsPointer() bool { return t.Kind == TypePointer }

// PointerType returns a Type describing a pointer to pointee (which may be
// nil when the pointee's shape isn't tracked).
func PointerType(pointee *Type) Type {
	return Type{Kind: TypePointer, Pointee: pointee}
}

// IntType returns a Type describing an integer of the given bit width.
func IntType(bits uint32) Type {
	return Type{Kind: TypeInt, IntBits: bits}
}
