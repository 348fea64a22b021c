package parser

import "github.com/pschiffmann/minic/pkg/ast"

// canBeConvertedTo implements §4.4: implicit conversion is defined only
// between two basic types sharing the same number-type family, where the
// source width is at least the destination width. Everything else —
// pointer-to-pointer, basic-to-pointer, void on either side — is
// incompatible.
func canBeConvertedTo(arena *ast.Arena, from, to ast.Handle) bool {
	fromType, ok := arena.Node(from).(*ast.BasicType)
	if !ok {
		return false
	}
	toType, ok := arena.Node(to).(*ast.BasicType)
	if !ok {
		return false
	}
	if fromType.NumberType.Interpretation() != toType.NumberType.Interpretation() {
		return false
	}
	return fromType.NumberType.SizeInBytes() >= toType.NumberType.SizeInBytes()
}

// asPointerType reports whether h names a PointerType, used when
// validating `*`/`&`/subscript operands.
func asPointerType(arena *ast.Arena, h ast.Handle) (*ast.PointerType, bool) {
	p, ok := arena.Node(h).(*ast.PointerType)
	return p, ok
}

func asBasicType(arena *ast.Arena, h ast.Handle) (*ast.BasicType, bool) {
	b, ok := arena.Node(h).(*ast.BasicType)
	return b, ok
}

func isVoidType(arena *ast.Arena, h ast.Handle) bool {
	_, ok := arena.Node(h).(*ast.VoidType)
	return ok
}

// sameBasicType reports whether a and b are both BasicType and wrap the
// same Number variant, used for the case-label/switch-target type check
// (§4.2.1: "a case label's expression type must match the governing
// switch value's type" — an equality check, not the looser canBeConvertedTo
// direction).
func sameBasicType(arena *ast.Arena, a, b ast.Handle) bool {
	at, ok := asBasicType(arena, a)
	if !ok {
		return false
	}
	bt, ok := asBasicType(arena, b)
	if !ok {
		return false
	}
	return at.NumberType == bt.NumberType
}
