package codegen

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/numeric"
)

// pointerNumericType is the runtime representation of every pointer value:
// an unsigned word as wide as the parser's configured pointer size. The
// parser only ever configures a 4-byte pointer (parser.DefaultPointerSize),
// so this is fixed rather than threaded through from a PointerType's own
// PointerSize field.
var pointerNumericType = numeric.Uint32

// numberTypeOf resolves a VariableType handle to the numeric.Type its
// values are pushed/popped as: a BasicType's own Number variant, or
// pointerNumericType for a PointerType. It panics on VoidType, which never
// names a value.
func numberTypeOf(arena *ast.Arena, h ast.Handle) numeric.Type {
	switch t := arena.Node(h).(type) {
	case *ast.BasicType:
		return t.NumberType
	case *ast.PointerType:
		return pointerNumericType
	default:
		panic(fmt.Sprintf("codegen: %T has no runtime representation", t))
	}
}

// widthOf is numberTypeOf(h).SizeInBytes().
func widthOf(arena *ast.Arena, h ast.Handle) int {
	return numberTypeOf(arena, h).SizeInBytes()
}

func isVoidType(arena *ast.Arena, h ast.Handle) bool {
	_, ok := arena.Node(h).(*ast.VoidType)
	return ok
}

func asPointerType(arena *ast.Arena, h ast.Handle) (*ast.PointerType, bool) {
	p, ok := arena.Node(h).(*ast.PointerType)
	return p, ok
}

// typeOf returns the resolved value type of an already-typed expression
// node.
func typeOf(arena *ast.Arena, h ast.Handle) ast.Handle {
	return arena.Node(h).(ast.Expression).ValueType()
}
