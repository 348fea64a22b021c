package parser

import (
	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/numeric"
)

// builtinTypes lists the dialect's built-in type names and the Number
// variant each resolves to, in the order §6 enumerates them. void has no
// Number variant and is registered separately.
var builtinTypes = []struct {
	name string
	nt   numeric.Type
}{
	{"char", numeric.Sint8},
	{"short", numeric.Sint16},
	{"int", numeric.Sint32},
	{"long", numeric.Sint64},
	{"float", numeric.Fp32},
	{"double", numeric.Fp64},
}

// registerBuiltins populates the global scope with the built-in type names
// before any parsing happens. Per §4.2.3 these are ordinary identifiers,
// never keywords: a type specifier is recognized by resolving an
// IDENTIFIER through the current scope to a VariableType, not by token
// kind. It also returns the handle of "int" and "void", needed repeatedly
// during parsing (the implicit type of relational results, main's required
// return type).
func registerBuiltins(a *ast.Arena, global *ast.Scope) (intType, voidType ast.Handle, byNumberType map[numeric.Type]ast.Handle) {
	byNumberType = make(map[numeric.Type]ast.Handle, len(builtinTypes))
	for _, bt := range builtinTypes {
		h := ast.NewBasicType(a, bt.name, bt.nt)
		if err := global.Define(bt.name, h); err != nil {
			panic("registerBuiltins: " + err.Error())
		}
		byNumberType[bt.nt] = h
		if bt.name == "int" {
			intType = h
		}
	}

	voidType = ast.NewVoidType(a, "void")
	if err := global.Define("void", voidType); err != nil {
		panic("registerBuiltins: " + err.Error())
	}

	// The lexer types `u`/`ul`-suffixed integer literals as uint32/uint64
	// and char literals as uint8 (§4.1), even though the dialect spells no "unsigned"
	// type keyword. Register anonymous BasicTypes for the unsigned
	// variants too, purely so such a literal still resolves a value type;
	// they are never reachable through parseTypeSpecifier since nothing
	// defines them in any scope.
	for _, nt := range []numeric.Type{numeric.Uint8, numeric.Uint16, numeric.Uint32, numeric.Uint64} {
		byNumberType[nt] = ast.NewBasicType(a, "", nt)
	}

	return intType, voidType, byNumberType
}
