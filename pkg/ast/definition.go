package ast

import "github.com/pschiffmann/minic/pkg/numeric"

// Definition is satisfied by every entry a Scope can hold: types,
// variables, and function definitions.
type Definition interface {
	Node
	defNode()
	Name() string
}

type defBase struct {
	base
	name string
}

func (d *defBase) defNode()     {}
func (d *defBase) Name() string { return d.name }

// VariableType is the sub-interface of Definition satisfied by BasicType,
// VoidType, and PointerType — the three kinds of type a variable or
// parameter can be declared with.
type VariableType interface {
	Definition
	variableTypeNode()
}

type varTypeBase struct{ defBase }

func (v *varTypeBase) variableTypeNode() {}

// BasicType wraps one of the ten Number variants as a named type (e.g.
// "int" wraps numeric.Sint32).
type BasicType struct {
	varTypeBase
	NumberType numeric.Type
}

// VoidType is the type of a function with no return value.
type VoidType struct {
	varTypeBase
}

// PointerType wraps a target type, carrying the pointer's own size in
// bytes — the parser's configured pointer size (§9: "32-bit pointer size
// is the configured default for the parser").
type PointerType struct {
	varTypeBase
	Target      Handle
	PointerSize int
}

// Variable is a variable definition: a global, a local, or a parameter.
type Variable struct {
	defBase
	Const       bool
	DeclaredType Handle // -> VariableType
	Initializer Handle  // -> Expression, NoHandle if none
}

// FunctionDefinition is a function: its return type, its ordered parameter
// list (itself a Scope so parameter names resolve inside the body), and its
// body.
type FunctionDefinition struct {
	defBase
	ReturnType Handle // -> VariableType
	Params     *Scope
	ParamOrder []Handle // -> Variable, in declaration order
	Body       Handle   // -> CompoundStatement
}

// NewBasicType, NewVoidType, and NewPointerType construct the three
// VariableType variants and insert them into the arena.
func NewBasicType(a *Arena, name string, nt numeric.Type) Handle {
	return a.Add(&BasicType{varTypeBase: varTypeBase{defBase{base: base{parent: NoHandle}, name: name}}, NumberType: nt}, NoHandle)
}

func NewVoidType(a *Arena, name string) Handle {
	return a.Add(&VoidType{varTypeBase{defBase{base: base{parent: NoHandle}, name: name}}}, NoHandle)
}

func NewPointerType(a *Arena, target Handle, pointerSize int) Handle {
	name := "*" // anonymous; pointer types are not looked up by name
	return a.Add(&PointerType{
		varTypeBase: varTypeBase{defBase{base: base{parent: NoHandle}, name: name}},
		Target:      target,
		PointerSize: pointerSize,
	}, NoHandle)
}

// NewVariable constructs a Variable definition (global, local, or
// parameter) and inserts it into the arena under parent. The returned
// pointer lets the caller fill in Initializer once it's parsed, which for
// a variable with an initializer happens after the Variable node itself
// already needs a handle to parent its initializer expression against.
func NewVariable(a *Arena, parent Handle, name string, constFlag bool, declaredType Handle) (*Variable, Handle) {
	v := &Variable{defBase: defBase{name: name}, Const: constFlag, DeclaredType: declaredType, Initializer: NoHandle}
	h := a.Add(v, parent)
	return v, h
}

// NewFunctionDefinition constructs a FunctionDefinition and inserts it
// into the arena. Params/ParamOrder/Body are filled in by the caller as
// parsing of the signature and body proceeds.
func NewFunctionDefinition(a *Arena, parent Handle, name string, returnType Handle) (*FunctionDefinition, Handle) {
	fn := &FunctionDefinition{defBase: defBase{name: name}, ReturnType: returnType, Body: NoHandle}
	h := a.Add(fn, parent)
	return fn, h
}
