package ast

import (
	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/token"
)

// Expression is satisfied by every expression node. Every expression
// carries a resolved value type, set by the parser once the expression's
// operands are known (a handle to a VariableType definition).
type Expression interface {
	Node
	exprNode()
	ValueType() Handle
	SetValueType(Handle)
}

type exprBase struct {
	base
	valueType Handle
}

func (e *exprBase) exprNode()              {}
func (e *exprBase) ValueType() Handle      { return e.valueType }
func (e *exprBase) SetValueType(h Handle)  { e.valueType = h }

// Literal is a number literal (int, float, or char — chars decode to a
// uint8 code point per §4.1).
type Literal struct {
	exprBase
	Value      int64
	FloatValue float64
	NumberType numeric.Type
}

// VarRef is a reference to an identifier. The parser resolves it when it
// builds the node, against the scope chain in effect at that point, and
// records the name and the definition it names; a name that is defined
// only later in the source is not resolved.
type VarRef struct {
	exprBase
	Name       string
	Definition Handle
}

// Assignment covers `=` and the compound assignment operators; Op is the
// token kind of the operator itself (Assign, PlusAssign, ...).
type Assignment struct {
	exprBase
	Op          token.Kind
	Target      Handle
	Value       Handle
}

// PrefixExpr covers unary prefix operators: `! ~ + - * & ++ -- sizeof`.
type PrefixExpr struct {
	exprBase
	Op      token.Kind
	Operand Handle
}

// PostfixExpr covers postfix `++`/`--`.
type PostfixExpr struct {
	exprBase
	Op      token.Kind
	Operand Handle
}

// InfixExpr covers binary operators other than assignment: arithmetic,
// relational, equality, bitwise, and logical (the latter two kept in the
// same node kind since, unlike the teacher's split BinaryExpr/LogicalExpr,
// short-circuit evaluation is decided by the operator's Op at codegen time,
// not by the node's kind).
type InfixExpr struct {
	exprBase
	Op    token.Kind
	Left  Handle
	Right Handle
}

// TernaryExpr is `cond ? then : else`.
type TernaryExpr struct {
	exprBase
	Condition Handle
	Then      Handle
	Else      Handle
}

// CallExpr is a function call; Args is evaluation order left-to-right.
type CallExpr struct {
	exprBase
	Callee Handle
	Args   []Handle
}

// SubscriptExpr is `target[index]`.
type SubscriptExpr struct {
	exprBase
	Target Handle
	Index  Handle
}

// CastExpr is an explicit `(type)expr` cast.
type CastExpr struct {
	exprBase
	TargetType Handle
	Operand    Handle
}

// exprChildren dispatches an expression node to its direct child handles,
// used by Arena.Children for the node kinds not already handled for
// statements/definitions.
func exprChildren(n Node) []Handle {
	switch e := n.(type) {
	case *Literal, *VarRef:
		return nil
	case *Assignment:
		return nonNegative(e.Target, e.Value)
	case *PrefixExpr:
		return nonNegative(e.Operand)
	case *PostfixExpr:
		return nonNegative(e.Operand)
	case *InfixExpr:
		return nonNegative(e.Left, e.Right)
	case *TernaryExpr:
		return nonNegative(e.Condition, e.Then, e.Else)
	case *CallExpr:
		return append([]Handle{e.Callee}, e.Args...)
	case *SubscriptExpr:
		return nonNegative(e.Target, e.Index)
	case *CastExpr:
		return nonNegative(e.Operand)
	default:
		return nil
	}
}
