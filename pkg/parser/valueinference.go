package parser

import (
	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/token"
)

// currentLine returns the source line of the token under the cursor, used
// to attach a line number to validation errors raised while an expression
// node is still being assembled (the AST itself carries no spans; only
// tokens do, per §3's Token data model).
func (p *Parser) currentLine() int {
	tok, err := p.lex.Current()
	if err != nil {
		return 0
	}
	return tok.Span.Line
}

// inferValueType computes and stores the resolved value type of a
// just-constructed expression node, once its operands' types are already
// known (every expression in this grammar is parsed bottom-up, so that
// invariant always holds by the time this runs).
func (p *Parser) inferValueType(h ast.Handle, n ast.Expression) error {
	switch e := n.(type) {
	case *ast.Literal:
		t, ok := p.byNumberType[e.NumberType]
		if !ok {
			return violation(p.currentLine(), "no built-in type for literal number type %s", e.NumberType)
		}
		e.SetValueType(t)

	case *ast.VarRef:
		if e.Definition == ast.NoHandle {
			return violation(p.currentLine(), "undefined name %q", e.Name)
		}
		switch def := p.arena.Node(e.Definition).(type) {
		case *ast.Variable:
			e.SetValueType(def.DeclaredType)
		case *ast.FunctionDefinition:
			e.SetValueType(def.ReturnType)
		default:
			return violation(p.currentLine(), "%q does not name a value", e.Name)
		}

	case *ast.Assignment:
		e.SetValueType(p.typeOf(e.Target))

	case *ast.PrefixExpr:
		if err := p.inferPrefixType(h, e); err != nil {
			return err
		}

	case *ast.PostfixExpr:
		e.SetValueType(p.typeOf(e.Operand))

	case *ast.InfixExpr:
		if err := p.inferInfixType(e); err != nil {
			return err
		}

	case *ast.TernaryExpr:
		e.SetValueType(p.typeOf(e.Then))

	case *ast.CallExpr:
		if err := p.inferCallType(e); err != nil {
			return err
		}

	case *ast.SubscriptExpr:
		if err := p.inferSubscriptType(e); err != nil {
			return err
		}

	case *ast.CastExpr:
		e.SetValueType(e.TargetType)
	}
	return nil
}

func (p *Parser) typeOf(h ast.Handle) ast.Handle {
	return p.arena.Node(h).(ast.Expression).ValueType()
}

func (p *Parser) inferPrefixType(h ast.Handle, e *ast.PrefixExpr) error {
	switch e.Op {
	case token.Amp:
		e.SetValueType(ast.NewPointerType(p.arena, p.typeOf(e.Operand), p.pointerSize))
	case token.Star:
		ptr, ok := asPointerType(p.arena, p.typeOf(e.Operand))
		if !ok {
			return violation(p.currentLine(), "cannot dereference a non-pointer expression")
		}
		e.SetValueType(ptr.Target)
	case token.Bang, token.KwSizeof:
		e.SetValueType(p.intType)
	default:
		e.SetValueType(p.typeOf(e.Operand))
	}
	return nil
}

func (p *Parser) inferInfixType(e *ast.InfixExpr) error {
	if isComparisonOrLogical(e.Op) {
		e.SetValueType(p.intType)
		return nil
	}
	e.SetValueType(p.typeOf(e.Left))
	return nil
}

// isComparisonOrLogical reports whether op yields the dialect's
// boolean-as-int result (relational, equality, or short-circuit logical),
// as opposed to carrying its operand's own type through.
func isComparisonOrLogical(op token.Kind) bool {
	switch op {
	case token.Less, token.LessEq, token.Greater, token.GreaterEq,
		token.Eq, token.NotEq, token.AmpAmp, token.PipePipe:
		return true
	default:
		return false
	}
}

func (p *Parser) inferCallType(e *ast.CallExpr) error {
	calleeRef, ok := p.arena.Node(e.Callee).(*ast.VarRef)
	if !ok || calleeRef.Definition == ast.NoHandle {
		return violation(p.currentLine(), "call target does not name a function")
	}
	fn, ok := p.arena.Node(calleeRef.Definition).(*ast.FunctionDefinition)
	if !ok {
		return violation(p.currentLine(), "%q is not a function", calleeRef.Name)
	}
	e.SetValueType(fn.ReturnType)
	return nil
}

func (p *Parser) inferSubscriptType(e *ast.SubscriptExpr) error {
	ptr, ok := asPointerType(p.arena, p.typeOf(e.Target))
	if !ok {
		return violation(p.currentLine(), "cannot subscript a non-pointer expression")
	}
	e.SetValueType(ptr.Target)
	return nil
}
