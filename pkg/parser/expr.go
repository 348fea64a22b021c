package parser

import (
	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/token"
)

// precedence levels, highest binds tightest, per §4.2.2's published table.
// Level 13 (pointer-to-member, `.*`/`->*`) has no lexer token in this
// dialect's operator set (§6) and level 14's `new`/`delete` have no
// keyword either; both are kept here only so the numbering matches the
// spec's table, not because anything parses at them.
const (
	precLowest     = 0
	precAssignment = 2
	precLogicalOr  = 3
	precLogicalAnd = 4
	precBitOr      = 5
	precBitXor     = 6
	precBitAnd     = 7
	precEquality   = 8
	precRelational = 9
	precShift      = 10
	precAdditive   = 11
	precMultiplicative = 12
	precPointerToMember = 13
	precPrefix     = 14
	precSuffix     = 15
)

// infixPrecedence reports the binding precedence of k as an infix
// operator, or 0 if k never starts an infix parselet.
func infixPrecedence(k token.Kind) int {
	switch k {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign,
		token.SlashAssign, token.PercentAssign, token.ShiftLeftAssign,
		token.ShiftRightAssign, token.AmpAssign, token.CaretAssign, token.PipeAssign:
		return precAssignment
	case token.Question:
		// Binds looser than `||` but tighter than assignment, so a ternary
		// is accepted wherever an assignment-precedence operand is parsed.
		return precLogicalOr
	case token.PipePipe:
		return precLogicalOr
	case token.AmpAmp:
		return precLogicalAnd
	case token.Pipe:
		return precBitOr
	case token.Caret:
		return precBitXor
	case token.Amp:
		return precBitAnd
	case token.Eq, token.NotEq:
		return precEquality
	case token.Less, token.LessEq, token.Greater, token.GreaterEq:
		return precRelational
	case token.ShiftLeft, token.ShiftRight:
		return precShift
	case token.Plus, token.Minus:
		return precAdditive
	case token.Star, token.Slash, token.Percent:
		return precMultiplicative
	case token.LParen, token.LBracket:
		return precSuffix
	case token.PlusPlus, token.MinusMinus:
		return precSuffix
	default:
		return precLowest
	}
}

func isAssignmentOp(k token.Kind) bool {
	switch k {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign,
		token.SlashAssign, token.PercentAssign, token.ShiftLeftAssign,
		token.ShiftRightAssign, token.AmpAssign, token.CaretAssign, token.PipeAssign:
		return true
	default:
		return false
	}
}

func isRightAssociative(k token.Kind) bool { return isAssignmentOp(k) }

// parseExpression implements the Pratt loop: one prefix parselet, then
// infix/postfix parselets while their precedence exceeds the caller's.
func (p *Parser) parseExpression(precedence int) (ast.Handle, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return ast.NoHandle, err
	}

	for {
		tok, err := p.lex.Current()
		if err != nil {
			return ast.NoHandle, err
		}
		opPrec := infixPrecedence(tok.Kind)
		if opPrec <= precedence {
			break
		}
		left, err = p.parseInfix(left, tok)
		if err != nil {
			return ast.NoHandle, err
		}
	}
	return left, nil
}

// parsePrefix dispatches the current token to its prefix parselet: a
// literal, a name, a parenthesized subexpression or cast, sizeof, or a
// unary prefix operator.
func (p *Parser) parsePrefix() (ast.Handle, error) {
	tok, err := p.lex.Current()
	if err != nil {
		return ast.NoHandle, err
	}

	switch tok.Kind {
	case token.IntLiteral, token.CharLiteral:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.Literal{Value: tok.Value.Int, NumberType: tok.Value.NumberType})

	case token.FloatLiteral:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.Literal{FloatValue: tok.Value.Float, NumberType: tok.Value.NumberType})

	case token.IDENTIFIER:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.VarRef{Name: tok.Value.String, Definition: p.resolveOrZero(tok.Value.String)})

	case token.LParen:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		// A `(` starts either a cast, `(type)expr`, or a parenthesized
		// subexpression. The distinguishing lookahead is whether the
		// current token resolves to a VariableType.
		if p.startsTypeSpecifier() {
			targetType, err := p.parseTypeSpecifier()
			if err != nil {
				return ast.NoHandle, err
			}
			if _, err := p.lex.Consume(token.RParen); err != nil {
				return ast.NoHandle, err
			}
			operand, err := p.parseExpression(precPrefix - 1)
			if err != nil {
				return ast.NoHandle, err
			}
			return p.addExpr(&ast.CastExpr{TargetType: targetType, Operand: operand}, operand)
		}
		inner, err := p.parseExpression(precLowest)
		if err != nil {
			return ast.NoHandle, err
		}
		if _, err := p.lex.Consume(token.RParen); err != nil {
			return ast.NoHandle, err
		}
		return inner, nil

	case token.Bang, token.Tilde, token.Plus, token.Minus, token.Star, token.Amp,
		token.PlusPlus, token.MinusMinus:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		operand, err := p.parseExpression(precPrefix - 1)
		if err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.PrefixExpr{Op: tok.Kind, Operand: operand}, operand)

	case token.KwSizeof:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		operand, err := p.parseExpression(precPrefix - 1)
		if err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.PrefixExpr{Op: tok.Kind, Operand: operand}, operand)
	}

	return ast.NoHandle, violation(tok.Span.Line, "unexpected token %s in expression", tok.Kind)
}

// parseInfix dispatches the current infix-position token to its parselet:
// assignment, ternary, call, subscript, postfix `++`/`--`, or a binary
// operator.
func (p *Parser) parseInfix(left ast.Handle, tok token.Token) (ast.Handle, error) {
	switch tok.Kind {
	case token.Question:
		return p.parseTernary(left)

	case token.LParen:
		return p.parseCall(left)

	case token.LBracket:
		return p.parseSubscript(left)

	case token.PlusPlus, token.MinusMinus:
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.PostfixExpr{Op: tok.Kind, Operand: left}, left)
	}

	if isAssignmentOp(tok.Kind) {
		if err := p.lex.MoveNext(); err != nil {
			return ast.NoHandle, err
		}
		value, err := p.parseExpression(precAssignment - 1)
		if err != nil {
			return ast.NoHandle, err
		}
		return p.addExpr(&ast.Assignment{Op: tok.Kind, Target: left, Value: value}, left, value)
	}

	// Ordinary binary operator.
	opPrec := infixPrecedence(tok.Kind)
	if err := p.lex.MoveNext(); err != nil {
		return ast.NoHandle, err
	}
	nextPrec := opPrec
	if isRightAssociative(tok.Kind) {
		nextPrec--
	}
	right, err := p.parseExpression(nextPrec)
	if err != nil {
		return ast.NoHandle, err
	}
	return p.addExpr(&ast.InfixExpr{Op: tok.Kind, Left: left, Right: right}, left, right)
}

func (p *Parser) parseTernary(cond ast.Handle) (ast.Handle, error) {
	if _, err := p.lex.Consume(token.Question); err != nil {
		return ast.NoHandle, err
	}
	then, err := p.parseExpression(precAssignment)
	if err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.Colon); err != nil {
		return ast.NoHandle, err
	}
	elseExpr, err := p.parseExpression(precAssignment)
	if err != nil {
		return ast.NoHandle, err
	}
	return p.addExpr(&ast.TernaryExpr{Condition: cond, Then: then, Else: elseExpr}, cond, then, elseExpr)
}

func (p *Parser) parseCall(callee ast.Handle) (ast.Handle, error) {
	if _, err := p.lex.Consume(token.LParen); err != nil {
		return ast.NoHandle, err
	}
	var args []ast.Handle
	if !p.lex.CheckCurrent(token.RParen) {
		for {
			arg, err := p.parseExpression(precAssignment)
			if err != nil {
				return ast.NoHandle, err
			}
			args = append(args, arg)
			if _, matched, err := p.lex.ConsumeIfMatches(token.Comma); err != nil {
				return ast.NoHandle, err
			} else if !matched {
				break
			}
		}
	}
	if _, err := p.lex.Consume(token.RParen); err != nil {
		return ast.NoHandle, err
	}
	children := append([]ast.Handle{callee}, args...)
	return p.addExpr(&ast.CallExpr{Callee: callee, Args: args}, children...)
}

func (p *Parser) parseSubscript(target ast.Handle) (ast.Handle, error) {
	if _, err := p.lex.Consume(token.LBracket); err != nil {
		return ast.NoHandle, err
	}
	index, err := p.parseExpression(precLowest)
	if err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.RBracket); err != nil {
		return ast.NoHandle, err
	}
	return p.addExpr(&ast.SubscriptExpr{Target: target, Index: index}, target, index)
}

// addExpr inserts an already-built expression node into the arena and
// reparents its already-existing children to point at it, since every
// expression node in this grammar is built bottom-up: its operands are
// parsed, and therefore added to the arena, before it is. The node's own
// value type is then inferred from its now-complete operands.
func (p *Parser) addExpr(n ast.Expression, children ...ast.Handle) (ast.Handle, error) {
	h := p.arena.Add(n, ast.NoHandle)
	for _, c := range children {
		p.arena.SetParentOf(c, h)
	}
	if err := p.inferValueType(h, n); err != nil {
		return ast.NoHandle, err
	}
	return h, nil
}

// resolveOrZero resolves name in the current scope, returning NoHandle on
// failure instead of an error. The undefined name is then reported by
// inferValueType as soon as addExpr inserts the VarRef, so a name that is
// only defined further down the source is not found.
func (p *Parser) resolveOrZero(name string) ast.Handle {
	h, err := p.currentScope.Lookup(name)
	if err != nil {
		return ast.NoHandle
	}
	return h
}
