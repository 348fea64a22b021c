package parser

import (
	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/token"
)

func (p *Parser) currentFunction() *functionContext {
	return p.functionStack[len(p.functionStack)-1]
}

// addStmt inserts an already-built statement node into the arena and
// reparents its already-existing children, mirroring addExpr: every
// statement's substatements/subexpressions are parsed, and therefore
// already added to the arena, before the statement wrapping them is.
func (p *Parser) addStmt(n ast.Statement, children ...ast.Handle) (ast.Handle, error) {
	h := p.arena.Add(n, ast.NoHandle)
	for _, c := range children {
		if c != ast.NoHandle {
			p.arena.SetParentOf(c, h)
		}
	}
	return h, nil
}

// parseCompoundStatement parses `{ ... }` against the given scope (a fresh
// child scope for an ordinary nested block, or the function's own
// params-and-locals scope for a function body).
func (p *Parser) parseCompoundStatement(scope *ast.Scope) (ast.Handle, error) {
	prevScope := p.currentScope
	p.currentScope = scope
	defer func() { p.currentScope = prevScope }()

	if _, err := p.lex.Consume(token.LBrace); err != nil {
		return ast.NoHandle, err
	}
	var stmts []ast.Handle
	for !p.lex.CheckCurrent(token.RBrace) {
		item, err := p.parseBlockItem()
		if err != nil {
			return ast.NoHandle, err
		}
		if item != ast.NoHandle {
			stmts = append(stmts, item)
		}
	}
	if _, err := p.lex.Consume(token.RBrace); err != nil {
		return ast.NoHandle, err
	}
	return p.addStmt(&ast.CompoundStatement{Scope: scope, Statements: stmts}, stmts...)
}

// parseControlBody parses the body of an if/else/switch arm: a genuine
// `{ ... }` block, or a single statement wrapped in a synthetic
// CompoundStatement for uniformity (§3: "synthetic when wrapping a
// single-statement body of a control construct").
func (p *Parser) parseControlBody() (ast.Handle, error) {
	if p.lex.CheckCurrent(token.LBrace) {
		return p.parseCompoundStatement(ast.NewScope(p.currentScope))
	}
	inner, err := p.parseBlockItem()
	if err != nil {
		return ast.NoHandle, err
	}
	if inner == ast.NoHandle {
		return ast.NoHandle, violation(p.currentLine(), "a declaration cannot be the unbraced body of a control construct")
	}
	h, err := p.addStmt(&ast.CompoundStatement{Scope: p.currentScope, Statements: []ast.Handle{inner}, Synthetic: true}, inner)
	return h, err
}

// parseBlockItem parses one item inside a block: a local variable
// declaration (which contributes nothing to the statement list unless it
// carries an initializer, lowered to an assignment) or a labeled/unlabeled
// statement. It returns NoHandle when nothing needs to be appended to the
// enclosing block's statement list.
func (p *Parser) parseBlockItem() (ast.Handle, error) {
	if p.startsTypeSpecifier() {
		return p.parseLocalVariable()
	}

	labels, err := p.parseLabels()
	if err != nil {
		return ast.NoHandle, err
	}
	stmtHandle, err := p.parseStatementBody()
	if err != nil {
		return ast.NoHandle, err
	}
	if len(labels) > 0 {
		if err := p.attachLabels(stmtHandle, labels); err != nil {
			return ast.NoHandle, err
		}
	}
	return stmtHandle, nil
}

// parseLocalVariable parses `[const] type identifier [= expr] ;`. Unlike a
// global, whose initializer the code generator lowers into a pre-main
// initializer sequence, a local's initializer is lowered here, during
// parsing, into an ordinary assignment expression statement — the
// declaration itself leaves no trace in the statement list.
func (p *Parser) parseLocalVariable() (ast.Handle, error) {
	isConst, err := p.consumeOptionalConst()
	if err != nil {
		return ast.NoHandle, err
	}
	typeHandle, err := p.parseTypeSpecifier()
	if err != nil {
		return ast.NoHandle, err
	}
	nameTok, err := p.lex.Consume(token.IDENTIFIER)
	if err != nil {
		return ast.NoHandle, err
	}
	_, vh := ast.NewVariable(p.arena, ast.NoHandle, nameTok.Value.String, isConst, typeHandle)
	if err := p.currentScope.Define(nameTok.Value.String, vh); err != nil {
		return ast.NoHandle, err
	}

	_, matched, err := p.lex.ConsumeIfMatches(token.Assign)
	if err != nil {
		return ast.NoHandle, err
	}
	if !matched {
		if _, err := p.lex.Consume(token.Semicolon); err != nil {
			return ast.NoHandle, err
		}
		return ast.NoHandle, nil
	}

	value, err := p.parseExpression(precAssignment)
	if err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.Semicolon); err != nil {
		return ast.NoHandle, err
	}

	target, err := p.addExpr(&ast.VarRef{Name: nameTok.Value.String, Definition: vh})
	if err != nil {
		return ast.NoHandle, err
	}
	assign, err := p.addExpr(&ast.Assignment{Op: token.Assign, Target: target, Value: value}, target, value)
	if err != nil {
		return ast.NoHandle, err
	}
	return p.addStmt(&ast.ExpressionStatement{Value: assign}, assign)
}

func (p *Parser) parseStatementBody() (ast.Handle, error) {
	tok, err := p.lex.Current()
	if err != nil {
		return ast.NoHandle, err
	}

	switch tok.Kind {
	case token.LBrace:
		return p.parseCompoundStatement(ast.NewScope(p.currentScope))

	case token.KwReturn:
		return p.parseReturnStatement()

	case token.KwIf:
		return p.parseIfStatement()

	case token.KwSwitch:
		return p.parseSwitchStatement()

	case token.KwGoto:
		return p.parseGotoStatement()

	default:
		value, err := p.parseExpression(precLowest)
		if err != nil {
			return ast.NoHandle, err
		}
		if _, err := p.lex.Consume(token.Semicolon); err != nil {
			return ast.NoHandle, err
		}
		return p.addStmt(&ast.ExpressionStatement{Value: value}, value)
	}
}

func (p *Parser) parseReturnStatement() (ast.Handle, error) {
	if _, err := p.lex.Consume(token.KwReturn); err != nil {
		return ast.NoHandle, err
	}
	value := ast.NoHandle
	if !p.lex.CheckCurrent(token.Semicolon) {
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return ast.NoHandle, err
		}
		value = v
	}
	if _, err := p.lex.Consume(token.Semicolon); err != nil {
		return ast.NoHandle, err
	}

	fn := p.arena.Node(p.currentFunction().def).(*ast.FunctionDefinition)
	if value == ast.NoHandle {
		if !isVoidType(p.arena, fn.ReturnType) {
			return ast.NoHandle, violation(p.currentLine(), "missing return value in function returning non-void")
		}
	} else if !canBeConvertedTo(p.arena, p.typeOf(value), fn.ReturnType) {
		return ast.NoHandle, violation(p.currentLine(), "return expression is not convertible to the function's return type")
	}

	return p.addStmt(&ast.ReturnStatement{Value: value}, value)
}

func (p *Parser) parseIfStatement() (ast.Handle, error) {
	if _, err := p.lex.Consume(token.KwIf); err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.LParen); err != nil {
		return ast.NoHandle, err
	}
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.RParen); err != nil {
		return ast.NoHandle, err
	}
	thenH, err := p.parseControlBody()
	if err != nil {
		return ast.NoHandle, err
	}
	elseH := ast.NoHandle
	if _, matched, err := p.lex.ConsumeIfMatches(token.KwElse); err != nil {
		return ast.NoHandle, err
	} else if matched {
		h, err := p.parseControlBody()
		if err != nil {
			return ast.NoHandle, err
		}
		elseH = h
	}
	return p.addStmt(&ast.IfStatement{Condition: cond, Then: thenH, Else: elseH}, cond, thenH, elseH)
}

func (p *Parser) parseSwitchStatement() (ast.Handle, error) {
	if _, err := p.lex.Consume(token.KwSwitch); err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.LParen); err != nil {
		return ast.NoHandle, err
	}
	target, err := p.parseExpression(precLowest)
	if err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.RParen); err != nil {
		return ast.NoHandle, err
	}

	fc := p.currentFunction()
	fc.switchTypes = append(fc.switchTypes, p.typeOf(target))
	body, err := p.parseControlBody()
	fc.switchTypes = fc.switchTypes[:len(fc.switchTypes)-1]
	if err != nil {
		return ast.NoHandle, err
	}

	var cases []ast.Handle
	for _, s := range p.arena.LabeledStatements(body) {
		for _, lbl := range p.arena.Node(s).(ast.Statement).StatementLabels() {
			if lbl.Kind == ast.CaseLabel || lbl.Kind == ast.DefaultLabel {
				cases = append(cases, s)
				break
			}
		}
	}

	return p.addStmt(&ast.SwitchStatement{Target: target, Body: body, Cases: cases}, target, body)
}

func (p *Parser) parseGotoStatement() (ast.Handle, error) {
	if _, err := p.lex.Consume(token.KwGoto); err != nil {
		return ast.NoHandle, err
	}
	nameTok, err := p.lex.Consume(token.IDENTIFIER)
	if err != nil {
		return ast.NoHandle, err
	}
	if _, err := p.lex.Consume(token.Semicolon); err != nil {
		return ast.NoHandle, err
	}
	return p.addStmt(&ast.GotoStatement{TargetName: nameTok.Value.String, Target: ast.NoHandle})
}

// parseLabels greedily consumes zero or more case/default/goto labels
// ahead of a statement, per §4.2.1.
func (p *Parser) parseLabels() ([]ast.Label, error) {
	var labels []ast.Label
	for {
		tok, err := p.lex.Current()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == token.KwCase:
			if _, err := p.lex.Consume(token.KwCase); err != nil {
				return nil, err
			}
			value, err := p.parseExpression(precAssignment)
			if err != nil {
				return nil, err
			}
			if _, err := p.lex.Consume(token.Colon); err != nil {
				return nil, err
			}
			labels = append(labels, ast.Label{Kind: ast.CaseLabel, CaseValue: value})

		case tok.Kind == token.KwDefault:
			if _, err := p.lex.Consume(token.KwDefault); err != nil {
				return nil, err
			}
			if _, err := p.lex.Consume(token.Colon); err != nil {
				return nil, err
			}
			labels = append(labels, ast.Label{Kind: ast.DefaultLabel})

		case tok.Kind == token.IDENTIFIER && p.lex.CheckNext(token.Colon):
			if _, err := p.lex.Consume(token.IDENTIFIER); err != nil {
				return nil, err
			}
			if _, err := p.lex.Consume(token.Colon); err != nil {
				return nil, err
			}
			labels = append(labels, ast.Label{Kind: ast.GotoLabel, Name: tok.Value.String})

		default:
			return labels, nil
		}
	}
}

// attachLabels validates and records the labels that precede stmtHandle:
// goto-label uniqueness within the function, and case/default containment
// plus case-expression type agreement with the enclosing switch.
func (p *Parser) attachLabels(stmtHandle ast.Handle, labels []ast.Label) error {
	fc := p.currentFunction()
	for _, lbl := range labels {
		switch lbl.Kind {
		case ast.GotoLabel:
			if fc.seenLabels[lbl.Name] {
				return violation(p.currentLine(), "duplicate goto label %q", lbl.Name)
			}
			fc.seenLabels[lbl.Name] = true

		case ast.CaseLabel:
			if len(fc.switchTypes) == 0 {
				return violation(p.currentLine(), "case label outside switch")
			}
			want := fc.switchTypes[len(fc.switchTypes)-1]
			if !sameBasicType(p.arena, p.typeOf(lbl.CaseValue), want) {
				return violation(p.currentLine(), "case expression type does not match the switch's target type")
			}
			p.arena.SetParentOf(lbl.CaseValue, stmtHandle)

		case ast.DefaultLabel:
			if len(fc.switchTypes) == 0 {
				return violation(p.currentLine(), "default label outside switch")
			}
		}
	}
	p.arena.Node(stmtHandle).(ast.Statement).SetStatementLabels(labels)
	return nil
}

// resolveGotos binds each GotoStatement in the function body to the
// statement carrying the matching goto label, raising a language-violation
// error for a target that never resolves.
func (p *Parser) resolveGotos(fn, body ast.Handle) error {
	byName := map[string]ast.Handle{}
	for _, s := range p.arena.LabeledStatements(body) {
		for _, lbl := range p.arena.Node(s).(ast.Statement).StatementLabels() {
			if lbl.Kind == ast.GotoLabel {
				byName[lbl.Name] = s
			}
		}
	}
	for _, h := range p.arena.RecursiveChildren(body) {
		g, ok := p.arena.Node(h).(*ast.GotoStatement)
		if !ok {
			continue
		}
		target, ok := byName[g.TargetName]
		if !ok {
			return violation(p.currentLine(), "goto target %q is never defined in this function", g.TargetName)
		}
		g.Target = target
	}
	return nil
}

// validateMain checks that a parameterless, int-returning `main` exists,
// per §4.2.1's final namespace-level check.
func (p *Parser) validateMain() error {
	h, err := p.global.Lookup("main")
	if err != nil {
		return violation(p.currentLine(), "no main function defined")
	}
	fn, ok := p.arena.Node(h).(*ast.FunctionDefinition)
	if !ok {
		return violation(p.currentLine(), "main is not a function")
	}
	if len(fn.ParamOrder) != 0 {
		return violation(p.currentLine(), "main must take no parameters")
	}
	if fn.ReturnType != p.intType {
		return violation(p.currentLine(), "main must return int")
	}
	return nil
}
