package codegen

import "github.com/pschiffmann/minic/pkg/ast"

// labelFor lazily creates (or reuses) the label a goto or switch case
// dispatches to. Handles are unique across the whole arena, so a single
// map keyed by statement handle serves both goto targets and case labels
// without the two mechanisms ever colliding.
func (g *generator) labelFor(h ast.Handle) label {
	if l, ok := g.stmtLabel[h]; ok {
		return l
	}
	l := g.em.newLabel()
	g.stmtLabel[h] = l
	return l
}

// defineLabelsOf binds the label for h (reserved by an earlier goto or case
// reference, or created here by labelFor) to h's position about to be
// emitted. Only statements that carry a source label get one; the rest are
// left unlabeled.
func (g *generator) defineLabelsOf(h ast.Handle, stmt ast.Statement) {
	if len(stmt.StatementLabels()) == 0 {
		return
	}
	g.em.defineLabel(g.labelFor(h))
}

func (g *generator) genStmt(h ast.Handle) error {
	stmt := g.arena.Node(h).(ast.Statement)
	g.defineLabelsOf(h, stmt)

	switch s := stmt.(type) {
	case *ast.CompoundStatement:
		for _, c := range s.Statements {
			if err := g.genStmt(c); err != nil {
				return err
			}
		}
	case *ast.IfStatement:
		return g.genIf(s)
	case *ast.SwitchStatement:
		return g.genSwitch(h, s)
	case *ast.ReturnStatement:
		return g.genReturn(s)
	case *ast.GotoStatement:
		g.em.emitToLabel("jump", g.labelFor(s.Target))
	case *ast.ExpressionStatement:
		return g.genExprStatement(s)
	default:
		panic("codegen: unhandled statement kind")
	}
	return nil
}

func (g *generator) genIf(s *ast.IfStatement) error {
	if err := g.genExprAs(s.Condition, boolType); err != nil {
		return err
	}
	elseLabel := g.em.newLabel()
	g.em.emitToLabel("jumpz", elseLabel)
	if err := g.genStmt(s.Then); err != nil {
		return err
	}
	if s.Else == ast.NoHandle {
		g.em.defineLabel(elseLabel)
		return nil
	}
	endLabel := g.em.newLabel()
	g.em.emitToLabel("jump", endLabel)
	g.em.defineLabel(elseLabel)
	if err := g.genStmt(s.Else); err != nil {
		return err
	}
	g.em.defineLabel(endLabel)
	return nil
}

// genSwitch evaluates the target once into the statement's synthesized
// frame slot, then re-reads it for each case comparison — the VM has no
// `dup`, so a temp slot stands in for one. Equality is tested with
// `eq<t>` followed by `not`+`jumpz`, the only way to express "jump if
// equal" from the machine's single "jump if false" primitive.
func (g *generator) genSwitch(switchH ast.Handle, s *ast.SwitchStatement) error {
	t := numberTypeOf(g.arena, typeOf(g.arena, s.Target))
	width := t.SizeInBytes()
	off := g.frame.offset[switchH]

	g.em.emitConcrete("loada", sint16Imm(off))
	if err := g.genExprAs(s.Target, t); err != nil {
		return err
	}
	g.em.emitConcrete("store", uint16Imm(width))
	g.em.emitConcrete("pop", uint16Imm(width))

	endLabel := g.em.newLabel()
	var defaultStmt ast.Handle = ast.NoHandle

	for _, caseH := range s.Cases {
		caseStmt := g.arena.Node(caseH).(ast.Statement)
		for _, lbl := range caseStmt.StatementLabels() {
			switch lbl.Kind {
			case ast.CaseLabel:
				g.em.emitConcrete("loada", sint16Imm(off))
				g.em.emitConcrete("loadr", uint16Imm(width))
				if err := g.genExprAs(lbl.CaseValue, t); err != nil {
					return err
				}
				g.em.emit(opName("eq", t))
				g.em.emit("not")
				g.em.emitToLabel("jumpz", g.labelFor(caseH))
			case ast.DefaultLabel:
				defaultStmt = caseH
			}
		}
	}
	if defaultStmt != ast.NoHandle {
		g.em.emitToLabel("jump", g.labelFor(defaultStmt))
	} else {
		g.em.emitToLabel("jump", endLabel)
	}

	if err := g.genStmt(s.Body); err != nil {
		return err
	}
	g.em.defineLabel(endLabel)
	return nil
}

func (g *generator) genReturn(s *ast.ReturnStatement) error {
	if s.Value != ast.NoHandle {
		off := g.frame.resultOffset
		w := widthOf(g.arena, g.curFn.ReturnType)
		g.em.emitConcrete("loada", sint16Imm(off))
		if err := g.genExprAs(s.Value, numberTypeOf(g.arena, g.curFn.ReturnType)); err != nil {
			return err
		}
		g.em.emitConcrete("store", uint16Imm(w))
		g.em.emitConcrete("pop", uint16Imm(w))
	}
	g.em.emit("return")
	return nil
}

func (g *generator) genExprStatement(s *ast.ExpressionStatement) error {
	if err := g.genExpr(s.Value); err != nil {
		return err
	}
	if isVoidExpr(g.arena, s.Value) {
		return nil
	}
	w := widthOf(g.arena, typeOf(g.arena, s.Value))
	g.em.emitConcrete("pop", uint16Imm(w))
	return nil
}

// isVoidExpr reports whether evaluating h leaves nothing on the stack: a
// call to a function with no return value. Every other expression kind
// always leaves exactly one value.
func isVoidExpr(arena *ast.Arena, h ast.Handle) bool {
	call, ok := arena.Node(h).(*ast.CallExpr)
	if !ok {
		return false
	}
	callee := arena.Node(call.Callee).(*ast.VarRef)
	fn := arena.Node(callee.Definition).(*ast.FunctionDefinition)
	return isVoidType(arena, fn.ReturnType)
}
