package codegen

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/token"
)

// boolType is the runtime representation every comparison, `!`, and
// `jumpz` condition is cast to, matching the `int` type these carry at
// the source level (see pkg/vm's sint32-boolean decision).
var boolType = numeric.Sint32

func uint16Imm(n int) numeric.Value { return numeric.FromUint64(numeric.Uint16, uint64(n)) }
func sint16Imm(n int) numeric.Value { return numeric.FromUint64(numeric.Sint16, uint64(int64(n))) }

// castIfNeeded emits the cast instruction taking a value already on the
// stack from "from" to "to", skipping it entirely when they're the same
// type — the VM's instruction table carries no identity cast, since one
// would never do anything.
func (g *generator) castIfNeeded(from, to numeric.Type) {
	if from == to {
		return
	}
	g.em.emit(castName(from, to))
}

// genExpr evaluates h, leaving exactly widthOf(h's own value type) bytes
// on the stack.
func (g *generator) genExpr(h ast.Handle) error {
	switch e := g.arena.Node(h).(type) {
	case *ast.Literal:
		return g.genLiteral(e)
	case *ast.VarRef:
		return g.genVarRef(e)
	case *ast.Assignment:
		return g.genAssignment(e)
	case *ast.PrefixExpr:
		return g.genPrefix(h, e)
	case *ast.PostfixExpr:
		return g.genPostfix(e)
	case *ast.InfixExpr:
		return g.genInfix(e)
	case *ast.TernaryExpr:
		return g.genTernary(e)
	case *ast.CallExpr:
		return g.genCall(e)
	case *ast.SubscriptExpr:
		if err := g.emitAddress(h); err != nil {
			return err
		}
		g.em.emitConcrete("loadr", uint16Imm(widthOf(g.arena, e.ValueType())))
		return nil
	case *ast.CastExpr:
		return g.genCast(e)
	default:
		return fmt.Errorf("codegen: unhandled expression kind %T", e)
	}
}

// genExprAs evaluates h, then casts its value to target.
func (g *generator) genExprAs(h ast.Handle, target numeric.Type) error {
	if err := g.genExpr(h); err != nil {
		return err
	}
	g.castIfNeeded(numberTypeOf(g.arena, typeOf(g.arena, h)), target)
	return nil
}

// genExprAsType is genExprAs with the target given as a VariableType
// handle, e.g. a parameter's or a return value's declared type.
func (g *generator) genExprAsType(h, targetTypeHandle ast.Handle) error {
	return g.genExprAs(h, numberTypeOf(g.arena, targetTypeHandle))
}

func (g *generator) genLiteral(e *ast.Literal) error {
	t := e.NumberType
	if t.Interpretation() == numeric.Float {
		g.em.emitConcrete(opName("loadc", t), numeric.FromFloat64(t, e.FloatValue))
	} else {
		g.em.emitConcrete(opName("loadc", t), numeric.FromUint64(t, uint64(e.Value)))
	}
	return nil
}

func (g *generator) genVarRef(e *ast.VarRef) error {
	if err := g.emitVarAddress(e.Definition); err != nil {
		return err
	}
	g.em.emitConcrete("loadr", uint16Imm(widthOf(g.arena, e.ValueType())))
	return nil
}

// emitVarAddress pushes the address of the Variable named by h: a
// constant for a global, FramePointer+offset for a local or parameter.
func (g *generator) emitVarAddress(h ast.Handle) error {
	if addr, ok := g.globalAddr[h]; ok {
		g.em.emitConcrete(opName("loadc", pointerNumericType), numeric.FromUint64(pointerNumericType, uint64(addr)))
		return nil
	}
	off, ok := g.frame.offset[h]
	if !ok {
		return fmt.Errorf("codegen: variable has no frame slot")
	}
	g.em.emitConcrete("loada", sint16Imm(off))
	return nil
}

// emitAddress pushes the address of the lvalue expression h, without
// reading its value. For anything but a simple VarRef this re-evaluates
// h's subexpressions, which duplicates their side effects if called more
// than once on the same node — accepted, since the machine has no `dup`
// to capture an address for reuse.
func (g *generator) emitAddress(h ast.Handle) error {
	switch e := g.arena.Node(h).(type) {
	case *ast.VarRef:
		return g.emitVarAddress(e.Definition)
	case *ast.PrefixExpr:
		if e.Op != token.Star {
			return fmt.Errorf("codegen: prefix operator is not an lvalue")
		}
		// *p's address is p's own value.
		return g.genExpr(e.Operand)
	case *ast.SubscriptExpr:
		ptr, ok := asPointerType(g.arena, typeOf(g.arena, e.Target))
		if !ok {
			return fmt.Errorf("codegen: subscript target is not a pointer")
		}
		elemWidth := widthOf(g.arena, ptr.Target)
		if err := g.genExpr(e.Target); err != nil {
			return err
		}
		if err := g.genExprAs(e.Index, pointerNumericType); err != nil {
			return err
		}
		g.em.emitConcrete(opName("loadc", pointerNumericType), numeric.FromUint64(pointerNumericType, uint64(elemWidth)))
		g.em.emit(opName("mul", pointerNumericType))
		g.em.emit(opName("add", pointerNumericType))
		return nil
	default:
		return fmt.Errorf("codegen: %T is not an lvalue", e)
	}
}

func (g *generator) genAssignment(e *ast.Assignment) error {
	t := numberTypeOf(g.arena, typeOf(g.arena, e.Target))
	if e.Op == token.Assign {
		if err := g.emitAddress(e.Target); err != nil {
			return err
		}
		if err := g.genExprAs(e.Value, t); err != nil {
			return err
		}
		g.em.emitConcrete("store", uint16Imm(t.SizeInBytes()))
		return nil
	}

	base, ok := arithOpFor(compoundAssignOp(e.Op))
	if !ok {
		return fmt.Errorf("codegen: unsupported compound assignment")
	}
	if err := g.emitAddress(e.Target); err != nil { // addr for the final store
		return err
	}
	if err := g.emitAddress(e.Target); err != nil { // addr for the read
		return err
	}
	g.em.emitConcrete("loadr", uint16Imm(t.SizeInBytes()))
	if err := g.genExprAs(e.Value, t); err != nil {
		return err
	}
	g.em.emit(opName(base, t))
	g.em.emitConcrete("store", uint16Imm(t.SizeInBytes()))
	return nil
}

func compoundAssignOp(op token.Kind) token.Kind {
	switch op {
	case token.PlusAssign:
		return token.Plus
	case token.MinusAssign:
		return token.Minus
	case token.StarAssign:
		return token.Star
	case token.SlashAssign:
		return token.Slash
	case token.PercentAssign:
		return token.Percent
	case token.AmpAssign:
		return token.Amp
	case token.PipeAssign:
		return token.Pipe
	case token.CaretAssign:
		return token.Caret
	case token.ShiftLeftAssign:
		return token.ShiftLeft
	case token.ShiftRightAssign:
		return token.ShiftRight
	}
	return token.EOF
}

// arithOpFor maps a binary operator token to the instruction family base
// mnemonic it lowers to.
func arithOpFor(op token.Kind) (string, bool) {
	switch op {
	case token.Plus:
		return "add", true
	case token.Minus:
		return "sub", true
	case token.Star:
		return "mul", true
	case token.Slash:
		return "div", true
	case token.Percent:
		return "mod", true
	case token.Amp:
		return "and", true
	case token.Pipe:
		return "or", true
	case token.Caret:
		return "xor", true
	case token.ShiftLeft:
		return "shl", true
	case token.ShiftRight:
		return "shr", true
	}
	return "", false
}

func compareOpFor(op token.Kind) (string, bool) {
	switch op {
	case token.Eq:
		return "eq", true
	case token.Greater:
		return "gt", true
	case token.GreaterEq:
		return "ge", true
	case token.Less:
		return "lt", true
	case token.LessEq:
		return "le", true
	}
	return "", false
}

func (g *generator) genPrefix(h ast.Handle, e *ast.PrefixExpr) error {
	switch e.Op {
	case token.Bang:
		if err := g.genExprAs(e.Operand, boolType); err != nil {
			return err
		}
		g.em.emit("not")
		return nil

	case token.Tilde:
		t := numberTypeOf(g.arena, typeOf(g.arena, e.Operand))
		if err := g.genExpr(e.Operand); err != nil {
			return err
		}
		g.em.emitConcrete(opName("loadc", t), numeric.FromUint64(t, t.Bitmask()))
		g.em.emit(opName("xor", t))
		return nil

	case token.Plus:
		return g.genExpr(e.Operand)

	case token.Minus:
		t := numberTypeOf(g.arena, typeOf(g.arena, e.Operand))
		if t.Interpretation() == numeric.Float {
			g.em.emitConcrete(opName("loadc", t), numeric.FromFloat64(t, 0))
		} else {
			g.em.emitConcrete(opName("loadc", t), numeric.FromUint64(t, 0))
		}
		if err := g.genExpr(e.Operand); err != nil {
			return err
		}
		g.em.emit(opName("sub", t))
		return nil

	case token.Star:
		if err := g.genExpr(e.Operand); err != nil {
			return err
		}
		g.em.emitConcrete("loadr", uint16Imm(widthOf(g.arena, e.ValueType())))
		return nil

	case token.Amp:
		return g.emitAddress(e.Operand)

	case token.PlusPlus:
		return g.emitIncDec(e.Operand, +1, true)
	case token.MinusMinus:
		return g.emitIncDec(e.Operand, -1, true)

	case token.KwSizeof:
		sz := widthOf(g.arena, typeOf(g.arena, e.Operand))
		g.em.emitConcrete(opName("loadc", numeric.Sint32), numeric.FromUint64(numeric.Sint32, uint64(sz)))
		return nil
	}
	return fmt.Errorf("codegen: unhandled prefix operator %v", e.Op)
}

func (g *generator) genPostfix(e *ast.PostfixExpr) error {
	switch e.Op {
	case token.PlusPlus:
		return g.emitIncDec(e.Operand, +1, false)
	case token.MinusMinus:
		return g.emitIncDec(e.Operand, -1, false)
	}
	return fmt.Errorf("codegen: unhandled postfix operator %v", e.Op)
}

// incDecDelta returns the step a ++/-- applies, scaled by the pointee's
// width when operand is a pointer (pointer arithmetic moves by element
// size, not by one byte).
func (g *generator) incDecDelta(operand ast.Handle, sign int64) int64 {
	t := typeOf(g.arena, operand)
	if ptr, ok := asPointerType(g.arena, t); ok {
		return sign * int64(widthOf(g.arena, ptr.Target))
	}
	return sign
}

// emitIncDec implements both pre- and post-increment/decrement without a
// `dup` instruction, by re-evaluating operand's address expression
// (cheap for the common case of a plain variable, and an accepted
// side-effect duplication for anything more exotic).
//
// prefix: [addrStore] [addrRead] loadr; loadc delta; add; store -> newval
// postfix: [addrRead1] loadr(=result); [addrStore] [addrRead2] loadr; loadc
// delta; add; store -> newval; pop -> leaves the stashed old value on top.
func (g *generator) emitIncDec(operand ast.Handle, sign int64, prefix bool) error {
	t := numberTypeOf(g.arena, typeOf(g.arena, operand))
	width := t.SizeInBytes()
	delta := g.incDecDelta(operand, sign)

	if prefix {
		if err := g.emitAddress(operand); err != nil { // addr for the final store
			return err
		}
		if err := g.emitAddress(operand); err != nil {
			return err
		}
		g.em.emitConcrete("loadr", uint16Imm(width))
		g.emitDeltaAndAdd(t, delta)
		g.em.emitConcrete("store", uint16Imm(width))
		return nil
	}

	if err := g.emitAddress(operand); err != nil { // addr, read #1 (kept as the result)
		return err
	}
	g.em.emitConcrete("loadr", uint16Imm(width))
	if err := g.emitAddress(operand); err != nil { // addr for the final store
		return err
	}
	if err := g.emitAddress(operand); err != nil { // addr, read #2 (consumed by the add)
		return err
	}
	g.em.emitConcrete("loadr", uint16Imm(width))
	g.emitDeltaAndAdd(t, delta)
	g.em.emitConcrete("store", uint16Imm(width))
	g.em.emitConcrete("pop", uint16Imm(width)) // discard store's pushed-back new value
	return nil
}

func (g *generator) emitDeltaAndAdd(t numeric.Type, delta int64) {
	if t.Interpretation() == numeric.Float {
		g.em.emitConcrete(opName("loadc", t), numeric.FromFloat64(t, float64(delta)))
	} else {
		g.em.emitConcrete(opName("loadc", t), numeric.FromUint64(t, uint64(delta)))
	}
	g.em.emit(opName("add", t))
}

func (g *generator) genInfix(e *ast.InfixExpr) error {
	switch e.Op {
	case token.AmpAmp:
		return g.genShortCircuit(e, true)
	case token.PipePipe:
		return g.genShortCircuit(e, false)
	case token.NotEq:
		t := numberTypeOf(g.arena, typeOf(g.arena, e.Left))
		if err := g.genExpr(e.Left); err != nil {
			return err
		}
		if err := g.genExprAs(e.Right, t); err != nil {
			return err
		}
		g.em.emit(opName("eq", t))
		g.em.emit("not")
		return nil
	}
	if mnem, ok := compareOpFor(e.Op); ok {
		t := numberTypeOf(g.arena, typeOf(g.arena, e.Left))
		if err := g.genExpr(e.Left); err != nil {
			return err
		}
		if err := g.genExprAs(e.Right, t); err != nil {
			return err
		}
		g.em.emit(opName(mnem, t))
		return nil
	}

	// Pointer + integer / pointer - integer scales the integer by the
	// pointee's width; anything else (including the default arithmetic
	// path) uses a single shared type for both operands.
	if e.Op == token.Plus || e.Op == token.Minus {
		if ptr, ok := asPointerType(g.arena, typeOf(g.arena, e.Left)); ok {
			if _, rhsIsPtr := asPointerType(g.arena, typeOf(g.arena, e.Right)); !rhsIsPtr {
				return g.genPointerArith(e, ptr)
			}
		}
	}

	mnem, ok := arithOpFor(e.Op)
	if !ok {
		return fmt.Errorf("codegen: unhandled infix operator %v", e.Op)
	}
	t := numberTypeOf(g.arena, e.ValueType())
	if err := g.genExpr(e.Left); err != nil {
		return err
	}
	if err := g.genExprAs(e.Right, t); err != nil {
		return err
	}
	g.em.emit(opName(mnem, t))
	return nil
}

func (g *generator) genPointerArith(e *ast.InfixExpr, ptr *ast.PointerType) error {
	elemWidth := widthOf(g.arena, ptr.Target)
	if err := g.genExpr(e.Left); err != nil {
		return err
	}
	if err := g.genExprAs(e.Right, pointerNumericType); err != nil {
		return err
	}
	g.em.emitConcrete(opName("loadc", pointerNumericType), numeric.FromUint64(pointerNumericType, uint64(elemWidth)))
	g.em.emit(opName("mul", pointerNumericType))
	mnem, _ := arithOpFor(e.Op)
	g.em.emit(opName(mnem, pointerNumericType))
	return nil
}

// genShortCircuit implements `&&`/`||` with branches, since no single
// instruction short-circuits. `&&` skips Right (result false) once Left is
// false; `||` inverts the test with `not` first so it can still use
// `jumpz` to skip Right (result true) once Left is true.
func (g *generator) genShortCircuit(e *ast.InfixExpr, isAnd bool) error {
	if err := g.genExprAs(e.Left, boolType); err != nil {
		return err
	}
	if !isAnd {
		g.em.emit("not")
	}
	shortCircuit := g.em.newLabel()
	g.em.emitToLabel("jumpz", shortCircuit)
	if err := g.genExprAs(e.Right, boolType); err != nil {
		return err
	}
	end := g.em.newLabel()
	g.em.emitToLabel("jump", end)
	g.em.defineLabel(shortCircuit)
	g.em.emitConcrete(opName("loadc", boolType), numeric.FromUint64(boolType, boolVal(!isAnd)))
	g.em.defineLabel(end)
	return nil
}

func boolVal(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (g *generator) genTernary(e *ast.TernaryExpr) error {
	if err := g.genExprAs(e.Condition, boolType); err != nil {
		return err
	}
	t := numberTypeOf(g.arena, e.ValueType())
	elseLabel := g.em.newLabel()
	g.em.emitToLabel("jumpz", elseLabel)
	if err := g.genExprAs(e.Then, t); err != nil {
		return err
	}
	end := g.em.newLabel()
	g.em.emitToLabel("jump", end)
	g.em.defineLabel(elseLabel)
	if err := g.genExprAs(e.Else, t); err != nil {
		return err
	}
	g.em.defineLabel(end)
	return nil
}

func (g *generator) genCast(e *ast.CastExpr) error {
	if err := g.genExpr(e.Operand); err != nil {
		return err
	}
	g.castIfNeeded(numberTypeOf(g.arena, typeOf(g.arena, e.Operand)), numberTypeOf(g.arena, e.TargetType))
	return nil
}

// genCall implements the calling convention: a zero-valued result
// placeholder pushed before any argument (when the callee is non-void),
// each argument left to right cast to its parameter's declared type,
// `call`, then a `pop` of exactly the argument bytes — never the result
// slot, which becomes the CallExpr's own value.
func (g *generator) genCall(e *ast.CallExpr) error {
	calleeRef := g.arena.Node(e.Callee).(*ast.VarRef)
	fn := g.arena.Node(calleeRef.Definition).(*ast.FunctionDefinition)

	nonVoid := !isVoidType(g.arena, fn.ReturnType)
	if nonVoid {
		rt := numberTypeOf(g.arena, fn.ReturnType)
		if rt.Interpretation() == numeric.Float {
			g.em.emitConcrete(opName("loadc", rt), numeric.FromFloat64(rt, 0))
		} else {
			g.em.emitConcrete(opName("loadc", rt), numeric.FromUint64(rt, 0))
		}
	}

	argWidth := 0
	for i, arg := range e.Args {
		paramType := g.arena.Node(fn.ParamOrder[i]).(*ast.Variable).DeclaredType
		if err := g.genExprAsType(arg, paramType); err != nil {
			return err
		}
		argWidth += widthOf(g.arena, paramType)
	}

	g.em.emitToLabel("call", g.funcLabel[calleeRef.Definition])
	if argWidth > 0 {
		g.em.emitConcrete("pop", uint16Imm(argWidth))
	}
	return nil
}
