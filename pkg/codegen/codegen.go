// Package codegen lowers a parsed translation unit (pkg/ast, as produced by
// pkg/parser) into a bytecode image for the stack machine in pkg/vm. It
// assigns every global its address, every function its entry label, and
// every local variable, parameter, and synthesized switch-comparison temp
// its frame offset, then walks each function body emitting instructions
// through the emitter in emit.go.
package codegen

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/vm"
)

// Program is the output of Generate: the encoded instruction stream and the
// byte count its globals occupy at the bottom of memory. The caller sets a
// VM's ExtremePointer to GlobalsSize before running the image, so the heap `alloc` grows from above the globals rather than
// colliding with them.
type Program struct {
	Code        []byte
	GlobalsSize int
	Disassembly string
}

// generator holds the state threaded through one Generate call: the arena
// and emitter every sub-routine reads and writes, the address/label tables
// built up front, and the current function's frame layout, rebuilt each
// time genFunction moves to the next function.
type generator struct {
	arena *ast.Arena

	em *emitter

	globalAddr map[ast.Handle]int
	funcLabel  map[ast.Handle]label
	stmtLabel  map[ast.Handle]label

	curFn *ast.FunctionDefinition
	frame *frameLayout
}

// Generate lowers the whole translation unit rooted at global into a
// bytecode image, in three passes: assign every global's address and every
// function's label; emit the bootstrap sequence that initializes globals
// and calls main; emit each function's body.
func Generate(arena *ast.Arena, global *ast.Scope) (*Program, error) {
	g := &generator{
		arena:      arena,
		em:         newEmitter(),
		globalAddr: map[ast.Handle]int{},
		funcLabel:  map[ast.Handle]label{},
		stmtLabel:  map[ast.Handle]label{},
	}

	var globals []ast.Handle
	var functions []ast.Handle
	addr := 0
	for _, name := range global.Names() {
		h, _ := global.LookupLocal(name)
		switch n := arena.Node(h).(type) {
		case *ast.Variable:
			g.globalAddr[h] = addr
			addr += widthOf(arena, n.DeclaredType)
			globals = append(globals, h)
		case *ast.FunctionDefinition:
			g.funcLabel[h] = g.em.newLabel()
			functions = append(functions, h)
		}
	}
	globalsSize := addr

	mainH, err := global.Lookup("main")
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	mainLabel, ok := g.funcLabel[mainH]
	if !ok {
		return nil, fmt.Errorf("codegen: %q is not a function", "main")
	}

	for _, gh := range globals {
		v := arena.Node(gh).(*ast.Variable)
		if v.Initializer == ast.NoHandle {
			continue
		}
		t := numberTypeOf(arena, v.DeclaredType)
		g.em.emitConcrete(opName("loadc", pointerNumericType), numeric.FromUint64(pointerNumericType, uint64(g.globalAddr[gh])))
		if err := g.genExprAsType(v.Initializer, v.DeclaredType); err != nil {
			return nil, err
		}
		g.em.emitConcrete("store", uint16Imm(t.SizeInBytes()))
		g.em.emitConcrete("pop", uint16Imm(t.SizeInBytes()))
	}
	g.em.emitConcrete(opName("loadc", numeric.Sint32), numeric.FromUint64(numeric.Sint32, 0))
	g.em.emitToLabel("call", mainLabel)
	g.em.emit("halt")

	for _, fh := range functions {
		if err := g.genFunction(fh); err != nil {
			return nil, err
		}
	}

	code, err := g.em.encode()
	if err != nil {
		return nil, err
	}
	return &Program{Code: code, GlobalsSize: globalsSize, Disassembly: vm.Disassemble(code)}, nil
}

func (g *generator) genFunction(fh ast.Handle) error {
	fn := g.arena.Node(fh).(*ast.FunctionDefinition)
	g.em.defineLabel(g.funcLabel[fh])

	layout, err := computeFrameLayout(g.arena, fn)
	if err != nil {
		return err
	}
	g.curFn = fn
	g.frame = layout

	g.em.emitConcrete("enter", uint16Imm(layout.localsSize))
	if err := g.genStmt(fn.Body); err != nil {
		return err
	}
	// Safety net: a function whose every path already returned never
	// reaches this, but the parser doesn't prove that, so fall through to
	// an explicit return rather than running off the end of the function's
	// code into whatever follows it in the image.
	g.em.emit("return")
	return nil
}
