package codegen

import "github.com/pschiffmann/minic/pkg/ast"

// frameLayout is one function's compiled-time-known slot assignment:
// every parameter and local variable's signed offset from FramePointer,
// plus every switch statement's synthesized comparison-temp slot (keyed by
// the SwitchStatement's own handle, never confused with a Variable handle
// since handles are arena-wide unique), and the non-void result slot's
// offset, if any.
type frameLayout struct {
	offset       map[ast.Handle]int
	localsSize   int
	resultOffset int // meaningful only when the function is non-void
}

// computeFrameLayout assigns every parameter its positive offset (per
// §calling convention: 12 plus the combined width of every parameter
// pushed after it), every local variable and switch-temp its negative
// offset, and the result slot's offset if the function returns a value.
//
// Locals are discovered by walking every CompoundStatement reachable from
// the body, deduplicated by *ast.Scope pointer identity — a local
// variable's declaration leaves no Statement node of its own (only a
// Scope entry), and synthetic if/else-body wrappers reuse the enclosing
// block's Scope object verbatim.
func computeFrameLayout(arena *ast.Arena, fn *ast.FunctionDefinition) (*frameLayout, error) {
	lay := &frameLayout{offset: map[ast.Handle]int{}}

	total := 0
	for i := len(fn.ParamOrder) - 1; i >= 0; i-- {
		p := fn.ParamOrder[i]
		v := arena.Node(p).(*ast.Variable)
		lay.offset[p] = 12 + total
		total += widthOf(arena, v.DeclaredType)
	}
	if !isVoidType(arena, fn.ReturnType) {
		lay.resultOffset = 12 + total
	}

	seenScopes := map[*ast.Scope]bool{}
	cur := 0
	var walk func(h ast.Handle)
	walk = func(h ast.Handle) {
		switch n := arena.Node(h).(type) {
		case *ast.CompoundStatement:
			if !seenScopes[n.Scope] {
				seenScopes[n.Scope] = true
				for _, name := range n.Scope.Names() {
					vh, _ := n.Scope.LookupLocal(name)
					if _, isParam := lay.offset[vh]; isParam {
						continue
					}
					v, ok := arena.Node(vh).(*ast.Variable)
					if !ok {
						continue
					}
					cur -= widthOf(arena, v.DeclaredType)
					lay.offset[vh] = cur
				}
			}
		case *ast.SwitchStatement:
			targetType := typeOf(arena, n.Target)
			cur -= widthOf(arena, targetType)
			lay.offset[h] = cur
		}
		for _, c := range arena.Children(h) {
			walk(c)
		}
	}
	walk(fn.Body)

	lay.localsSize = -cur
	return lay, nil
}
