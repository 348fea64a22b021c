// Package ast implements the typed tree produced by the parser: definitions,
// statements, and expressions, held in a single arena and addressed by
// stable integer handles instead of cyclic pointers, plus the lexical scope
// chain definitions are resolved against.
package ast

// Handle is a stable index into an Arena. The zero value is the first node
// added; "no node" is NoHandle.
type Handle int

// NoHandle is the handle of "no node" — an absent parent, an absent else
// branch, an unresolved goto target before its fixup pass runs, and so on.
const NoHandle Handle = -1

// Node is satisfied by every arena-held value: definitions, statements, and
// expressions alike. Parent forms the upward link the spec calls "parents";
// it is an index rather than a pointer so that the tree has no reference
// cycles.
type Node interface {
	Parent() Handle
	setParent(Handle)
}

type base struct {
	parent Handle
}

func (b *base) Parent() Handle     { return b.parent }
func (b *base) setParent(h Handle) { b.parent = h }

// Arena owns every node created while parsing one translation unit. Nodes
// are appended and never removed; a Handle is valid for the lifetime of the
// Arena that produced it.
type Arena struct {
	nodes []Node
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	// No index is reserved: the first node added gets handle 0, and
	// NoHandle(-1) never aliases a node.
	return &Arena{nodes: make([]Node, 0, 64)}
}

// Add inserts n into the arena under the given parent and returns its
// handle.
func (a *Arena) Add(n Node, parent Handle) Handle {
	n.setParent(parent)
	a.nodes = append(a.nodes, n)
	return Handle(len(a.nodes) - 1)
}

// Node returns the node stored at h. It panics if h is out of range, which
// indicates a bug in the producer of h (every handle an Arena hands out is
// valid for that Arena's lifetime).
func (a *Arena) Node(h Handle) Node {
	return a.nodes[h]
}

// Parents yields the chain of ancestor handles starting at h's parent and
// walking upward until NoHandle.
func (a *Arena) Parents(h Handle) []Handle {
	var out []Handle
	for p := a.Node(h).Parent(); p != NoHandle; p = a.Node(p).Parent() {
		out = append(out, p)
	}
	return out
}

// Children returns the direct child handles of h, dispatching on the
// node's concrete kind.
func (a *Arena) Children(h Handle) []Handle {
	switch n := a.Node(h).(type) {
	case *CompoundStatement:
		return n.Statements
	case *IfStatement:
		return nonNegative(n.Condition, n.Then, n.Else)
	case *SwitchStatement:
		return nonNegative(n.Target, n.Body)
	case *ReturnStatement:
		return nonNegative(n.Value)
	case *ExpressionStatement:
		return nonNegative(n.Value)
	case *GotoStatement:
		return nil
	case *FunctionDefinition:
		return nonNegative(n.Body)
	case *Variable:
		return nonNegative(n.Initializer)
	default:
		return exprChildren(n)
	}
}

// SetParentOf overwrites h's parent link. Used by the parser when a node
// is constructed before the handle of the node that will own it exists yet
// (an expression parsed before the statement wrapping it, a statement
// parsed before the compound statement collecting it).
func (a *Arena) SetParentOf(h, parent Handle) {
	a.Node(h).setParent(parent)
}

func nonNegative(hs ...Handle) []Handle {
	var out []Handle
	for _, h := range hs {
		if h != NoHandle {
			out = append(out, h)
		}
	}
	return out
}

// RecursiveChildren returns every node in the subtree rooted at h,
// excluding h itself, in pre-order.
func (a *Arena) RecursiveChildren(h Handle) []Handle {
	var out []Handle
	var walk func(Handle)
	walk = func(h Handle) {
		for _, c := range a.Children(h) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(h)
	return out
}

// LabeledStatements returns every statement in the subtree rooted at h that
// carries at least one label (goto/case/default), used during label
// validation.
func (a *Arena) LabeledStatements(h Handle) []Handle {
	var out []Handle
	for _, c := range a.RecursiveChildren(h) {
		if s, ok := a.Node(c).(Statement); ok && len(s.StatementLabels()) > 0 {
			out = append(out, c)
		}
	}
	return out
}
