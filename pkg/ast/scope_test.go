package ast

import (
	"errors"
	"testing"

	"github.com/pschiffmann/minic/pkg/numeric"
)

func TestDefineThenLookupRoundTrips(t *testing.T) {
	a := NewArena()
	global := NewScope(nil)
	intType := NewBasicType(a, "int", numeric.Sint32)

	v := a.Add(&Variable{defBase: defBase{name: "x"}, DeclaredType: intType, Initializer: NoHandle}, NoHandle)
	if err := global.Define("x", v); err != nil {
		t.Fatalf("Define: %v", err)
	}

	got, err := global.Lookup("x")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != v {
		t.Fatalf("Lookup returned %v, want %v", got, v)
	}
}

func TestDefineCollision(t *testing.T) {
	a := NewArena()
	global := NewScope(nil)
	intType := NewBasicType(a, "int", numeric.Sint32)

	v1 := a.Add(&Variable{defBase: defBase{name: "x"}, DeclaredType: intType, Initializer: NoHandle}, NoHandle)
	v2 := a.Add(&Variable{defBase: defBase{name: "x"}, DeclaredType: intType, Initializer: NoHandle}, NoHandle)

	if err := global.Define("x", v1); err != nil {
		t.Fatalf("first Define: %v", err)
	}
	err := global.Define("x", v2)
	var collision *NameCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected NameCollisionError, got %v", err)
	}
}

func TestLookupUndefinedAtGlobalRaises(t *testing.T) {
	global := NewScope(nil)
	_, err := global.Lookup("missing")
	var undef *UndefinedNameError
	if !errors.As(err, &undef) {
		t.Fatalf("expected UndefinedNameError, got %v", err)
	}
}

func TestLookupWalksParents(t *testing.T) {
	a := NewArena()
	global := NewScope(nil)
	local := NewScope(global)
	intType := NewBasicType(a, "int", numeric.Sint32)

	v := a.Add(&Variable{defBase: defBase{name: "g"}, DeclaredType: intType, Initializer: NoHandle}, NoHandle)
	if err := global.Define("g", v); err != nil {
		t.Fatalf("Define: %v", err)
	}

	got, err := local.Lookup("g")
	if err != nil {
		t.Fatalf("Lookup from child scope: %v", err)
	}
	if got != v {
		t.Fatalf("got %v want %v", got, v)
	}
}

func TestShadowingInChildScopeIsAllowed(t *testing.T) {
	a := NewArena()
	global := NewScope(nil)
	local := NewScope(global)
	intType := NewBasicType(a, "int", numeric.Sint32)

	outer := a.Add(&Variable{defBase: defBase{name: "x"}, DeclaredType: intType, Initializer: NoHandle}, NoHandle)
	inner := a.Add(&Variable{defBase: defBase{name: "x"}, DeclaredType: intType, Initializer: NoHandle}, NoHandle)

	if err := global.Define("x", outer); err != nil {
		t.Fatalf("global Define: %v", err)
	}
	if err := local.Define("x", inner); err != nil {
		t.Fatalf("local Define: %v", err)
	}

	got, err := local.Lookup("x")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != inner {
		t.Fatalf("expected shadowed inner definition %v, got %v", inner, got)
	}
}
