// Package parser turns a token stream into a validated, typed AST: a
// recursive-descent layer for declarations and statements (parser.go,
// statements.go), a Pratt layer for expressions (expr.go), the built-in
// type registration every parse starts from (builtins.go), and the
// implicit-conversion rule the return check uses (typesystem.go); case
// values must match the switch target's basic type exactly, and
// assignments are not type-checked.
package parser

import (
	"github.com/pschiffmann/minic/pkg/ast"
	"github.com/pschiffmann/minic/pkg/lexer"
	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/token"
)

// DefaultPointerSize is the configured pointer width in bytes, per the
// design note choosing a 32-bit default (§9).
const DefaultPointerSize = 4

// Parser drives one translation unit from a Lexer into an Arena + global
// Scope. It holds exactly one mutable cursor — currentScope — matching the
// source's own description of its recursive-descent layer; every method
// that changes it restores the caller's scope before returning.
type Parser struct {
	lex          *lexer.Lexer
	arena        *ast.Arena
	global       *ast.Scope
	currentScope *ast.Scope

	pointerSize  int
	intType      ast.Handle
	voidType     ast.Handle
	byNumberType map[numeric.Type]ast.Handle

	// functionStack tracks the enclosing function definitions of the
	// statement currently being parsed, innermost last (there is no
	// nested-function syntax in this dialect, so it never holds more than
	// one entry, but it's a stack rather than a single field so return
	// validation reads the same way "walking the scope chain for a
	// function definition" is described).
	functionStack []*functionContext
}

// functionContext accumulates per-function state that validation needs
// during parsing: the set of goto labels seen so far (duplicate detection
// without a post-pass) and the switch-target-type stack (case-expression
// type checking, case/default-outside-switch detection).
type functionContext struct {
	def         ast.Handle
	seenLabels  map[string]bool
	switchTypes []ast.Handle
}

// New creates a Parser over src with the built-in types already
// registered in a fresh global scope.
func New(src string) *Parser {
	arena := ast.NewArena()
	global := ast.NewScope(nil)
	intType, voidType, byNumberType := registerBuiltins(arena, global)

	return &Parser{
		lex:          lexer.New(src),
		arena:        arena,
		global:       global,
		currentScope: global,
		pointerSize:  DefaultPointerSize,
		intType:      intType,
		voidType:     voidType,
		byNumberType: byNumberType,
	}
}

// Result is everything Parse produces: the arena every handle indexes
// into, and the global scope holding built-ins plus every top-level
// definition.
type Result struct {
	Arena  *ast.Arena
	Global *ast.Scope
}

// Parse consumes the entire token stream, returning the populated arena
// and global scope once every top-level definition is parsed and main is
// validated.
func (p *Parser) Parse() (*Result, error) {
	for {
		tok, err := p.lex.Current()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.EOF {
			break
		}
		if err := p.parseNamespaceEntry(); err != nil {
			return nil, err
		}
	}
	if err := p.validateMain(); err != nil {
		return nil, err
	}
	return &Result{Arena: p.arena, Global: p.global}, nil
}

// parseNamespaceEntry handles one top-level construct: a reserved-but-
// unimplemented keyword, or `[const] type identifier` followed by either a
// function definition or a global variable declaration.
func (p *Parser) parseNamespaceEntry() error {
	tok, err := p.lex.Current()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case token.KwStruct, token.KwTypedef, token.KwUnion:
		return &UnimplementedError{Line: tok.Span.Line, Keyword: tok.Kind}
	}

	isConst, err := p.consumeOptionalConst()
	if err != nil {
		return err
	}

	typeHandle, err := p.parseTypeSpecifier()
	if err != nil {
		return err
	}

	nameTok, err := p.lex.Consume(token.IDENTIFIER)
	if err != nil {
		return err
	}

	if p.lex.CheckCurrent(token.LParen) {
		return p.parseFunctionDefinition(typeHandle, nameTok)
	}
	return p.parseGlobalVariable(typeHandle, nameTok, isConst)
}

func (p *Parser) consumeOptionalConst() (bool, error) {
	_, matched, err := p.lex.ConsumeIfMatches(token.KwConst)
	return matched, err
}

// parseTypeSpecifier implements §4.2.3: an identifier resolved via the
// current scope to a VariableType, followed by zero or more `*`.
func (p *Parser) parseTypeSpecifier() (ast.Handle, error) {
	nameTok, err := p.lex.Consume(token.IDENTIFIER)
	if err != nil {
		return ast.NoHandle, err
	}
	def, err := p.currentScope.Lookup(nameTok.Value.String)
	if err != nil {
		return ast.NoHandle, violation(nameTok.Span.Line, "%q does not name a type", nameTok.Value.String)
	}
	if _, ok := p.arena.Node(def).(ast.VariableType); !ok {
		return ast.NoHandle, violation(nameTok.Span.Line, "%q does not name a type", nameTok.Value.String)
	}

	h := def
	for {
		_, matched, err := p.lex.ConsumeIfMatches(token.Star)
		if err != nil {
			return ast.NoHandle, err
		}
		if !matched {
			break
		}
		h = ast.NewPointerType(p.arena, h, p.pointerSize)
	}
	return h, nil
}

// startsTypeSpecifier reports whether the current token can begin a type
// specifier: `const`, or an identifier that resolves to a VariableType in
// the current scope. `long`/`short`/`unsigned` are not separate keywords
// in this dialect (§6's built-in set has no standalone width modifiers),
// so they fall out of the identifier case like any other type name.
func (p *Parser) startsTypeSpecifier() bool {
	tok, err := p.lex.Current()
	if err != nil {
		return false
	}
	if tok.Kind == token.KwConst {
		return true
	}
	if tok.Kind != token.IDENTIFIER {
		return false
	}
	def, err := p.currentScope.Lookup(tok.Value.String)
	if err != nil {
		return false
	}
	_, ok := p.arena.Node(def).(ast.VariableType)
	return ok
}

func (p *Parser) parseGlobalVariable(typeHandle ast.Handle, nameTok token.Token, isConst bool) error {
	v, vh := ast.NewVariable(p.arena, ast.NoHandle, nameTok.Value.String, isConst, typeHandle)

	if _, matched, err := p.lex.ConsumeIfMatches(token.Assign); err != nil {
		return err
	} else if matched {
		init, err := p.parseExpression(precAssignment)
		if err != nil {
			return err
		}
		p.arena.SetParentOf(init, vh)
		v.Initializer = init
	}
	if _, err := p.lex.Consume(token.Semicolon); err != nil {
		return err
	}
	return p.global.Define(nameTok.Value.String, vh)
}

// parseFunctionDefinition parses `( params ) { body }`. Parameters are
// added directly to the body's scope — FunctionDefinition.Params IS the
// body CompoundStatement's Scope, not a separate parent of it — so that
// parameter references resolve inside the body without an extra hop.
func (p *Parser) parseFunctionDefinition(returnType ast.Handle, nameTok token.Token) error {
	if _, err := p.lex.Consume(token.LParen); err != nil {
		return err
	}

	fn, fh := ast.NewFunctionDefinition(p.arena, ast.NoHandle, nameTok.Value.String, returnType)
	if err := p.global.Define(nameTok.Value.String, fh); err != nil {
		return err
	}

	bodyScope := ast.NewScope(p.global)
	fn.Params = bodyScope

	if !p.lex.CheckCurrent(token.RParen) {
		for {
			paramConst, err := p.consumeOptionalConst()
			if err != nil {
				return err
			}
			paramType, err := p.parseTypeSpecifier()
			if err != nil {
				return err
			}
			paramTok, err := p.lex.Consume(token.IDENTIFIER)
			if err != nil {
				return err
			}
			_, ph := ast.NewVariable(p.arena, fh, paramTok.Value.String, paramConst, paramType)
			if err := bodyScope.Define(paramTok.Value.String, ph); err != nil {
				return err
			}
			fn.ParamOrder = append(fn.ParamOrder, ph)

			if _, matched, err := p.lex.ConsumeIfMatches(token.Comma); err != nil {
				return err
			} else if !matched {
				break
			}
		}
	}
	if _, err := p.lex.Consume(token.RParen); err != nil {
		return err
	}

	p.functionStack = append(p.functionStack, &functionContext{def: fh, seenLabels: map[string]bool{}})
	defer func() { p.functionStack = p.functionStack[:len(p.functionStack)-1] }()

	bh, err := p.parseCompoundStatement(bodyScope)
	if err != nil {
		return err
	}
	p.arena.SetParentOf(bh, fh)
	fn.Body = bh

	return p.resolveGotos(fh, bh)
}
