package lexer

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/token"
)

// UnrecognizedSourceError is raised when no token pattern matches the
// current source position.
type UnrecognizedSourceError struct {
	Span token.Span
	Rune rune
}

func (e *UnrecognizedSourceError) Error() string {
	return fmt.Sprintf("line %d: unrecognized source character %q at offset %d", e.Span.Line, e.Rune, e.Span.Start)
}

// UnexpectedTokenError is raised when an explicit Consume expectation is
// not met.
type UnexpectedTokenError struct {
	Expected token.Kind
	Got      token.Token
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("line %d: expected %s, got %s", e.Got.Span.Line, e.Expected, e.Got.Kind)
}

// UnterminatedError is raised for an unterminated block comment, string, or
// char literal.
type UnterminatedError struct {
	What string
	Line int
}

func (e *UnterminatedError) Error() string {
	return fmt.Sprintf("line %d: unterminated %s", e.Line, e.What)
}
