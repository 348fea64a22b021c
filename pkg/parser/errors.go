package parser

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/token"
)

// LanguageViolationError is raised for semantic rule violations: duplicate
// goto labels, misplaced case/default, a case expression's type not
// matching its switch's governing type, a missing or malformed main, or a
// return expression that is not convertible to the enclosing function's
// return type.
type LanguageViolationError struct {
	Line   int
	Reason string
}

func (e *LanguageViolationError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func violation(line int, format string, args ...any) error {
	return &LanguageViolationError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// UnimplementedError is raised for constructs the grammar reserves but the
// dialect does not implement (struct, typedef, union).
type UnimplementedError struct {
	Line    int
	Keyword token.Kind
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("line %d: %s is reserved but not implemented in this dialect", e.Line, e.Keyword)
}
