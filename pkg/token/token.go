// Package token defines the lexical token model: a closed, ordered set of
// token kinds, the value payload each kind carries, and the source span
// used for diagnostics.
package token

import (
	"fmt"

	"github.com/pschiffmann/minic/pkg/numeric"
)

// Span carries the half-open rune index range [Start, End) of a token
// within its source string, plus the 1-based line the token starts on.
type Span struct {
	Start, End int
	Line       int
}

// Kind is a variant from the closed, ordered set of token kinds: operators,
// keywords, literal kinds, identifier, end-of-file. Declaration order here
// is not significant to lexing (that ordering lives in the lexer's pattern
// table); it only needs to be a closed enumeration.
type Kind int

const (
	EOF Kind = iota
	IDENTIFIER

	IntLiteral
	FloatLiteral
	CharLiteral
	StringLiteral

	// Keywords. Built-in type names (int, char, short, long, float, double,
	// void) are deliberately NOT keywords: per §4.2.3 they are ordinary
	// identifiers that happen to resolve, via the global scope, to a
	// VariableType definition pre-populated before parsing begins.
	KwConst
	KwIf
	KwElse
	KwReturn
	KwGoto
	KwSwitch
	KwCase
	KwDefault
	KwSizeof
	KwStruct
	KwTypedef
	KwUnion

	// Punctuation / operators, grouped loosely by family. As above, the
	// order is not significant; longest-match ordering lives in the lexer.
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Question
	Dot
	Arrow

	PlusPlus
	MinusMinus
	Plus
	Minus
	Star
	Slash
	Percent

	ShiftLeft
	ShiftRight
	Amp
	Pipe
	Caret
	Tilde
	Bang

	AmpAmp
	PipePipe

	Eq
	NotEq
	Less
	LessEq
	Greater
	GreaterEq

	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	ShiftLeftAssign
	ShiftRightAssign
	AmpAssign
	CaretAssign
	PipeAssign
)

var names = map[Kind]string{
	EOF: "EOF", IDENTIFIER: "identifier",
	IntLiteral: "int-literal", FloatLiteral: "float-literal",
	CharLiteral: "char-literal", StringLiteral: "string-literal",
	KwConst: "const",
	KwIf: "if", KwElse: "else", KwReturn: "return", KwGoto: "goto",
	KwSwitch: "switch", KwCase: "case", KwDefault: "default",
	KwSizeof: "sizeof", KwStruct: "struct", KwTypedef: "typedef", KwUnion: "union",
	LBrace: "{", RBrace: "}", LParen: "(", RParen: ")",
	LBracket: "[", RBracket: "]", Comma: ",", Semicolon: ";",
	Colon: ":", Question: "?", Dot: ".", Arrow: "->",
	PlusPlus: "++", MinusMinus: "--", Plus: "+", Minus: "-",
	Star: "*", Slash: "/", Percent: "%",
	ShiftLeft: "<<", ShiftRight: ">>", Amp: "&", Pipe: "|",
	Caret: "^", Tilde: "~", Bang: "!",
	AmpAmp: "&&", PipePipe: "||",
	Eq: "==", NotEq: "!=", Less: "<", LessEq: "<=",
	Greater: ">", GreaterEq: ">=",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=",
	SlashAssign: "/=", PercentAssign: "%=", ShiftLeftAssign: "<<=",
	ShiftRightAssign: ">>=", AmpAssign: "&=", CaretAssign: "^=", PipeAssign: "|=",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps the reserved-word spellings to their Kind, used by the
// lexer's identifier scanner to distinguish keywords from ordinary names.
var Keywords = map[string]Kind{
	"const": KwConst,
	"if": KwIf, "else": KwElse, "return": KwReturn, "goto": KwGoto,
	"switch": KwSwitch, "case": KwCase, "default": KwDefault,
	"sizeof": KwSizeof, "struct": KwStruct, "typedef": KwTypedef, "union": KwUnion,
}

// Value is the decoded semantic payload of a token; which field is
// meaningful depends on the owning Token's Kind.
type Value struct {
	// String holds the spelling for identifiers/keywords/operators, or the
	// decoded bytes of a string literal.
	String string
	// Int holds the decoded value of an integer or char literal; its type
	// is in NumberType.
	Int   int64
	Float float64
	// NumberType is set for IntLiteral/FloatLiteral/CharLiteral, giving the
	// literal's number type per §4.1's promotion rules.
	NumberType numeric.Type
}

// Token is the triple (Kind, Value, Span) the lexer produces.
type Token struct {
	Kind  Kind
	Value Value
	Span  Span
}

func (t Token) String() string {
	switch t.Kind {
	case IDENTIFIER:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Value.String)
	case IntLiteral, CharLiteral:
		return fmt.Sprintf("%s(%d:%s)", t.Kind, t.Value.Int, t.Value.NumberType)
	case FloatLiteral:
		return fmt.Sprintf("%s(%g:%s)", t.Kind, t.Value.Float, t.Value.NumberType)
	case StringLiteral:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Value.String)
	default:
		return t.Kind.String()
	}
}
