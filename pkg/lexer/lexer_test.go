package lexer

import (
	"testing"

	"github.com/pschiffmann/minic/pkg/token"
)

func collect(t *testing.T, src string) []token.Kind {
	t.Helper()
	l := New(src)
	var kinds []token.Kind
	for {
		tok, err := l.Current()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
		if err := l.MoveNext(); err != nil {
			t.Fatalf("MoveNext: %v", err)
		}
	}
	return kinds
}

func TestBasicTokens(t *testing.T) {
	got := collect(t, "+ - * / & = == != < > ; , { } ( )")
	want := []token.Kind{
		token.Plus, token.Minus, token.Star, token.Slash, token.Amp,
		token.Assign, token.Eq, token.NotEq, token.Less, token.Greater,
		token.Semicolon, token.Comma, token.LBrace, token.RBrace,
		token.LParen, token.RParen, token.EOF,
	}
	assertKinds(t, got, want)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	got := collect(t, "if else while return variableName _under_score int")
	want := []token.Kind{
		token.KwIf, token.KwElse, token.IDENTIFIER, token.KwReturn,
		token.IDENTIFIER, token.IDENTIFIER, token.IDENTIFIER, token.EOF,
	}
	assertKinds(t, got, want)
}

func TestLongestOperatorWins(t *testing.T) {
	got := collect(t, "<<= << < <= + ++")
	want := []token.Kind{
		token.ShiftLeftAssign, token.ShiftLeft, token.Less, token.LessEq,
		token.Plus, token.PlusPlus, token.EOF,
	}
	assertKinds(t, got, want)
}

func TestKeywordBoundary(t *testing.T) {
	// "returned" must lex as one identifier, not "return" + "ed".
	got := collect(t, "returned")
	assertKinds(t, got, []token.Kind{token.IDENTIFIER, token.EOF})
}

func TestIntegerLiteralBases(t *testing.T) {
	l := New("123 0x1A 010 5u 6L")
	expectInt := func(want int64) {
		tok, err := l.Current()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		if tok.Kind != token.IntLiteral || tok.Value.Int != want {
			t.Fatalf("got %v, want int literal %d", tok, want)
		}
		if err := l.MoveNext(); err != nil {
			t.Fatalf("MoveNext: %v", err)
		}
	}
	expectInt(123)
	expectInt(0x1A)
	expectInt(010)
	expectInt(5)
	expectInt(6)
}

func TestCharEscapes(t *testing.T) {
	l := New(`'a' '\n' '\0' '\x41'`)
	want := []int64{'a', '\n', 0, 0x41}
	for _, w := range want {
		tok, err := l.Current()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		if tok.Kind != token.CharLiteral || tok.Value.Int != w {
			t.Fatalf("got %v, want char literal %d", tok, w)
		}
		if err := l.MoveNext(); err != nil {
			t.Fatalf("MoveNext: %v", err)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\tb\n"`)
	tok, err := l.Current()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if tok.Kind != token.StringLiteral || tok.Value.String != "a\tb\n" {
		t.Fatalf("got %v", tok)
	}
}

func TestUnrecognizedSourceRaises(t *testing.T) {
	l := New("@")
	_, err := l.Current()
	if err == nil {
		t.Fatalf("expected error for unrecognized character")
	}
}

func TestUnexpectedTokenConsume(t *testing.T) {
	l := New("+")
	_, err := l.Consume(token.Minus)
	if err == nil {
		t.Fatalf("expected UnexpectedTokenError")
	}
}

func assertKinds(t *testing.T, got, want []token.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d tokens %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
