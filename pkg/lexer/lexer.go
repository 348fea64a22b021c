package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pschiffmann/minic/pkg/numeric"
	"github.com/pschiffmann/minic/pkg/token"
)

// Lexer yields tokens lazily from a source string. Construct with New, then
// drive it through Current/Next/MoveNext/Consume/ConsumeIfMatches exactly
// as the parser needs, one token at a time.
type Lexer struct {
	src  []rune
	pos  int
	line int

	current token.Token
	next    token.Token
	err     error
}

// New creates a Lexer positioned on the first token. It scans the first two
// tokens (current and next) eagerly; a scan error is returned by Current.
func New(src string) *Lexer {
	l := &Lexer{src: []rune(src), line: 1}
	l.current, l.err = l.scan()
	if l.err == nil {
		l.next, l.err = l.scan()
	}
	return l
}

// Current returns the token under the cursor without consuming it.
func (l *Lexer) Current() (token.Token, error) { return l.current, l.err }

// PeekNext returns the token one past the cursor without consuming
// anything, named Next in the spec's observable surface.
func (l *Lexer) PeekNext() (token.Token, error) {
	if l.err != nil {
		return token.Token{}, l.err
	}
	return l.next, nil
}

// MoveNext unconditionally advances the cursor by one token.
func (l *Lexer) MoveNext() error {
	if l.err != nil {
		return l.err
	}
	l.current = l.next
	if l.current.Kind == token.EOF {
		return nil
	}
	var err error
	l.next, err = l.scan()
	if err != nil {
		l.err = err
	}
	return nil
}

// Consume advances past the current token if it has the expected kind,
// returning it; otherwise it raises UnexpectedTokenError.
func (l *Lexer) Consume(expected token.Kind) (token.Token, error) {
	cur, err := l.Current()
	if err != nil {
		return token.Token{}, err
	}
	if cur.Kind != expected {
		return token.Token{}, &UnexpectedTokenError{Expected: expected, Got: cur}
	}
	tok := cur
	return tok, l.MoveNext()
}

// ConsumeIfMatches advances and returns (tok, true) if the current token has
// the expected kind, or returns (zero, false) without advancing otherwise.
func (l *Lexer) ConsumeIfMatches(expected token.Kind) (token.Token, bool, error) {
	cur, err := l.Current()
	if err != nil {
		return token.Token{}, false, err
	}
	if cur.Kind != expected {
		return token.Token{}, false, nil
	}
	if err := l.MoveNext(); err != nil {
		return token.Token{}, false, err
	}
	return cur, true, nil
}

// CheckCurrent reports whether the current token has the given kind.
func (l *Lexer) CheckCurrent(k token.Kind) bool {
	cur, err := l.Current()
	return err == nil && cur.Kind == k
}

// CheckNext reports whether the token one past the cursor has the given
// kind.
func (l *Lexer) CheckNext(k token.Kind) bool {
	n, err := l.PeekNext()
	return err == nil && n.Kind == k
}

// --- scanning -------------------------------------------------------------

func (l *Lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) peekRuneAt(off int) (rune, bool) {
	if l.pos+off >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos+off], true
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		r, ok := l.peekRune()
		if !ok {
			return nil
		}
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peekIs(1, '/'):
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
		case r == '/' && l.peekIs(1, '*'):
			startLine := l.line
			l.advance()
			l.advance()
			closed := false
			for {
				r, ok := l.peekRune()
				if !ok {
					break
				}
				if r == '*' && l.peekIs(1, '/') {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return &UnterminatedError{What: "block comment", Line: startLine}
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) peekIs(off int, want rune) bool {
	r, ok := l.peekRuneAt(off)
	return ok && r == want
}

// pattern is one entry in the lexer's ordered token-pattern table. match
// attempts to recognize a token starting at the lexer's current position;
// it returns ok=false (without consuming input) if the pattern does not
// apply here.
type pattern struct {
	match func(l *Lexer) (token.Token, bool, error)
}

// patterns is declaration-ordered so that longer operators are tried before
// their prefixes (e.g. "<<=" before "<<" before "<"), keywords are matched
// with a trailing word-boundary assertion before the generic identifier
// pattern, and literal patterns precede the identifier pattern.
var patterns = []pattern{
	{matchNumber},
	{matchChar},
	{matchString},
	{matchIdentifierOrKeyword},
	{matchOperator},
}

func (l *Lexer) scan() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}
	start, startLine := l.pos, l.line
	r, ok := l.peekRune()
	if !ok {
		return token.Token{Kind: token.EOF, Span: token.Span{Start: start, End: start, Line: startLine}}, nil
	}
	for _, p := range patterns {
		tok, matched, err := p.match(l)
		if err != nil {
			return token.Token{}, err
		}
		if matched {
			tok.Span = token.Span{Start: start, End: l.pos, Line: startLine}
			return tok, nil
		}
	}
	return token.Token{}, &UnrecognizedSourceError{Span: token.Span{Start: start, End: start, Line: startLine}, Rune: r}
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentPart(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }
func isDigit(r rune) bool      { return r >= '0' && r <= '9' }

func matchIdentifierOrKeyword(l *Lexer) (token.Token, bool, error) {
	r, ok := l.peekRune()
	if !ok || !isIdentStart(r) {
		return token.Token{}, false, nil
	}
	start := l.pos
	for {
		r, ok := l.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if kw, isKw := token.Keywords[text]; isKw {
		return token.Token{Kind: kw, Value: token.Value{String: text}}, true, nil
	}
	return token.Token{Kind: token.IDENTIFIER, Value: token.Value{String: text}}, true, nil
}

func matchNumber(l *Lexer) (token.Token, bool, error) {
	r, ok := l.peekRune()
	if !ok || !isDigit(r) {
		return token.Token{}, false, nil
	}
	start := l.pos

	if r == '0' && (l.peekIs(1, 'x') || l.peekIs(1, 'X')) {
		l.advance()
		l.advance()
		for {
			r, ok := l.peekRune()
			if !ok || !isHexDigit(r) {
				break
			}
			l.advance()
		}
		lit := string(l.src[start:l.pos])
		v, err := strconv.ParseUint(lit, 0, 64)
		if err != nil {
			return token.Token{}, false, &UnrecognizedSourceError{Rune: r}
		}
		typ, _ := readIntSuffix(l)
		return token.Token{Kind: token.IntLiteral, Value: token.Value{Int: int64(v), NumberType: typ}}, true, nil
	}

	isFloat := false
	for {
		r, ok := l.peekRune()
		if !ok || !isDigit(r) {
			break
		}
		l.advance()
	}
	if r, ok := l.peekRune(); ok && r == '.' {
		isFloat = true
		l.advance()
		for {
			r, ok := l.peekRune()
			if !ok || !isDigit(r) {
				break
			}
			l.advance()
		}
	}
	if r, ok := l.peekRune(); ok && (r == 'e' || r == 'E') {
		save := l.pos
		l.advance()
		if r, ok := l.peekRune(); ok && (r == '+' || r == '-') {
			l.advance()
		}
		digits := 0
		for {
			r, ok := l.peekRune()
			if !ok || !isDigit(r) {
				break
			}
			l.advance()
			digits++
		}
		if digits == 0 {
			l.pos = save
		} else {
			isFloat = true
		}
	}

	if isFloat {
		digitsEnd := l.pos
		typ := numeric.Fp64
		if r, ok := l.peekRune(); ok && (r == 'f' || r == 'F') {
			l.advance()
			typ = numeric.Fp32
		} else if r, ok := l.peekRune(); ok && (r == 'd' || r == 'D') {
			l.advance()
		}
		lit := string(l.src[start:digitsEnd])
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return token.Token{}, false, &UnrecognizedSourceError{Rune: r}
		}
		return token.Token{Kind: token.FloatLiteral, Value: token.Value{Float: v, NumberType: typ}}, true, nil
	}

	octalOrDecimalEnd := l.pos
	base := 10
	if l.src[start] == '0' && octalOrDecimalEnd-start > 1 {
		base = 8
	}
	lit := string(l.src[start:octalOrDecimalEnd])
	v, err := strconv.ParseUint(lit, base, 64)
	if err != nil {
		return token.Token{}, false, &UnrecognizedSourceError{Rune: r}
	}
	typ, _ := readIntSuffix(l)
	return token.Token{Kind: token.IntLiteral, Value: token.Value{Int: int64(v), NumberType: typ}}, true, nil
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// readIntSuffix consumes an optional u/U, l/L, or ul/UL suffix and returns
// the promoted number type per §4.1 ("default sint32 and promotion to
// sint64/uint32/uint64 per suffix").
func readIntSuffix(l *Lexer) (numeric.Type, bool) {
	unsigned, long := false, false
	consumed := false
	for {
		r, ok := l.peekRune()
		if !ok {
			break
		}
		switch r {
		case 'u', 'U':
			unsigned = true
			l.advance()
			consumed = true
		case 'l', 'L':
			long = true
			l.advance()
			consumed = true
		default:
			goto done
		}
	}
done:
	switch {
	case unsigned && long:
		return numeric.Uint64, consumed
	case unsigned:
		return numeric.Uint32, consumed
	case long:
		return numeric.Sint64, consumed
	default:
		return numeric.Sint32, consumed
	}
}

func matchChar(l *Lexer) (token.Token, bool, error) {
	r, ok := l.peekRune()
	if !ok || r != '\'' {
		return token.Token{}, false, nil
	}
	line := l.line
	l.advance()
	code, err := l.readCharContent(line)
	if err != nil {
		return token.Token{}, false, err
	}
	r, ok = l.peekRune()
	if !ok || r != '\'' {
		return token.Token{}, false, &UnterminatedError{What: "char literal", Line: line}
	}
	l.advance()
	return token.Token{Kind: token.CharLiteral, Value: token.Value{Int: int64(code), NumberType: numeric.Uint8}}, true, nil
}

func (l *Lexer) readCharContent(line int) (rune, error) {
	r, ok := l.peekRune()
	if !ok {
		return 0, &UnterminatedError{What: "char literal", Line: line}
	}
	if r != '\\' {
		l.advance()
		return r, nil
	}
	l.advance()
	return l.readEscape(line)
}

func (l *Lexer) readEscape(line int) (rune, error) {
	r, ok := l.peekRune()
	if !ok {
		return 0, &UnterminatedError{What: "escape sequence", Line: line}
	}
	switch r {
	case '\'', '"', '?', '\\':
		l.advance()
		return r, nil
	case 'a':
		l.advance()
		return 7, nil
	case 'b':
		l.advance()
		return 8, nil
	case 'f':
		l.advance()
		return 12, nil
	case 'n':
		l.advance()
		return 10, nil
	case 'r':
		l.advance()
		return 13, nil
	case 't':
		l.advance()
		return 9, nil
	case 'v':
		l.advance()
		return 11, nil
	case 'x':
		l.advance()
		start := l.pos
		for {
			r, ok := l.peekRune()
			if !ok || !isHexDigit(r) {
				break
			}
			l.advance()
		}
		v, _ := strconv.ParseUint(string(l.src[start:l.pos]), 16, 32)
		return rune(v), nil
	case 'u':
		l.advance()
		start := l.pos
		for i := 0; i < 4; i++ {
			r, ok := l.peekRune()
			if !ok || !isHexDigit(r) {
				break
			}
			l.advance()
		}
		v, _ := strconv.ParseUint(string(l.src[start:l.pos]), 16, 32)
		return rune(v), nil
	default:
		if r >= '0' && r <= '7' {
			start := l.pos
			for i := 0; i < 3; i++ {
				r, ok := l.peekRune()
				if !ok || r < '0' || r > '7' {
					break
				}
				l.advance()
			}
			v, _ := strconv.ParseUint(string(l.src[start:l.pos]), 8, 32)
			return rune(v), nil
		}
		l.advance()
		return r, nil
	}
}

func matchString(l *Lexer) (token.Token, bool, error) {
	r, ok := l.peekRune()
	if !ok || r != '"' {
		return token.Token{}, false, nil
	}
	line := l.line
	l.advance()
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok {
			return token.Token{}, false, &UnterminatedError{What: "string literal", Line: line}
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			decoded, err := l.readEscape(line)
			if err != nil {
				return token.Token{}, false, err
			}
			sb.WriteRune(decoded)
			continue
		}
		sb.WriteRune(r)
		l.advance()
	}
	return token.Token{Kind: token.StringLiteral, Value: token.Value{String: sb.String()}}, true, nil
}

// operators is declaration-ordered longest-first within each shared prefix,
// satisfying the ordering requirement in §4.1.
var operators = []struct {
	text string
	kind token.Kind
}{
	{"<<=", token.ShiftLeftAssign}, {">>=", token.ShiftRightAssign},
	{"<<", token.ShiftLeft}, {">>", token.ShiftRight},
	{"->", token.Arrow},
	{"++", token.PlusPlus}, {"--", token.MinusMinus},
	{"+=", token.PlusAssign}, {"-=", token.MinusAssign},
	{"*=", token.StarAssign}, {"/=", token.SlashAssign}, {"%=", token.PercentAssign},
	{"&=", token.AmpAssign}, {"^=", token.CaretAssign}, {"|=", token.PipeAssign},
	{"&&", token.AmpAmp}, {"||", token.PipePipe},
	{"==", token.Eq}, {"!=", token.NotEq},
	{"<=", token.LessEq}, {">=", token.GreaterEq},
	{"{", token.LBrace}, {"}", token.RBrace},
	{"(", token.LParen}, {")", token.RParen},
	{"[", token.LBracket}, {"]", token.RBracket},
	{",", token.Comma}, {";", token.Semicolon}, {":", token.Colon},
	{"?", token.Question}, {".", token.Dot},
	{"+", token.Plus}, {"-", token.Minus}, {"*", token.Star},
	{"/", token.Slash}, {"%", token.Percent},
	{"&", token.Amp}, {"|", token.Pipe}, {"^", token.Caret}, {"~", token.Tilde},
	{"!", token.Bang},
	{"<", token.Less}, {">", token.Greater},
	{"=", token.Assign},
}

func matchOperator(l *Lexer) (token.Token, bool, error) {
	for _, op := range operators {
		if l.hasPrefix(op.text) {
			for range op.text {
				l.advance()
			}
			return token.Token{Kind: op.kind, Value: token.Value{String: op.text}}, true, nil
		}
	}
	return token.Token{}, false, nil
}

func (l *Lexer) hasPrefix(s string) bool {
	for i, want := range []rune(s) {
		r, ok := l.peekRuneAt(i)
		if !ok || r != want {
			return false
		}
	}
	return true
}
