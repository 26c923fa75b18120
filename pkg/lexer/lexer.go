// Package lexer implements SCULL's hand-written scanner: source text in,
// a flat token.Token sequence out, with -include directives spliced inline
// as they're encountered.
package lexer

import (
	"fmt"
	"strings"

	"scull-lang/sculc/pkg/diag"
	"scull-lang/sculc/pkg/token"
)

// Resolver reads the contents of an included file by path, relative to the
// active include directories. The compiler package supplies the real
// implementation backed by an afero filesystem.
type Resolver interface {
	Resolve(path string) (string, error)
}

// Lexer scans one source buffer into tokens, recursively splicing in
// -include directives via resolver.
type Lexer struct {
	src      string
	pos      int
	line     uint
	resolver Resolver
	diags    *diag.Bag
	tokens   []token.Token
}

// New returns a lexer for src, reporting diagnostics to diags and resolving
// -include targets through resolver.
func New(src string, resolver Resolver, diags *diag.Bag) *Lexer {
	return &Lexer{src: src, line: 1, resolver: resolver, diags: diags}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool    { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isAlnum(c byte) bool    { return isAlpha(c) || isDigit(c) }
func isHorizWS(c byte) bool  { return c == ' ' || c == '\t' || c == '\r' }

// Lex runs the scanner to completion and returns the token stream,
// terminated by a single TOKEN_END sentinel.
func (l *Lexer) Lex() ([]token.Token, error) {
	for l.pos < len(l.src) {
		c := l.peek()

		switch {
		case c == '\n' || isHorizWS(c):
			l.advance()

		case c == '-' && l.peekAt(1) == '-':
			l.skipLineComment()

		case c == '-' && l.peekAt(1) == '*':
			l.skipBlockComment()

		case c == '-' && strings.HasPrefix(l.src[l.pos:], "-include"):
			if err := l.lexIncludeDirective(); err != nil {
				return nil, err
			}

		case c == '-' && isDigit(l.peekAt(1)):
			l.lexNumber()

		case isDigit(c):
			l.lexNumber()

		case c == '\'':
			l.lexChar()

		case c == '"':
			l.lexString()

		case c == '*' && isAlpha(l.peekAt(1)):
			l.lexPrefixedIdent(token.POINTER)

		case c == '&' && isAlpha(l.peekAt(1)):
			l.lexPrefixedIdent(token.ADDRESS_OF)

		case c == ':' && isAlpha(l.peekAt(1)):
			l.lexLabel()

		case isAlpha(c):
			l.lexIdentOrKeywordOrLabel()

		default:
			l.lexOperator()
		}
	}

	l.tokens = append(l.tokens, token.Token{Kind: token.END, Line: l.line})
	return l.tokens, nil
}

func (l *Lexer) emit(t token.Token) {
	l.tokens = append(l.tokens, t)
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	startLine := l.line
	l.advance()
	l.advance()
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peekAt(1) == '-' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.diags.Errorf(startLine, "unterminated block comment")
}

func (l *Lexer) lexIncludeDirective() error {
	startLine := l.line
	l.pos += len("-include")

	for isHorizWS(l.peek()) {
		l.advance()
	}

	rest := l.src[l.pos:]
	nl := strings.IndexByte(rest, '\n')
	line := rest
	if nl >= 0 {
		line = rest[:nl]
	}

	path, ok := parseIncludePath(line)
	if !ok {
		l.diags.Errorf(startLine, "malformed -include directive, expected a quoted path")
		return nil
	}
	l.pos += len(line)

	if l.resolver == nil {
		l.diags.Errorf(startLine, "cannot resolve -include %q: no include resolver configured", path)
		return nil
	}

	included, err := l.resolver.Resolve(path)
	if err != nil {
		l.diags.Errorf(startLine, "failed to resolve -include %q: %v", path, err)
		return nil
	}

	sub := New(included, l.resolver, l.diags)
	subTokens, err := sub.Lex()
	if err != nil {
		return fmt.Errorf("while lexing included file %q: %w", path, err)
	}
	// Strip the included file's own TOKEN_END sentinel so the splice is
	// transparent to everything downstream.
	if n := len(subTokens); n > 0 && subTokens[n-1].Kind == token.END {
		subTokens = subTokens[:n-1]
	}
	l.tokens = append(l.tokens, subTokens...)
	return nil
}

func (l *Lexer) lexNumber() {
	line := l.line
	neg := false
	if l.peek() == '-' {
		neg = true
		l.advance()
	}
	start := l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	raw := l.src[start:l.pos]
	value := 0
	for i := 0; i < len(raw); i++ {
		value = value*10 + int(raw[i]-'0')
	}
	if neg {
		value = -value
	}
	l.emit(token.Token{Kind: token.INT, Line: line, IntValue: value})
}

func (l *Lexer) unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '\'':
		return '\''
	case '"':
		return '"'
	default:
		return c
	}
}

func (l *Lexer) lexChar() {
	line := l.line
	l.advance() // opening quote
	var v byte
	if l.peek() == '\\' {
		l.advance()
		v = l.unescape(l.advance())
	} else if l.pos < len(l.src) {
		v = l.advance()
	}
	if l.peek() == '\'' {
		l.advance()
	} else {
		l.diags.Errorf(line, "unterminated character literal")
	}
	l.emit(token.Token{Kind: token.CHAR, Line: line, CharValue: v})
}

func (l *Lexer) lexString() {
	line := l.line
	l.advance() // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) && l.peek() != '"' {
		c := l.advance()
		if c == '\\' && l.pos < len(l.src) {
			sb.WriteByte(l.unescape(l.advance()))
			continue
		}
		sb.WriteByte(c)
	}
	if l.peek() == '"' {
		l.advance()
	} else {
		l.diags.Errorf(line, "unterminated string literal")
	}
	l.emit(token.Token{Kind: token.STRING, Line: line, StrValue: sb.String()})
}

func (l *Lexer) lexPrefixedIdent(kind token.Kind) {
	line := l.line
	l.advance() // '*' or '&'
	start := l.pos
	for isAlnum(l.peek()) {
		l.advance()
	}
	l.emit(token.Token{Kind: kind, Line: line, StrValue: l.src[start:l.pos]})
}

// lexLabel scans a `:name` label declaration. The leading colon is already
// known present and followed by an identifier start; a colon not followed by
// an identifier character falls through to lexOperator as a bare COLON.
func (l *Lexer) lexLabel() {
	line := l.line
	l.advance() // ':'
	start := l.pos
	for isAlnum(l.peek()) {
		l.advance()
	}
	l.emit(token.Token{Kind: token.LABEL, Line: line, StrValue: l.src[start:l.pos]})
}

func (l *Lexer) lexIdentOrKeywordOrLabel() {
	line := l.line
	start := l.pos
	for isAlnum(l.peek()) {
		l.advance()
	}
	word := l.src[start:l.pos]

	if word == "_" {
		l.emit(token.Token{Kind: token.UNDERSCORE, Line: line})
		return
	}

	if kind, ok := token.Lookup(word); ok {
		l.emit(token.Token{Kind: kind, Line: line})
		return
	}

	l.emit(token.Token{Kind: token.IDENTIFIER, Line: line, StrValue: word})
}

// operators in maximal-munch order: longest literal match wins.
var operators = []struct {
	lit  string
	kind token.Kind
}{
	{"...", token.ELLIPSIS},
	{"==", token.IS_EQUAL},
	{"!=", token.NOT_EQUAL},
	{"<=", token.LESS_THAN_OR_EQUAL},
	{">=", token.GREATER_THAN_OR_EQUAL},
	{"=>", token.DARROW},
	{"=", token.ASSIGN},
	{"<", token.LESS_THAN},
	{">", token.GREATER_THAN},
	{"+", token.ADD},
	{"-", token.SUBTRACT},
	{"*", token.MULTIPLY},
	{"/", token.DIVIDE},
	{"%", token.MODULO},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{"{", token.LBRACE},
	{"}", token.RBRACE},
	{"[", token.LSQBR},
	{"]", token.RSQBR},
	{",", token.COMMA},
	{":", token.COLON},
	{"_", token.UNDERSCORE},
}

func (l *Lexer) lexOperator() {
	line := l.line
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op.lit) {
			l.pos += len(op.lit)
			l.emit(token.Token{Kind: op.kind, Line: line})
			return
		}
	}
	c := l.advance()
	l.emit(token.Token{Kind: token.INVALID, Line: line, StrValue: string(c)})
	l.diags.Errorf(line, "unrecognized character %q", c)
}
