package cc1

import (
	"strconv"
	"strings"
)

// Lexer scans a preprocessed C89 translation unit into a token
// stream.  The surface syntax is strict ISO 9899-1990: `//` comments
// and wide literal prefixes are rejected.
type Lexer struct {
	src    []byte
	cursor int
	index  *LineIndex
	bag    *DiagBag
}

func NewLexer(file string, src []byte, bag *DiagBag) *Lexer {
	return &Lexer{
		src:   src,
		index: NewLineIndex(file, src),
		bag:   bag,
	}
}

// Lex scans the whole input.  The returned slice always ends in an
// EOF token.  Lexing halts at the first error; the diagnostic is in
// the bag and returned.
func Lex(file string, src []byte, bag *DiagBag) ([]Token, error) {
	l := NewLexer(file, src, bag)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) loc() Location {
	return l.index.LocationAt(l.cursor)
}

func (l *Lexer) peek() int {
	if l.cursor >= len(l.src) {
		return eof
	}
	return int(l.src[l.cursor])
}

func (l *Lexer) peekAt(n int) int {
	if l.cursor+n >= len(l.src) {
		return eof
	}
	return int(l.src[l.cursor+n])
}

func (l *Lexer) advance() int {
	c := l.peek()
	if c != eof {
		l.cursor++
	}
	return c
}

func (l *Lexer) failf(kind DiagKind, loc Location, format string, args ...any) error {
	l.bag.Errorf(kind, loc, format, args...)
	return l.bag.Diags[len(l.bag.Diags)-1]
}

// Next returns the next token or the first lexical error.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipSpacing(); err != nil {
		return Token{}, err
	}

	start := l.cursor
	loc := l.loc()
	c := l.peek()

	switch {
	case c == eof:
		return Token{Kind: TokenEOF, Loc: loc}, nil

	case c == 'L' && (l.peekAt(1) == '"' || l.peekAt(1) == '\''):
		return Token{}, l.failf(WideLiteralNotSupported, loc,
			"wide %s literals are not supported in C89 mode",
			map[int]string{'"': "string", '\'': "character"}[l.peekAt(1)])

	case isIdentStart(c):
		return l.lexIdent(start, loc), nil

	case isDigit(c) || (c == '.' && isDigit(l.peekAt(1))):
		return l.lexNumber(start, loc)

	case c == '\'':
		return l.lexCharConst(start, loc)

	case c == '"':
		return l.lexString(start, loc)

	default:
		if tok, ok := l.lexPunct(start, loc); ok {
			return tok, nil
		}
		if c >= 0x80 {
			return Token{}, l.failf(StrayCharacter, loc,
				"stray non-ASCII byte 0x%02x outside of a literal", c)
		}
		return Token{}, l.failf(StrayCharacter, loc, "stray %q in program", rune(c))
	}
}

// skipSpacing consumes whitespace and /* */ comments.  A `//`
// sequence is a C99-ism and is rejected here.
func (l *Lexer) skipSpacing() error {
	for {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			return l.failf(NonC89Comment, l.loc(), "`//` comments are not C89")
		case c == '/' && l.peekAt(1) == '*':
			loc := l.loc()
			l.advance()
			l.advance()
			for {
				if l.peek() == eof {
					return l.failf(UnterminatedLiteral, loc, "unterminated comment")
				}
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) lexIdent(start int, loc Location) Token {
	for isIdentStart(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.cursor])
	kind := TokenIdent
	if keywords[lexeme] {
		kind = TokenKeyword
	}
	return Token{Kind: kind, Lexeme: lexeme, Loc: loc}
}

func (l *Lexer) lexPunct(start int, loc Location) (Token, bool) {
	rest := l.src[l.cursor:]
	for _, p := range punctuators {
		if len(rest) >= len(p) && string(rest[:len(p)]) == p {
			l.cursor += len(p)
			return Token{Kind: TokenPunct, Lexeme: p, Loc: loc}, true
		}
	}
	return Token{}, false
}

// lexNumber scans integer and floating constants.
//
// integers: decimal [1-9][0-9]*, octal 0[0-7]*, hex 0[xX][0-9a-fA-F]+
// floats:   ([0-9]+\.[0-9]* | \.[0-9]+ | [0-9]+) ([eE][+-]?[0-9]+)? [fFlL]?
func (l *Lexer) lexNumber(start int, loc Location) (Token, error) {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		return l.lexHex(start, loc)
	}

	digits := 0
	for isDigit(l.peek()) {
		l.advance()
		digits++
	}

	isFloat := false
	if l.peek() == '.' {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			return Token{}, l.failf(InvalidNumber, loc, "exponent has no digits")
		}
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	if isFloat {
		return l.finishFloat(start, loc)
	}
	return l.finishInt(start, loc, l.src[start:l.cursor])
}

func (l *Lexer) lexHex(start int, loc Location) (Token, error) {
	l.advance() // 0
	l.advance() // x
	digits := 0
	for isHexDigit(l.peek()) {
		l.advance()
		digits++
	}
	if digits == 0 {
		return Token{}, l.failf(InvalidNumber, loc, "hexadecimal constant has no digits")
	}
	return l.finishInt(start, loc, l.src[start:l.cursor])
}

func (l *Lexer) finishInt(start int, loc Location, body []byte) (Token, error) {
	tok := Token{Kind: TokenIntConst, Loc: loc}

	// Suffix letters.
	suffixStart := l.cursor
	for isIdentStart(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	suffix := string(l.src[suffixStart:l.cursor])
	tok.Lexeme = string(l.src[start:l.cursor])

	switch strings.ToLower(suffix) {
	case "":
	case "u":
		tok.Unsigned = true
	case "l":
		tok.Long = true
	case "ul", "lu":
		tok.Unsigned, tok.Long = true, true
	case "ll":
		if suffix != "ll" && suffix != "LL" {
			return Token{}, l.failf(InvalidSuffix, loc, "mixed-case `ll` suffix %q", suffix)
		}
		tok.LongLong = true
	case "ull", "llu":
		ls := strings.Trim(suffix, "uU")
		if ls != "ll" && ls != "LL" {
			return Token{}, l.failf(InvalidSuffix, loc, "mixed-case `ll` suffix %q", suffix)
		}
		tok.Unsigned, tok.LongLong = true, true
	case "f":
		return Token{}, l.failf(InvalidSuffix, loc, "`f` suffix on an integer constant")
	default:
		return Token{}, l.failf(InvalidSuffix, loc, "invalid integer suffix %q", suffix)
	}

	text := string(body)
	base := 10
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		base = 16
		text = text[2:]
	case strings.HasPrefix(text, "0") && len(text) > 1:
		base = 8
		text = text[1:]
		for _, d := range text {
			if d == '8' || d == '9' {
				return Token{}, l.failf(InvalidNumber, loc, "digit %q in octal constant", d)
			}
		}
	}
	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return Token{}, l.failf(InvalidNumber, loc, "integer constant out of range")
	}
	tok.IntVal = v
	return tok, nil
}

func (l *Lexer) finishFloat(start int, loc Location) (Token, error) {
	tok := Token{Kind: TokenFloatConst, Loc: loc}

	body := string(l.src[start:l.cursor])
	suffixStart := l.cursor
	for isIdentStart(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	suffix := string(l.src[suffixStart:l.cursor])
	tok.Lexeme = string(l.src[start:l.cursor])

	switch suffix {
	case "":
	case "f", "F":
		tok.FloatF = true
	case "l", "L":
		tok.Long = true
	default:
		if strings.ContainsAny(suffix, "uU") {
			return Token{}, l.failf(InvalidSuffix, loc, "`u` suffix on a floating constant")
		}
		return Token{}, l.failf(InvalidSuffix, loc, "invalid floating suffix %q", suffix)
	}

	v, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return Token{}, l.failf(InvalidNumber, loc, "malformed floating constant")
	}
	tok.FloatVal = v
	return tok, nil
}

func (l *Lexer) lexCharConst(start int, loc Location) (Token, error) {
	l.advance() // opening quote
	var payload []byte
	for {
		c := l.peek()
		if c == eof || c == '\n' {
			return Token{}, l.failf(UnterminatedLiteral, loc, "unterminated character constant")
		}
		if c == '\'' {
			l.advance()
			break
		}
		b, err := l.scanChar(loc)
		if err != nil {
			return Token{}, err
		}
		payload = append(payload, b...)
	}
	if len(payload) == 0 {
		return Token{}, l.failf(InvalidNumber, loc, "empty character constant")
	}
	if len(payload) > 1 {
		l.bag.Warnf(StrayCharacter, loc, "multi-character character constant")
	}
	return Token{
		Kind:   TokenCharConst,
		Lexeme: string(l.src[start:l.cursor]),
		Loc:    loc,
		IntVal: uint64(payload[len(payload)-1]),
	}, nil
}

// lexString scans a string literal and any adjacent string literals
// that follow it; their payloads concatenate into a single token.
func (l *Lexer) lexString(start int, loc Location) (Token, error) {
	var payload []byte
	end := l.cursor
	for l.peek() == '"' {
		l.advance() // opening quote
		for {
			c := l.peek()
			if c == eof {
				return Token{}, l.failf(UnterminatedLiteral, loc, "unterminated string literal")
			}
			if c == '\n' {
				return Token{}, l.failf(UnterminatedLiteral, loc, "newline in string literal")
			}
			if c == '"' {
				l.advance()
				break
			}
			b, err := l.scanChar(loc)
			if err != nil {
				return Token{}, err
			}
			payload = append(payload, b...)
		}
		end = l.cursor

		// Adjacent literal?  Whitespace and comments may separate
		// the two pieces.
		mark := l.cursor
		if err := l.skipSpacing(); err != nil {
			return Token{}, err
		}
		if l.peek() != '"' {
			l.cursor = mark
			break
		}
	}
	l.cursor = end
	return Token{
		Kind:   TokenString,
		Lexeme: string(l.src[start:end]),
		Loc:    loc,
		StrVal: payload,
	}, nil
}

// scanChar resolves one character of a char/string literal body into
// its byte value(s).  UTF-8 is tolerated here and only here.
func (l *Lexer) scanChar(loc Location) ([]byte, error) {
	c := l.advance()
	if c != '\\' {
		return []byte{byte(c)}, nil
	}

	e := l.advance()
	switch e {
	case 'n':
		return []byte{'\n'}, nil
	case 't':
		return []byte{'\t'}, nil
	case 'r':
		return []byte{'\r'}, nil
	case 'b':
		return []byte{'\b'}, nil
	case 'f':
		return []byte{'\f'}, nil
	case 'v':
		return []byte{'\v'}, nil
	case 'a':
		return []byte{7}, nil
	case '\\':
		return []byte{'\\'}, nil
	case '?':
		return []byte{'?'}, nil
	case '\'':
		return []byte{'\''}, nil
	case '"':
		return []byte{'"'}, nil
	case '\n':
		// Line splicing, accepted only inside literals.
		return nil, nil
	case 'x':
		v, digits := 0, 0
		for isHexDigit(l.peek()) {
			v = v*16 + hexValue(l.advance())
			digits++
		}
		if digits == 0 {
			return nil, l.failf(InvalidEscape, loc, "\\x used with no following hex digits")
		}
		return []byte{byte(v)}, nil
	case '0', '1', '2', '3', '4', '5', '6', '7':
		v := e - '0'
		for n := 1; n < 3 && l.peek() >= '0' && l.peek() <= '7'; n++ {
			v = v*8 + (l.advance() - '0')
		}
		return []byte{byte(v)}, nil
	case eof:
		return nil, l.failf(UnterminatedLiteral, loc, "unterminated literal")
	default:
		return nil, l.failf(InvalidEscape, loc, "unknown escape sequence \\%c", rune(e))
	}
}

func isIdentStart(c int) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c int) bool { return c >= '0' && c <= '9' }

func isHexDigit(c int) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c int) int {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
