package template

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText    TokenType = iota // Literal text
	TokenExpr                     // Expression content (between @{ and }@)
	TokenStmt                     // Statement content (between {% and %})
	TokenComment                  // Comment content (between {# and #})
	TokenEOF                      // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenExpr:
		return "EXPR"
	case TokenStmt:
		return "STMT"
	case TokenComment:
		return "COMMENT"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position

	// TrimLeft and TrimRight record the `-` whitespace markers on a tag.
	TrimLeft  bool
	TrimRight bool
}

// Delims holds the tag delimiters of the template language.
type Delims struct {
	VarStart     string
	VarEnd       string
	BlockStart   string
	BlockEnd     string
	CommentStart string
	CommentEnd   string
}

// DefaultDelims returns the delimiters used for dashboard templates. The
// variable delimiters differ from the usual {{ }} so that Grafana's own
// {{label}} legend syntax passes through untouched.
func DefaultDelims() Delims {
	return Delims{
		VarStart:     "@{",
		VarEnd:       "}@",
		BlockStart:   "{%",
		BlockEnd:     "%}",
		CommentStart: "{#",
		CommentEnd:   "#}",
	}
}

// Syntax configures how template source is tokenized.
type Syntax struct {
	Delims Delims

	// TrimBlocks removes the first newline after a block or comment tag.
	TrimBlocks bool

	// LstripBlocks removes spaces and tabs between the start of a line and a
	// block or comment tag.
	LstripBlocks bool
}

// DefaultSyntax returns DefaultDelims with TrimBlocks and LstripBlocks enabled.
func DefaultSyntax() Syntax {
	return Syntax{
		Delims:       DefaultDelims(),
		TrimBlocks:   true,
		LstripBlocks: true,
	}
}

// Lexer tokenizes a template string.
type Lexer struct {
	input    string
	file     string
	syntax   Syntax
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input using DefaultSyntax.
func NewLexer(input, file string) *Lexer {
	return NewLexerWithSyntax(input, file, DefaultSyntax())
}

// NewLexerWithSyntax creates a new lexer with custom delimiters and whitespace handling.
func NewLexerWithSyntax(input, file string, syntax Syntax) *Lexer {
	return &Lexer{
		input:  input,
		file:   file,
		syntax: syntax,
		pos:    0,
		line:   1,
		col:    1,
	}
}

// Tokenize converts the input into a slice of tokens. Whitespace control is
// applied to the text tokens before they are returned.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return l.trimWhitespace(tokens), nil
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	d := l.syntax.Delims
	switch {
	case l.matchString(d.CommentStart):
		return l.scanComment()
	case l.matchString(d.VarStart):
		return l.scanTag(TokenExpr, d.VarStart, d.VarEnd, "expression")
	case l.matchString(d.BlockStart):
		return l.scanTag(TokenStmt, d.BlockStart, d.BlockEnd, "statement")
	}

	// Otherwise, scan text until we hit a delimiter or EOF
	return l.scanText()
}

// atTagStart reports whether any tag opens at the current position.
func (l *Lexer) atTagStart() bool {
	d := l.syntax.Delims
	return l.matchString(d.VarStart) || l.matchString(d.BlockStart) || l.matchString(d.CommentStart)
}

// scanText scans literal text until a delimiter or EOF.
func (l *Lexer) scanText() (Token, error) {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) {
		if l.atTagStart() {
			break
		}
		l.advance()
	}

	if l.pos == start {
		// No text consumed, something is wrong
		return Token{}, NewLexError(l.position(), "unexpected state in lexer")
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}, nil
}

// scanTag scans an expression or statement tag. String literals and brackets
// are tracked so that a closing delimiter inside them does not end the tag.
func (l *Lexer) scanTag(typ TokenType, open, closeDelim, what string) (Token, error) {
	l.markStart()
	l.skip(open)

	tok := Token{Type: typ, Pos: l.startPosition()}
	if l.matchString("-") {
		tok.TrimLeft = true
		l.advance()
	}

	contentStart := l.pos
	depth := 0
	var quote rune

	for l.pos < len(l.input) {
		r := l.peek()

		if quote != 0 {
			if r == '\\' {
				l.advance()
			} else if r == quote {
				quote = 0
			}
			l.advance()
			continue
		}

		if depth == 0 {
			if l.matchString("-" + closeDelim) {
				tok.TrimRight = true
				tok.Value = strings.TrimSpace(l.input[contentStart:l.pos])
				l.advance()
				l.skip(closeDelim)
				return tok, nil
			}
			if l.matchString(closeDelim) {
				tok.Value = strings.TrimSpace(l.input[contentStart:l.pos])
				l.skip(closeDelim)
				return tok, nil
			}
		}

		switch r {
		case '"', '\'':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
		l.advance()
	}

	if quote != 0 {
		return Token{}, NewLexError(l.startPosition(), "unterminated string literal in "+what)
	}
	return Token{}, NewLexError(l.startPosition(), "unclosed "+what+": missing '"+closeDelim+"'")
}

// scanComment scans a comment tag. Its content is kept for tooling but never rendered.
func (l *Lexer) scanComment() (Token, error) {
	d := l.syntax.Delims
	l.markStart()
	l.skip(d.CommentStart)

	tok := Token{Type: TokenComment, Pos: l.startPosition()}
	if l.matchString("-") {
		tok.TrimLeft = true
		l.advance()
	}

	contentStart := l.pos
	for l.pos < len(l.input) {
		if l.matchString("-" + d.CommentEnd) {
			tok.TrimRight = true
			tok.Value = strings.TrimSpace(l.input[contentStart:l.pos])
			l.advance()
			l.skip(d.CommentEnd)
			return tok, nil
		}
		if l.matchString(d.CommentEnd) {
			tok.Value = strings.TrimSpace(l.input[contentStart:l.pos])
			l.skip(d.CommentEnd)
			return tok, nil
		}
		l.advance()
	}

	return Token{}, NewLexError(l.startPosition(), "unclosed comment: missing '"+d.CommentEnd+"'")
}

// trimWhitespace applies the `-` markers, LstripBlocks and TrimBlocks to the
// text around each tag and drops text tokens left empty. Line stripping runs
// first so that it sees text before a newline is removed from its start.
func (l *Lexer) trimWhitespace(tokens []Token) []Token {
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		prev := &tokens[i-1]
		if !isTag(tok) || prev.Type != TokenText {
			continue
		}
		switch {
		case tok.TrimLeft:
			prev.Value = strings.TrimRight(prev.Value, " \t\r\n")
		case isBlock(tok) && l.syntax.LstripBlocks:
			prev.Value = lstripLine(prev.Value, prev.Pos.Column == 1)
		}
	}

	for i := 0; i+1 < len(tokens); i++ {
		tok := tokens[i]
		next := &tokens[i+1]
		if !isTag(tok) || next.Type != TokenText {
			continue
		}
		switch {
		case tok.TrimRight:
			next.Value = strings.TrimLeft(next.Value, " \t\r\n")
		case isBlock(tok) && l.syntax.TrimBlocks:
			if strings.HasPrefix(next.Value, "\r\n") {
				next.Value = next.Value[2:]
			} else {
				next.Value = strings.TrimPrefix(next.Value, "\n")
			}
		}
	}

	out := tokens[:0]
	for _, tok := range tokens {
		if tok.Type == TokenText && tok.Value == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isTag(tok Token) bool {
	return tok.Type == TokenExpr || tok.Type == TokenStmt || tok.Type == TokenComment
}

func isBlock(tok Token) bool {
	return tok.Type == TokenStmt || tok.Type == TokenComment
}

// lstripLine removes trailing spaces and tabs from text when they are all that
// precedes a tag on its line. atLineStart tells whether text itself starts a line.
func lstripLine(text string, atLineStart bool) string {
	lineStart := strings.LastIndexByte(text, '\n') + 1
	if lineStart == 0 && !atLineStart {
		return text
	}
	if strings.Trim(text[lineStart:], " \t") != "" {
		return text
	}
	return text[:lineStart]
}

// Helper methods

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// skip advances past s, which must be at the current position.
func (l *Lexer) skip(s string) {
	for range utf8.RuneCountInString(s) {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return s != "" && strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}
