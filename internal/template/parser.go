package template

import (
	"regexp"
	"strings"
)

// forPattern matches `x in expr` and `k, v in expr`.
var forPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*)\s+in\s+(.+)$`)

// Parser builds a Template from lexer tokens, pairing block statements.
type Parser struct {
	tokens []Token
	pos    int
	file   string
}

// NewParser creates a parser over tokens produced by a Lexer.
func NewParser(tokens []Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file}
}

// ParseString tokenizes and parses input with DefaultSyntax.
func ParseString(input, file string) (*Template, error) {
	return ParseStringWithSyntax(input, file, DefaultSyntax())
}

// ParseStringWithSyntax tokenizes and parses input with the given syntax.
func ParseStringWithSyntax(input, file string, syntax Syntax) (*Template, error) {
	tokens, err := NewLexerWithSyntax(input, file, syntax).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, file).Parse()
}

// Parse parses all tokens into a Template.
func (p *Parser) Parse() (*Template, error) {
	nodes, stop, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, NewUnmatchedBlockError(stop.Pos(), stop.Kind)
	}
	return &Template{Nodes: nodes, File: p.file}, nil
}

// parseNodes reads nodes until EOF or until a statement that ends or continues
// the enclosing block (endfor, endif, elif, else), which is returned unconsumed
// by any node.
func (p *Parser) parseNodes() ([]Node, *StmtNode, error) {
	var nodes []Node

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++

		switch tok.Type {
		case TokenEOF:
			return nodes, nil, nil

		case TokenText:
			nodes = append(nodes, &TextNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Value})

		case TokenExpr:
			if tok.Value == "" {
				return nil, nil, NewParseError(tok.Pos, "empty expression")
			}
			nodes = append(nodes, &ExprNode{nodeBase: nodeBase{pos: tok.Pos}, Expr: tok.Value})

		case TokenComment:
			continue

		case TokenStmt:
			stmt, err := parseStatement(tok)
			if err != nil {
				return nil, nil, err
			}

			switch stmt.Kind {
			case StmtFor:
				block, err := p.parseFor(stmt)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, block)
			case StmtIf:
				block, err := p.parseIf(stmt)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, block)
			default:
				return nodes, stmt, nil
			}
		}
	}

	return nodes, nil, nil
}

func (p *Parser) parseFor(stmt *StmtNode) (*ForBlock, error) {
	body, stop, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if stop == nil {
		return nil, NewUnmatchedBlockError(stmt.Pos(), StmtFor)
	}
	if stop.Kind != StmtEndFor {
		return nil, NewUnmatchedBlockError(stop.Pos(), stop.Kind)
	}

	return &ForBlock{
		nodeBase: nodeBase{pos: stmt.Pos()},
		VarNames: stmt.VarNames,
		IterExpr: stmt.Expr,
		Body:     body,
	}, nil
}

func (p *Parser) parseIf(stmt *StmtNode) (*IfBlock, error) {
	block := &IfBlock{
		nodeBase:  nodeBase{pos: stmt.Pos()},
		Condition: stmt.Expr,
	}

	body, stop, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	block.Body = body

	seenElse := false
	for {
		if stop == nil {
			return nil, NewUnmatchedBlockError(stmt.Pos(), StmtIf)
		}

		switch stop.Kind {
		case StmtEndIf:
			return block, nil

		case StmtElif:
			if seenElse {
				return nil, NewParseError(stop.Pos(), "'elif' after 'else'")
			}
			branchBody, next, err := p.parseNodes()
			if err != nil {
				return nil, err
			}
			block.ElseIfs = append(block.ElseIfs, Branch{Condition: stop.Expr, Body: branchBody, pos: stop.Pos()})
			stop = next

		case StmtElse:
			if seenElse {
				return nil, NewParseError(stop.Pos(), "duplicate 'else' in 'if' block")
			}
			seenElse = true
			elseBody, next, err := p.parseNodes()
			if err != nil {
				return nil, err
			}
			if elseBody == nil {
				elseBody = []Node{}
			}
			block.Else = elseBody
			stop = next

		default:
			return nil, NewUnmatchedBlockError(stop.Pos(), stop.Kind)
		}
	}
}

// parseStatement classifies the content of a {% %} tag. A trailing colon is accepted.
func parseStatement(tok Token) (*StmtNode, error) {
	src := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(tok.Value), ":"))
	keyword, rest, _ := strings.Cut(src, " ")
	rest = strings.TrimSpace(rest)

	stmt := &StmtNode{nodeBase: nodeBase{pos: tok.Pos}}

	switch keyword {
	case "for":
		m := forPattern.FindStringSubmatch(rest)
		if m == nil {
			return nil, NewParseErrorf(tok.Pos, "invalid for statement %q: expected 'for x in items'", src)
		}
		stmt.Kind = StmtFor
		for _, name := range strings.Split(m[1], ",") {
			stmt.VarNames = append(stmt.VarNames, strings.TrimSpace(name))
		}
		stmt.Expr = strings.TrimSpace(m[2])

	case "if", "elif":
		if rest == "" {
			return nil, NewParseErrorf(tok.Pos, "'%s' requires a condition", keyword)
		}
		stmt.Kind = StmtIf
		if keyword == "elif" {
			stmt.Kind = StmtElif
		}
		stmt.Expr = rest

	case "else", "endfor", "endif":
		if rest != "" {
			return nil, NewParseErrorf(tok.Pos, "unexpected content after '%s': %q", keyword, rest)
		}
		switch keyword {
		case "else":
			stmt.Kind = StmtElse
		case "endfor":
			stmt.Kind = StmtEndFor
		default:
			stmt.Kind = StmtEndIf
		}

	default:
		return nil, NewParseErrorf(tok.Pos, "unknown statement %q", src)
	}

	return stmt, nil
}
