package exprlang

import (
	"fmt"
	"strings"

	"github.com/khryptorgraphics/taskgate/pkg/condition"
)

// Parse tokenizes and parses src, rewriting bare identifiers (those not
// already prefixed with $req./$sys./$ctx.) to $req.<ident> per the
// "bare names are request fields" convention.
func Parse(src string) (*condition.Node, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != TokenEOF {
		return nil, &SyntaxError{Position: p.cur().Pos, Message: fmt.Sprintf("unexpected trailing token %q", p.cur().Text)}
	}
	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) cur() Token  { return p.tokens[p.pos] }
func (p *parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind TokenKind, what string) (Token, error) {
	if p.cur().Kind != kind {
		return Token{}, &SyntaxError{Position: p.cur().Pos, Message: fmt.Sprintf("expected %s, got %q", what, p.cur().Text)}
	}
	return p.advance(), nil
}

// expr := or
func (p *parser) parseExpr() (*condition.Node, error) {
	return p.parseOr()
}

// or := and ('OR' and)*
func (p *parser) parseOr() (*condition.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []*condition.Node{left}
	for p.cur().Kind == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return condition.Or(children...)
}

// and := not ('AND' not)*
func (p *parser) parseAnd() (*condition.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	children := []*condition.Node{left}
	for p.cur().Kind == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return condition.And(children...)
}

// not := 'NOT' not | primary
func (p *parser) parseNot() (*condition.Node, error) {
	if p.cur().Kind == TokenNot {
		p.advance()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return condition.Not(child)
	}
	return p.parsePrimary()
}

// primary := '(' expr ')' | boolean | comparison
func (p *parser) parsePrimary() (*condition.Node, error) {
	switch p.cur().Kind {
	case TokenLParen:
		p.advance()
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return node, nil
	case TokenTrue:
		p.advance()
		return condition.AlwaysTrue(), nil
	case TokenFalse:
		p.advance()
		return condition.Not(condition.AlwaysTrue())
	case TokenIdent:
		return p.parseComparison()
	default:
		return nil, &SyntaxError{Position: p.cur().Pos, Message: fmt.Sprintf("unexpected token %q", p.cur().Text)}
	}
}

// comparison := field ( EXISTS | IS_NULL | 'NOT' 'IN' list | 'IN' list
//
//	| REGEX pattern | STARTS_WITH pattern | ENDS_WITH pattern
//	| CONTAINS value | ('=='|'='|'!='|'>='|'>'|'<='|'<') value )
func (p *parser) parseComparison() (*condition.Node, error) {
	fieldTok, err := p.expect(TokenIdent, "field reference")
	if err != nil {
		return nil, err
	}
	field := rewriteField(fieldTok.Text)

	switch p.cur().Kind {
	case TokenExists:
		p.advance()
		return condition.Exists(field), nil
	case TokenIsNull:
		p.advance()
		return condition.IsNull(field), nil
	case TokenNot:
		p.advance()
		if _, err := p.expect(TokenIn, "'IN' after NOT"); err != nil {
			return nil, err
		}
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return condition.NotIn(field, values), nil
	case TokenIn:
		p.advance()
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return condition.In(field, values), nil
	case TokenRegex:
		p.advance()
		pattern, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		s, ok := pattern.(string)
		if !ok {
			return nil, &SyntaxError{Position: fieldTok.Pos, Message: "REGEX requires a string pattern"}
		}
		return condition.Regex(field, s), nil
	case TokenStartsWith:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.StartsWith(field, fmt.Sprint(v)), nil
	case TokenEndsWith:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.EndsWith(field, fmt.Sprint(v)), nil
	case TokenContains:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.Contains(field, v), nil
	case TokenEq:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.Equals(field, v), nil
	case TokenNeq:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.NotEquals(field, v), nil
	case TokenGte:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.GTE(field, v), nil
	case TokenGt:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.GT(field, v), nil
	case TokenLte:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.LTE(field, v), nil
	case TokenLt:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return condition.LT(field, v), nil
	default:
		return nil, &SyntaxError{Position: p.cur().Pos, Message: fmt.Sprintf("expected a comparator after field, got %q", p.cur().Text)}
	}
}

// list := ('[' | '(') (value (',' value)*)? (']' | ')')
func (p *parser) parseList() ([]any, error) {
	var closing TokenKind
	switch p.cur().Kind {
	case TokenLBracket:
		closing = TokenRBracket
	case TokenLParen:
		closing = TokenRParen
	default:
		return nil, &SyntaxError{Position: p.cur().Pos, Message: "expected '[' or '(' to start a list"}
	}
	p.advance()

	var values []any
	if p.cur().Kind != closing {
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.cur().Kind == TokenComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(closing, "closing bracket"); err != nil {
		return nil, err
	}
	return values, nil
}

// value := string | number | boolean | ident
func (p *parser) parseValue() (any, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokenString:
		p.advance()
		return tok.Text, nil
	case TokenNumber:
		p.advance()
		return tok.Num, nil
	case TokenTrue:
		p.advance()
		return true, nil
	case TokenFalse:
		p.advance()
		return false, nil
	case TokenIdent:
		p.advance()
		return tok.Text, nil
	default:
		return nil, &SyntaxError{Position: tok.Pos, Message: fmt.Sprintf("expected a value, got %q", tok.Text)}
	}
}

// rewriteField rewrites a bare identifier to $req.<ident> unless it already
// carries one of the recognized reference prefixes.
func rewriteField(ident string) string {
	if strings.HasPrefix(ident, "$req.") || strings.HasPrefix(ident, "$sys.") || strings.HasPrefix(ident, "$ctx.") {
		return ident
	}
	return "$req." + ident
}
