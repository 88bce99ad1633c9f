package query

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxKeywordCycles bounds the directive loop so malformed input cannot spin
// the parser indefinitely.
const maxKeywordCycles = 10

// blockEnd terminates a directive. Input may also simply end.
const blockEnd = "%}"

// Parse reads a "set content" directive of the form
//
//	name = contenttype [where {...}] [limit N] [order EXPR]
//	       [paging] [printquery] [returnsingle]
//
// Clause keywords may appear in any order. Unrecognized tokens before the
// block terminator are a parse error.
func Parse(input string) (*Query, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	q := &Query{}

	q.TargetName, err = p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	q.ContentType, err = p.expectName()
	if err != nil {
		return nil, err
	}

	for cycles := 0; !p.done() && cycles < maxKeywordCycles; cycles++ {
		token := p.peek()
		switch token {
		case "where":
			p.next()
			where, err := p.parseWhere()
			if err != nil {
				return nil, err
			}
			q.Where = where
		case "limit":
			p.next()
			limit, err := p.parseInt("limit")
			if err != nil {
				return nil, err
			}
			q.Limit = limit
		case "order", "orderby":
			p.next()
			value, err := p.expectValue(token)
			if err != nil {
				return nil, err
			}
			q.Order = value
		case "paging", "allowpaging":
			p.next()
			q.Paging = true
		case "printquery":
			p.next()
			q.PrintQuery = true
		case "returnsingle":
			p.next()
			q.ReturnSingle = true
		default:
			return nil, fmt.Errorf("unexpected token %q in content directive", token)
		}
	}

	if !p.done() {
		return nil, fmt.Errorf("content directive not terminated after %d clauses", maxKeywordCycles)
	}

	return q, nil
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) done() bool {
	return p.pos >= len(p.tokens) || p.tokens[p.pos] == blockEnd
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) next() string {
	token := p.peek()
	p.pos++
	return token
}

func (p *parser) expect(token string) error {
	if p.peek() != token {
		return fmt.Errorf("expected %q, got %q", token, p.peek())
	}
	p.next()
	return nil
}

func (p *parser) expectName() (string, error) {
	if p.done() {
		return "", fmt.Errorf("unexpected end of content directive")
	}
	return p.next(), nil
}

func (p *parser) expectValue(clause string) (string, error) {
	if p.done() {
		return "", fmt.Errorf("%s clause is missing its value", clause)
	}
	return p.next(), nil
}

func (p *parser) parseInt(clause string) (int, error) {
	raw, err := p.expectValue(clause)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s clause needs a number, got %q", clause, raw)
	}
	return n, nil
}

// parseWhere decodes the braces block following `where` as a flow mapping.
func (p *parser) parseWhere() (map[string]any, error) {
	raw, err := p.expectValue("where")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("where clause needs a { ... } mapping, got %q", raw)
	}
	var where map[string]any
	if err := yaml.Unmarshal([]byte(raw), &where); err != nil {
		return nil, fmt.Errorf("invalid where clause %q: %w", raw, err)
	}
	return where, nil
}

// tokenize splits the directive into tokens: names, "=", quoted strings
// (quotes stripped), balanced { ... } blocks kept whole, and the block
// terminator.
func tokenize(input string) ([]string, error) {
	var tokens []string
	runes := []rune(input)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '{':
			depth := 0
			start := i
			for ; i < len(runes); i++ {
				if runes[i] == '{' {
					depth++
				}
				if runes[i] == '}' {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unbalanced braces in content directive")
			}
			tokens = append(tokens, string(runes[start:i]))
		case r == '\'' || r == '"':
			quote := r
			i++
			start := i
			for i < len(runes) && runes[i] != quote {
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated string in content directive")
			}
			tokens = append(tokens, string(runes[start:i]))
			i++
		case r == '=':
			tokens = append(tokens, "=")
			i++
		case r == '%' && i+1 < len(runes) && runes[i+1] == '}':
			tokens = append(tokens, blockEnd)
			i += 2
		default:
			start := i
			for i < len(runes) && !strings.ContainsRune(" \t\n\r{='\"", runes[i]) {
				if runes[i] == '%' && i+1 < len(runes) && runes[i+1] == '}' {
					break
				}
				i++
			}
			tokens = append(tokens, string(runes[start:i]))
		}
	}

	return tokens, nil
}
