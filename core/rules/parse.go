package rules

import (
	"fmt"
	"strings"

	"example.com/fuzzy-infusion/core/fuzzy"
)

// Antecedent text grammar, AND binding tighter than OR:
//
//	expr  := or
//	or    := and { "OR" and }
//	and   := unary { "AND" unary }
//	unary := "(" expr ")" | variable "is" term
//
// Keywords are case-sensitive; variable and term tokens are bare words of
// letters, digits, '-', '_' and '.'.

// Parse builds an antecedent tree from its textual form, e.g.
// "glycemia is low AND (trend is falling OR trend is falling-fast)".
// Malformed text is a configuration error.
func Parse(s string) (Node, error) {
	p := &parser{toks: tokenize(s), src: s}
	n, err := p.parseOr()
	if err != nil {
		return Node{}, err
	}
	if !p.done() {
		return Node{}, p.errorf("unexpected token %q", p.peek())
	}
	return n, nil
}

type parser struct {
	toks []string
	pos  int
	src  string
}

func tokenize(s string) []string {
	var toks []string
	var w strings.Builder
	flush := func() {
		if w.Len() != 0 {
			toks = append(toks, w.String())
			w.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		case r == '-' || r == '_' || r == '.' ||
			'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9':
			w.WriteRune(r)
		default:
			flush()
			toks = append(toks, string(r))
		}
	}
	flush()
	return toks
}

func (p *parser) done() bool { return p.pos == len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	if t != "" {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: antecedent %q: %s",
		fuzzy.ErrConfiguration, p.src, fmt.Sprintf(format, args...))
}

func (p *parser) parseOr() (Node, error) {
	n, err := p.parseAnd()
	if err != nil {
		return Node{}, err
	}
	children := []Node{n}
	for p.peek() == "OR" {
		p.next()
		c, err := p.parseAnd()
		if err != nil {
			return Node{}, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return Or(children...), nil
}

func (p *parser) parseAnd() (Node, error) {
	n, err := p.parseUnary()
	if err != nil {
		return Node{}, err
	}
	children := []Node{n}
	for p.peek() == "AND" {
		p.next()
		c, err := p.parseUnary()
		if err != nil {
			return Node{}, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return And(children...), nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek() == "(" {
		p.next()
		n, err := p.parseOr()
		if err != nil {
			return Node{}, err
		}
		if p.peek() != ")" {
			return Node{}, p.errorf("missing closing parenthesis")
		}
		p.next()
		return n, nil
	}
	return p.parseLeaf()
}

func reserved(tok string) bool {
	return tok == "" || tok == "(" || tok == ")" || tok == "AND" || tok == "OR" || tok == "is"
}

func (p *parser) parseLeaf() (Node, error) {
	v := p.next()
	if reserved(v) {
		return Node{}, p.errorf("expected variable name, got %q", v)
	}
	if p.peek() != "is" {
		return Node{}, p.errorf("expected %q after variable %q", "is", v)
	}
	p.next()
	t := p.next()
	if reserved(t) {
		return Node{}, p.errorf("expected term name of variable %q, got %q", v, t)
	}
	return Term(v, t), nil
}
