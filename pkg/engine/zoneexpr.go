package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/zonecsg/pkg/registry"
)

// Zone expressions use the FLUKA region notation: signed body names,
// parenthesised sub-zones and '|' between zones, e.g.
//
//	+outer -inner -(+plug -hole) | +cap
//
// Unions are only allowed at the top level.

type tokenKind int

const (
	tokPlus tokenKind = iota
	tokMinus
	tokOpen
	tokClose
	tokBar
	tokName
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isNameChar(c byte) bool {
	return isIdentChar(c) || c == '.'
}

func tokenize(expr string) ([]token, error) {
	var toks []token
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
		case c == '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
		case c == '(':
			toks = append(toks, token{tokOpen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokClose, ")", i})
			i++
		case c == '|':
			toks = append(toks, token{tokBar, "|", i})
			i++
		case isIdentChar(c):
			j := i
			for j < len(expr) && isNameChar(expr[j]) {
				j++
			}
			toks = append(toks, token{tokName, expr[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("unexpected %q at offset %d", c, i)
		}
	}
	return toks, nil
}

type zoneParser struct {
	toks   []token
	pos    int
	lookup func(string) (registry.BodyID, bool)
}

// parseZones parses a zone expression, resolving body names with lookup.
func parseZones(expr string, lookup func(string) (registry.BodyID, bool)) ([]registry.Zone, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, fmt.Errorf("zone %q: %w", expr, err)
	}
	p := &zoneParser{toks: toks, lookup: lookup}
	var zones []registry.Zone
	for {
		z, err := p.zone()
		if err != nil {
			return nil, fmt.Errorf("zone %q: %w", expr, err)
		}
		zones = append(zones, z)
		if p.done() {
			return zones, nil
		}
		switch t := p.next(); t.kind {
		case tokBar:
		case tokClose:
			return nil, fmt.Errorf("zone %q: unbalanced ')' at offset %d", expr, t.pos)
		default:
			return nil, fmt.Errorf("zone %q: unexpected %q at offset %d", expr, t.text, t.pos)
		}
	}
}

func (p *zoneParser) done() bool { return p.pos >= len(p.toks) }

func (p *zoneParser) peek() token { return p.toks[p.pos] }

func (p *zoneParser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

// zone reads operands up to '|', ')' or the end of input.
func (p *zoneParser) zone() (registry.Zone, error) {
	var z registry.Zone
	for !p.done() {
		if k := p.peek().kind; k == tokBar || k == tokClose {
			break
		}
		o, err := p.operand()
		if err != nil {
			return registry.Zone{}, err
		}
		z.Operands = append(z.Operands, o)
	}
	if len(z.Operands) == 0 {
		return registry.Zone{}, fmt.Errorf("empty zone")
	}
	return z, nil
}

func (p *zoneParser) operand() (registry.Operand, error) {
	t := p.next()
	sign := registry.Include
	switch t.kind {
	case tokPlus:
	case tokMinus:
		sign = registry.Exclude
	default:
		return registry.Operand{}, fmt.Errorf("expected '+' or '-' at offset %d, got %q", t.pos, t.text)
	}
	if p.done() {
		return registry.Operand{}, fmt.Errorf("dangling %q at offset %d", t.text, t.pos)
	}
	switch t := p.next(); t.kind {
	case tokName:
		id, ok := p.lookup(t.text)
		if !ok {
			return registry.Operand{}, fmt.Errorf("unknown body %q", t.text)
		}
		return registry.Operand{Sign: sign, Body: id}, nil
	case tokOpen:
		sub, err := p.zone()
		if err != nil {
			return registry.Operand{}, err
		}
		if p.done() {
			return registry.Operand{}, fmt.Errorf("missing ')' for '(' at offset %d", t.pos)
		}
		if c := p.next(); c.kind != tokClose {
			return registry.Operand{}, fmt.Errorf("union inside parentheses at offset %d", c.pos)
		}
		return registry.Operand{Sign: sign, Sub: &sub}, nil
	default:
		return registry.Operand{}, fmt.Errorf("expected body name or '(' at offset %d, got %q", t.pos, t.text)
	}
}

// formatZones renders zones back into expression form.
func formatZones(zones []registry.Zone, names func(registry.BodyID) string) string {
	parts := make([]string, len(zones))
	for i, z := range zones {
		parts[i] = z.Format(names)
	}
	return strings.Join(parts, " | ")
}
