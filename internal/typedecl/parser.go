package typedecl

import (
	"fmt"
	"strconv"
	"strings"

	"symres/internal/symbol"
)

// ParseError reports malformed declaration text.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse declaration %q at %d: %s", e.Input, e.Pos, e.Msg)
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(input string) ([]token, error) {
	var toks []token
	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], pos: start})
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: input[start:i], pos: start})
		case strings.IndexByte("*()[];", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), pos: i})
			i++
		default:
			return nil, &ParseError{Input: input, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Parser implements symbol.TypeParser.
type Parser struct{}

var _ symbol.TypeParser = Parser{}

func (Parser) Parse(decl string) (symbol.TypeDescriptor, error) {
	t, err := Parse(decl)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Parse parses a single declaration with an optional declarator name and an
// optional trailing semicolon.
func Parse(decl string) (*Type, error) {
	toks, err := lex(decl)
	if err != nil {
		return nil, err
	}
	p := &parser{input: decl, toks: toks}

	base, err := p.specifiers()
	if err != nil {
		return nil, err
	}
	ident, wrap, err := p.declarator()
	if err != nil {
		return nil, err
	}
	if p.peek().text == ";" {
		p.next()
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}

	t := wrap(base)
	t.Ident = ident
	return t, nil
}

type parser struct {
	input string
	toks  []token
	pos   int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &ParseError{Input: p.input, Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(text string) error {
	if tok := p.next(); tok.text != text {
		return p.errorf(tok, "expected %q", text)
	}
	return nil
}

// specs counts C type specifiers so any legal ordering maps to one spelling.
type specs struct {
	signed, unsigned, short, long int
	base                          string // int, char, float, double, void, bool
}

func (p *parser) specifiers() (*Type, error) {
	var s specs
	var t *Type
	var constQ, volatileQ bool
	first := p.peek()

loop:
	for {
		tok := p.peek()
		if tok.kind != tokIdent {
			break
		}
		switch tok.text {
		case "const":
			constQ = true
		case "volatile":
			volatileQ = true
		case "signed":
			s.signed++
		case "unsigned":
			s.unsigned++
		case "short":
			s.short++
		case "long":
			s.long++
		case "int", "char", "float", "double", "void", "bool", "_Bool":
			if s.base != "" {
				return nil, p.errorf(tok, "duplicate type specifier %q", tok.text)
			}
			s.base = tok.text
			if s.base == "_Bool" {
				s.base = "bool"
			}
		case "struct", "union", "enum":
			if t != nil || s != (specs{}) {
				return nil, p.errorf(tok, "unexpected %q", tok.text)
			}
			p.next()
			tag := p.next()
			if tag.kind != tokIdent {
				return nil, p.errorf(tag, "expected %s tag", tok.text)
			}
			t = &Type{Kind: map[string]Kind{"struct": KindStruct, "union": KindUnion, "enum": KindEnum}[tok.text], Name: tag.text}
			continue
		default:
			// An identifier is a typedef name until a type has been seen;
			// after that it is the declarator name.
			if t != nil || s != (specs{}) {
				break loop
			}
			t = &Type{Kind: KindNamed, Name: tok.text}
		}
		p.next()
	}

	if t != nil {
		if s != (specs{}) {
			return nil, p.errorf(first, "type specifiers combined with %q", t.Name)
		}
	} else {
		name, err := s.canonical()
		if err != nil {
			return nil, p.errorf(first, "%v", err)
		}
		t = Base(name)
	}
	t.Const, t.Volatile = constQ, volatileQ
	return t, nil
}

func (s specs) canonical() (string, error) {
	if s == (specs{}) {
		return "", fmt.Errorf("missing type specifier")
	}
	if s.signed > 1 || s.unsigned > 1 || s.short > 1 || s.long > 2 {
		return "", fmt.Errorf("duplicate type specifier")
	}
	if s.signed > 0 && s.unsigned > 0 {
		return "", fmt.Errorf("both signed and unsigned")
	}
	if s.short > 0 && s.long > 0 {
		return "", fmt.Errorf("both short and long")
	}
	sign := s.signed + s.unsigned
	prefix := ""
	if s.unsigned > 0 {
		prefix = "unsigned "
	}

	switch s.base {
	case "void", "bool", "float":
		if sign+s.short+s.long > 0 {
			return "", fmt.Errorf("invalid modifiers for %s", s.base)
		}
		return s.base, nil
	case "double":
		if sign+s.short > 0 || s.long > 1 {
			return "", fmt.Errorf("invalid modifiers for double")
		}
		if s.long == 1 {
			return "long double", nil
		}
		return "double", nil
	case "char":
		if s.short+s.long > 0 {
			return "", fmt.Errorf("invalid modifiers for char")
		}
		if s.signed > 0 {
			return "signed char", nil
		}
		return prefix + "char", nil
	}

	// int, possibly implied
	switch {
	case s.short > 0:
		return prefix + "short", nil
	case s.long == 2:
		return prefix + "long long", nil
	case s.long == 1:
		return prefix + "long", nil
	}
	return prefix + "int", nil
}

// declarator parses pointers, an optional name or parenthesized inner
// declarator, and array suffixes. The returned wrap applies them to a base type.
func (p *parser) declarator() (string, func(*Type) *Type, error) {
	type ptr struct{ constQ, volatileQ bool }
	var ptrs []ptr
	for p.peek().text == "*" {
		p.next()
		var q ptr
		for {
			switch p.peek().text {
			case "const":
				q.constQ = true
				p.next()
				continue
			case "volatile":
				q.volatileQ = true
				p.next()
				continue
			}
			break
		}
		ptrs = append(ptrs, q)
	}

	ident := ""
	inner := func(t *Type) *Type { return t }
	switch tok := p.peek(); {
	case tok.text == "(":
		p.next()
		if !p.groupingAhead() {
			return "", nil, p.errorf(p.peek(), "function declarators are not supported")
		}
		var err error
		ident, inner, err = p.declarator()
		if err != nil {
			return "", nil, err
		}
		if err := p.expect(")"); err != nil {
			return "", nil, err
		}
	case tok.kind == tokIdent:
		if tok.text == "const" || tok.text == "volatile" {
			return "", nil, p.errorf(tok, "misplaced qualifier %q", tok.text)
		}
		ident = p.next().text
	}

	var dims []int
	for p.peek().text == "[" {
		p.next()
		n := UnsizedArray
		if tok := p.peek(); tok.kind == tokNumber {
			p.next()
			v, err := strconv.ParseInt(tok.text, 0, 32)
			if err != nil || v < 0 {
				return "", nil, p.errorf(tok, "invalid array length %q", tok.text)
			}
			n = int(v)
		}
		if err := p.expect("]"); err != nil {
			return "", nil, err
		}
		dims = append(dims, n)
	}

	wrap := func(t *Type) *Type {
		for _, q := range ptrs {
			t = &Type{Kind: KindPointer, Elem: t, Const: q.constQ, Volatile: q.volatileQ}
		}
		for i := len(dims) - 1; i >= 0; i-- {
			t = Array(t, dims[i])
		}
		return inner(t)
	}
	return ident, wrap, nil
}

// groupingAhead reports whether the tokens after "(" start a parenthesized
// declarator rather than a parameter list.
func (p *parser) groupingAhead() bool {
	tok := p.peek()
	switch {
	case tok.text == "*" || tok.text == "(":
		return true
	case tok.kind == tokIdent:
		after := p.toks[p.pos+1].text
		return after == ")" || after == "["
	}
	return false
}
