package schema

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// Resolver maps a leaf type name in a descriptor expression to its Type
type Resolver func(name string) (Type, error)

// ParseDescriptor parses a descriptor expression such as
//
//	list[annotated[union[str, int], "identifier"]]
//
// Leaf names are resolved with resolve; the wrappers optional, list, union and
// annotated are keywords.
func ParseDescriptor(expr string, resolve Resolver) (*TypeDescriptor, error) {
	p := &exprParser{resolve: resolve}
	p.s.Init(strings.NewReader(expr))
	p.s.Mode = scanner.ScanIdents | scanner.ScanStrings | scanner.ScanRawStrings
	p.s.Error = func(_ *scanner.Scanner, msg string) {
		p.scanErr = msg
	}
	p.next()

	d, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("invalid shape %q: %w", expr, err)
	}
	if p.tok != scanner.EOF {
		return nil, fmt.Errorf("invalid shape %q: unexpected %s after expression", expr, p.text())
	}
	if p.scanErr != "" {
		return nil, fmt.Errorf("invalid shape %q: %s", expr, p.scanErr)
	}
	return d, nil
}

type exprParser struct {
	s       scanner.Scanner
	tok     rune
	resolve Resolver
	scanErr string
}

func (p *exprParser) next() {
	p.tok = p.s.Scan()
}

func (p *exprParser) text() string {
	if p.tok == scanner.EOF {
		return "end of input"
	}
	return strconv.Quote(p.s.TokenText())
}

func (p *exprParser) expect(tok rune) error {
	if p.tok != tok {
		return fmt.Errorf("expected %q at offset %d, got %s", tok, p.s.Position.Offset, p.text())
	}
	p.next()
	return nil
}

func (p *exprParser) parseExpr() (*TypeDescriptor, error) {
	if p.tok != scanner.Ident {
		return nil, fmt.Errorf("expected type name, got %s", p.text())
	}
	name := p.s.TokenText()
	p.next()

	switch name {
	case "optional", "list", "union", "annotated":
		if p.tok == '[' {
			break
		}
		// a bare keyword is a leaf name, which makes plain list usable
		fallthrough
	default:
		if p.tok == '[' {
			return nil, fmt.Errorf("type %s does not take parameters", name)
		}
		leaf, err := p.resolve(name)
		if err != nil {
			return nil, err
		}
		return Plain(leaf), nil
	}

	if err := p.expect('['); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var d *TypeDescriptor
	switch name {
	case "optional", "list":
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if name == "optional" {
			d = Optional(inner)
		} else {
			d = List(inner)
		}

	case "union":
		var members []*TypeDescriptor
		for {
			m, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			members = append(members, m)
			if p.tok != ',' {
				break
			}
			p.next()
		}
		d = Union(members...)

	case "annotated":
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		note := ""
		if p.tok == ',' {
			p.next()
			if p.tok != scanner.String && p.tok != scanner.RawString {
				return nil, fmt.Errorf("annotated: expected quoted note, got %s", p.text())
			}
			note, err = strconv.Unquote(p.s.TokenText())
			if err != nil {
				return nil, fmt.Errorf("annotated: %w", err)
			}
			p.next()
		}
		d = Annotated(inner, note)
	}

	if err := p.expect(']'); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
