package schema

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is a leaf or class type that can be constructed from a raw value.
// Construct returns nil when value yields a conforming instance. Mapping
// values are consumed field by field; anything else is consumed as a whole.
type Type interface {
	Name() string
	Construct(value interface{}) error
}

// Primitive represents the built-in leaf types
type Primitive int

const (
	TypeString Primitive = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeDict
	TypeList
	TypeAny

	// Validated string formats
	TypeDate
	TypeDateTime
	TypeUUID
	TypeEmail
	TypeURL
)

// Accepted layouts for TypeDateTime, tried in order
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Name returns the declaration name of the primitive type
func (p Primitive) Name() string {
	switch p {
	case TypeString:
		return "str"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDict:
		return "dict"
	case TypeList:
		return "list"
	case TypeAny:
		return "any"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeUUID:
		return "uuid"
	case TypeEmail:
		return "email"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// String returns the string representation of the primitive type
func (p Primitive) String() string { return p.Name() }

// ParsePrimitive converts a declaration name to a Primitive
func ParsePrimitive(s string) (Primitive, error) {
	switch s {
	case "str", "string":
		return TypeString, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "dict":
		return TypeDict, nil
	case "list":
		return TypeList, nil
	case "any":
		return TypeAny, nil
	case "date":
		return TypeDate, nil
	case "datetime":
		return TypeDateTime, nil
	case "uuid":
		return TypeUUID, nil
	case "email":
		return TypeEmail, nil
	case "url":
		return TypeURL, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// Construct implements Type
func (p Primitive) Construct(value interface{}) error {
	if value == nil {
		return fmt.Errorf("%s: value is required", p.Name())
	}

	switch p {
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("str: expected string, got %T", value)
		}
	case TypeInt:
		f, ok := toFloat64(value)
		if !ok {
			return fmt.Errorf("int: expected integer, got %T", value)
		}
		if math.Trunc(f) != f || math.IsInf(f, 0) {
			return fmt.Errorf("int: %v is not integral", f)
		}
	case TypeFloat:
		if _, ok := toFloat64(value); !ok {
			return fmt.Errorf("float: expected number, got %T", value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("bool: expected boolean, got %T", value)
		}
	case TypeDict:
		if _, ok := AsMapping(value); !ok {
			return fmt.Errorf("dict: expected mapping, got %T", value)
		}
	case TypeList:
		if _, ok := AsSequence(value); !ok {
			return fmt.Errorf("list: expected sequence, got %T", value)
		}
	case TypeAny:
	case TypeDate, TypeDateTime, TypeUUID, TypeEmail, TypeURL:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s: expected string, got %T", p.Name(), value)
		}
		return p.constructFormat(strings.TrimSpace(s))
	default:
		return fmt.Errorf("unknown primitive type %d", int(p))
	}

	return nil
}

func (p Primitive) constructFormat(s string) error {
	if s == "" {
		return fmt.Errorf("%s: value cannot be empty", p.Name())
	}

	switch p {
	case TypeDate:
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("date: %w", err)
		}
	case TypeDateTime:
		for _, layout := range dateTimeLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return nil
			}
		}
		return fmt.Errorf("datetime: cannot parse %q", s)
	case TypeUUID:
		if _, err := uuid.Parse(s); err != nil {
			return fmt.Errorf("uuid: %w", err)
		}
	case TypeEmail:
		if _, err := mail.ParseAddress(s); err != nil {
			return fmt.Errorf("email: must be a valid email address")
		}
	case TypeURL:
		u, err := url.Parse(s)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("url: must include a scheme and host")
		}
	}
	return nil
}

// Enum accepts one of a fixed set of string values
type Enum struct {
	name    string
	values  []string
	allowed map[string]struct{}
}

// NewEnum creates an enum type over values
func NewEnum(name string, values ...string) *Enum {
	e := &Enum{
		name:    name,
		values:  append([]string(nil), values...),
		allowed: make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		e.allowed[v] = struct{}{}
	}
	return e
}

// Name implements Type
func (e *Enum) Name() string { return e.name }

// Values returns the declared values in order
func (e *Enum) Values() []string { return append([]string(nil), e.values...) }

// Construct implements Type
func (e *Enum) Construct(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s: expected string, got %T", e.name, value)
	}
	if _, ok := e.allowed[s]; !ok {
		return fmt.Errorf("%s: %q is not one of %v", e.name, s, e.values)
	}
	return nil
}

// Pattern accepts strings matching a regular expression
type Pattern struct {
	name string
	re   *regexp.Regexp
}

// NewPattern compiles expr into a pattern type
func NewPattern(name, expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for %s: %w", name, err)
	}
	return &Pattern{name: name, re: re}, nil
}

// Name implements Type
func (p *Pattern) Name() string { return p.name }

// Expr returns the source of the regular expression
func (p *Pattern) Expr() string { return p.re.String() }

// Construct implements Type
func (p *Pattern) Construct(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s: expected string, got %T", p.name, value)
	}
	if !p.re.MatchString(s) {
		return fmt.Errorf("%s: does not match required pattern", p.name)
	}
	return nil
}

// Object is a class type: a named set of fields, each with its own shape.
// Fields are added while the registry is built and never changed afterwards.
type Object struct {
	name   string
	fields map[string]*TypeDescriptor
}

// NewObject creates an object type with no fields
func NewObject(name string) *Object {
	return &Object{
		name:   name,
		fields: make(map[string]*TypeDescriptor),
	}
}

// Name implements Type
func (o *Object) Name() string { return o.name }

// AddField declares a field. Redeclaring a field is an error.
func (o *Object) AddField(name string, shape *TypeDescriptor) error {
	if shape == nil {
		return fmt.Errorf("%s.%s: shape cannot be nil", o.name, name)
	}
	if _, exists := o.fields[name]; exists {
		return fmt.Errorf("%s.%s is already declared", o.name, name)
	}
	o.fields[name] = shape
	return nil
}

// Field returns the shape of a declared field
func (o *Object) Field(name string) (*TypeDescriptor, bool) {
	d, ok := o.fields[name]
	return d, ok
}

// FieldNames returns the declared field names in sorted order
func (o *Object) FieldNames() []string {
	names := make([]string, 0, len(o.fields))
	for name := range o.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct implements Type. Only mappings construct an object; every
// declared field must conform, absent values are allowed only for optional
// fields, and undeclared keys are ignored.
func (o *Object) Construct(value interface{}) error {
	m, ok := AsMapping(value)
	if !ok {
		return fmt.Errorf("%s: expected mapping, got %T", o.name, value)
	}

	for _, name := range o.FieldNames() {
		if err := Conform(o.fields[name], m[name]); err != nil {
			return fmt.Errorf("%s.%s: %w", o.name, name, err)
		}
	}
	return nil
}
