// Package schema provides the declared shapes that metadata documents are
// classified against. A TypeDescriptor describes the shape of one field as an
// immutable tree of plain, optional, union, list and annotated nodes; leaves
// are Types that know how to construct themselves from raw values.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DescriptorKind tags the variant of a TypeDescriptor
type DescriptorKind int

const (
	// KindPlain wraps a single leaf Type
	KindPlain DescriptorKind = iota
	// KindOptional allows the inner shape to be absent
	KindOptional
	// KindUnion accepts any of an ordered set of member shapes
	KindUnion
	// KindList is a sequence whose items share an element shape
	KindList
	// KindAnnotated wraps an inner shape with free-form metadata
	KindAnnotated
)

// String returns the string representation of the descriptor kind
func (k DescriptorKind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindOptional:
		return "optional"
	case KindUnion:
		return "union"
	case KindList:
		return "list"
	case KindAnnotated:
		return "annotated"
	default:
		return "unknown"
	}
}

// TypeDescriptor is an immutable description of a field's declared shape.
// Build one with Plain, Optional, Union, List or Annotated.
type TypeDescriptor struct {
	kind       DescriptorKind
	leaf       Type
	inner      *TypeDescriptor // optional, list element, annotated
	members    []*TypeDescriptor
	annotation string
}

// Plain describes a value constructed directly from leaf.
func Plain(leaf Type) *TypeDescriptor {
	if leaf == nil {
		panic("schema: Plain requires a leaf type")
	}
	return &TypeDescriptor{kind: KindPlain, leaf: leaf}
}

// Optional describes a value that may be absent.
func Optional(inner *TypeDescriptor) *TypeDescriptor {
	mustInner("Optional", inner)
	return &TypeDescriptor{kind: KindOptional, inner: inner}
}

// Union describes a value matching any of members, tried in order.
func Union(members ...*TypeDescriptor) *TypeDescriptor {
	if len(members) == 0 {
		panic("schema: Union requires at least one member")
	}
	for _, m := range members {
		mustInner("Union", m)
	}
	cp := make([]*TypeDescriptor, len(members))
	copy(cp, members)
	return &TypeDescriptor{kind: KindUnion, members: cp}
}

// List describes a sequence of values sharing the element shape.
func List(element *TypeDescriptor) *TypeDescriptor {
	mustInner("List", element)
	return &TypeDescriptor{kind: KindList, inner: element}
}

// Annotated wraps inner with a note. The note never affects validation.
func Annotated(inner *TypeDescriptor, note string) *TypeDescriptor {
	mustInner("Annotated", inner)
	return &TypeDescriptor{kind: KindAnnotated, inner: inner, annotation: note}
}

func mustInner(ctor string, d *TypeDescriptor) {
	if d == nil {
		panic(fmt.Sprintf("schema: %s requires a non-nil descriptor", ctor))
	}
}

// Kind returns the variant tag
func (d *TypeDescriptor) Kind() DescriptorKind { return d.kind }

// Leaf returns the leaf type of a plain descriptor, nil otherwise
func (d *TypeDescriptor) Leaf() Type { return d.leaf }

// Inner returns the wrapped shape of an optional, list or annotated descriptor
func (d *TypeDescriptor) Inner() *TypeDescriptor { return d.inner }

// Members returns a copy of the union members in declared order
func (d *TypeDescriptor) Members() []*TypeDescriptor {
	cp := make([]*TypeDescriptor, len(d.members))
	copy(cp, d.members)
	return cp
}

// Annotation returns the note carried by an annotated descriptor
func (d *TypeDescriptor) Annotation() string { return d.annotation }

// IsOptional reports whether absence is conformant for d. Annotations are
// looked through, so annotated[optional[T]] is optional.
func (d *TypeDescriptor) IsOptional() bool {
	for d.kind == KindAnnotated {
		d = d.inner
	}
	return d.kind == KindOptional
}

// String renders d in the declaration expression syntax accepted by ParseDescriptor
func (d *TypeDescriptor) String() string {
	switch d.kind {
	case KindPlain:
		return d.leaf.Name()
	case KindOptional:
		return fmt.Sprintf("optional[%s]", d.inner)
	case KindList:
		return fmt.Sprintf("list[%s]", d.inner)
	case KindAnnotated:
		if d.annotation == "" {
			return fmt.Sprintf("annotated[%s]", d.inner)
		}
		return fmt.Sprintf("annotated[%s, %s]", d.inner, strconv.Quote(d.annotation))
	case KindUnion:
		parts := make([]string, len(d.members))
		for i, m := range d.members {
			parts[i] = m.String()
		}
		return fmt.Sprintf("union[%s]", strings.Join(parts, ", "))
	default:
		return "unknown"
	}
}
