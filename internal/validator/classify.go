package validator

import (
	"fmt"

	"github.com/conduit-lang/metadata-validator/internal/schema"
	"github.com/conduit-lang/metadata-validator/internal/state"
)

// Classify decides which state value occupies under the declared shape d.
// A nested object or list yields one state for the whole value. Annotations
// are transparent, including to the optional check.
func Classify(value interface{}, d *schema.TypeDescriptor) state.MetadataState {
	empty := schema.IsEmpty(value)
	if empty && d.IsOptional() {
		return state.Valid
	}
	if empty {
		return state.Missing
	}

	switch d.Kind() {
	case schema.KindAnnotated:
		return Classify(value, d.Inner())

	case schema.KindOptional:
		return Classify(value, d.Inner())

	case schema.KindList:
		return classifyList(value, d.Inner())

	case schema.KindUnion:
		return classifyUnion(value, d.Members())

	default:
		return fromAttempt(attempt(d, value))
	}
}

// classifyList requires every item to conform. Annotations on the element
// are unwrapped first, so list[annotated[union[...]]] follows the union rule.
func classifyList(value interface{}, element *schema.TypeDescriptor) state.MetadataState {
	items, ok := schema.AsSequence(value)
	if !ok {
		return state.Present
	}

	element = unwrapAnnotated(element)
	if element.Kind() == schema.KindUnion {
		members := element.Members()
		for _, item := range items {
			if classifyUnion(item, members) != state.Valid {
				return state.Present
			}
		}
		return state.Valid
	}

	for _, item := range items {
		if err := attempt(element, item); err != nil {
			return state.Present
		}
	}
	return state.Valid
}

// classifyUnion tries members in declared order and stops at the first success.
func classifyUnion(value interface{}, members []*schema.TypeDescriptor) state.MetadataState {
	for _, m := range members {
		if attempt(m, value) == nil {
			return state.Valid
		}
	}
	return state.Present
}

// attempt runs the construction primitive. A panicking Type counts as a
// failed construction.
func attempt(d *schema.TypeDescriptor, value interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("construction of %s panicked: %v", d, r)
		}
	}()
	return schema.Conform(d, value)
}

func fromAttempt(err error) state.MetadataState {
	if err != nil {
		return state.Present
	}
	return state.Valid
}

func unwrapAnnotated(d *schema.TypeDescriptor) *schema.TypeDescriptor {
	for d.Kind() == schema.KindAnnotated {
		d = d.Inner()
	}
	return d
}
