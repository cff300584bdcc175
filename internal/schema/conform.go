package schema

import (
	"errors"
	"fmt"
)

// Conform is the construction primitive lifted to descriptors: it returns nil
// when value is a conforming instance of the shape d. It is strict, so an
// absent value conforms only under an optional shape.
func Conform(d *TypeDescriptor, value interface{}) error {
	switch d.kind {
	case KindOptional:
		if value == nil {
			return nil
		}
		return Conform(d.inner, value)

	case KindAnnotated:
		return Conform(d.inner, value)

	case KindUnion:
		errs := make([]error, 0, len(d.members))
		for _, m := range d.members {
			err := Conform(m, value)
			if err == nil {
				return nil
			}
			errs = append(errs, err)
		}
		return fmt.Errorf("no member of %s matched: %w", d, errors.Join(errs...))

	case KindList:
		items, ok := AsSequence(value)
		if !ok {
			return fmt.Errorf("%s: expected sequence, got %T", d, value)
		}
		for i, item := range items {
			if err := Conform(d.inner, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil

	case KindPlain:
		return d.leaf.Construct(value)

	default:
		return fmt.Errorf("unknown descriptor kind %d", int(d.kind))
	}
}
