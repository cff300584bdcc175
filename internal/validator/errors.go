package validator

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is matched by every UnknownKindError
var ErrUnknownKind = errors.New("unknown document kind")

// UnknownKindError is returned when a kind has no entry in the registry map
// a validator needs
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown document kind: %s", e.Kind)
}

// Is makes errors.Is(err, ErrUnknownKind) hold
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}
