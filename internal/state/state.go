// Package state defines the classification outcomes produced when a metadata
// document, or a single field of one, is checked against its declared shape.
package state

import "fmt"

// MetadataState is one point of the compliance lattice. The string values are
// the stable wire and storage representation.
type MetadataState string

const (
	// Valid means the value is present and conforms to its declared shape.
	Valid MetadataState = "valid"
	// Present means the value is present but fails every declared alternative.
	Present MetadataState = "present"
	// Optional means the value is absent and declared optional.
	Optional MetadataState = "optional"
	// Missing means the value is required and absent or empty.
	Missing MetadataState = "missing"
	// Excluded means the value is excluded for the document's modality.
	Excluded MetadataState = "excluded"
	// Corrupt means the underlying representation could not be read.
	Corrupt MetadataState = "corrupt"
)

// All returns every state in lattice order, best first.
func All() []MetadataState {
	return []MetadataState{Valid, Optional, Excluded, Present, Missing, Corrupt}
}

// String returns the string representation of the state
func (s MetadataState) String() string {
	return string(s)
}

// IsKnown reports whether s is one of the declared states.
func (s MetadataState) IsKnown() bool {
	switch s {
	case Valid, Present, Optional, Missing, Excluded, Corrupt:
		return true
	default:
		return false
	}
}

// Acceptable reports whether the state needs no curation: the value conforms,
// or its absence is sanctioned by the registry.
func (s MetadataState) Acceptable() bool {
	return s == Valid || s == Optional || s == Excluded
}

// Parse converts a string to a MetadataState
func Parse(s string) (MetadataState, error) {
	st := MetadataState(s)
	if !st.IsKnown() {
		return "", fmt.Errorf("unknown metadata state: %q", s)
	}
	return st, nil
}

// UnmarshalText rejects unknown state names.
func (s *MetadataState) UnmarshalText(text []byte) error {
	st, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Summary counts states across a set of classified fields.
type Summary map[MetadataState]int

// Summarize counts the states in a field map.
func Summarize(fields map[string]MetadataState) Summary {
	sum := make(Summary, len(All()))
	for _, st := range fields {
		sum[st]++
	}
	return sum
}

// Total returns the number of counted states.
func (s Summary) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Compliant reports whether every counted state is acceptable.
func (s Summary) Compliant() bool {
	for st, c := range s {
		if c > 0 && !st.Acceptable() {
			return false
		}
	}
	return true
}

// Acceptable returns how many counted states are acceptable.
func (s Summary) Acceptable() int {
	n := 0
	for st, c := range s {
		if st.Acceptable() {
			n += c
		}
	}
	return n
}
