package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

// ExtraFields are schema bookkeeping fields left out of every kind's field shapes
var ExtraFields = []string{"describedBy", "schema_version"}

// Presence is the registry-level policy for a kind that is absent from a
// metadata record
type Presence int

const (
	PresenceRequired Presence = iota
	PresenceOptional
	PresenceExcluded
)

// String returns the string representation of the presence policy
func (p Presence) String() string {
	switch p {
	case PresenceRequired:
		return "required"
	case PresenceOptional:
		return "optional"
	case PresenceExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// ParsePresence converts a string to a Presence. The empty string means required.
func ParsePresence(s string) (Presence, error) {
	switch s {
	case "", "required":
		return PresenceRequired, nil
	case "optional":
		return PresenceOptional, nil
	case "excluded":
		return PresenceExcluded, nil
	default:
		return 0, fmt.Errorf("unknown presence: %s", s)
	}
}

// KindEntry is everything the registry knows about one document kind
type KindEntry struct {
	Name     string
	Type     Type                       // nil when the kind has no top-level shape
	Fields   map[string]*TypeDescriptor // nil when the kind has no field shapes
	Presence Presence
}

// Registry maps document kinds to their top-level type and field shapes.
// It is filled once during start-up and only read afterwards.
type Registry struct {
	kinds       map[string]*KindEntry
	types       map[string]Type
	fingerprint string
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]*KindEntry),
		types: make(map[string]Type),
	}
}

// RegisterType makes a named type available for lookup
func (r *Registry) RegisterType(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name()]; exists {
		return fmt.Errorf("type %s is already registered", t.Name())
	}
	r.types[t.Name()] = t
	return nil
}

// LookupType returns a registered type by name
func (r *Registry) LookupType(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// RegisterKind registers a kind whose top-level type is obj and whose field
// shapes are obj's declared fields minus ExtraFields
func (r *Registry) RegisterKind(kind string, obj *Object, presence Presence) error {
	if obj == nil {
		return fmt.Errorf("kind %s: object type cannot be nil", kind)
	}

	fields := make(map[string]*TypeDescriptor, len(obj.fields))
	for name, shape := range obj.fields {
		if isExtraField(name) {
			continue
		}
		fields[name] = shape
	}
	return r.RegisterShapes(kind, obj, fields, presence)
}

// RegisterShapes registers a kind from its parts. Either top or fields may be
// nil, in which case the kind is unknown to the corresponding validator.
func (r *Registry) RegisterShapes(kind string, top Type, fields map[string]*TypeDescriptor, presence Presence) error {
	if kind == "" {
		return fmt.Errorf("kind name cannot be empty")
	}
	if top == nil && fields == nil {
		return fmt.Errorf("kind %s: needs a top-level type or field shapes", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind]; exists {
		return fmt.Errorf("kind %s is already registered", kind)
	}

	var cp map[string]*TypeDescriptor
	if fields != nil {
		cp = make(map[string]*TypeDescriptor, len(fields))
		for name, shape := range fields {
			if shape == nil {
				return fmt.Errorf("kind %s: field %s has no shape", kind, name)
			}
			cp[name] = shape
		}
	}

	r.kinds[kind] = &KindEntry{
		Name:     kind,
		Type:     top,
		Fields:   cp,
		Presence: presence,
	}
	return nil
}

// TopLevel returns the concrete type expected for a whole document of kind
func (r *Registry) TopLevel(kind string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.kinds[kind]
	if !ok || entry.Type == nil {
		return nil, false
	}
	return entry.Type, true
}

// FieldShapes returns the field name to shape map for kind. The map is shared
// and must not be modified.
func (r *Registry) FieldShapes(kind string) (map[string]*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.kinds[kind]
	if !ok || entry.Fields == nil {
		return nil, false
	}
	return entry.Fields, true
}

// Get returns the full entry for a kind
func (r *Registry) Get(kind string) (*KindEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.kinds[kind]
	return entry, ok
}

// Kinds returns all registered kind names in sorted order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint identifies the declarations the registry was built from. Two
// registries with the same fingerprint grade every document the same way.
// Registries assembled by hand are fingerprinted from their kinds and shapes.
func (r *Registry) Fingerprint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.fingerprint != "" {
		return r.fingerprint
	}

	h := sha256.New()
	for _, name := range sortedKeys(r.kinds) {
		entry := r.kinds[name]
		fmt.Fprintf(h, "kind %s %s\n", name, entry.Presence)
		if entry.Type != nil {
			fmt.Fprintf(h, "type %s\n", entry.Type.Name())
		}
		for _, field := range sortedKeys(entry.Fields) {
			fmt.Fprintf(h, "field %s %s\n", field, entry.Fields[field])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Count returns the number of registered kinds
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.kinds)
}

func isExtraField(name string) bool {
	for _, f := range ExtraFields {
		if f == name {
			return true
		}
	}
	return false
}
