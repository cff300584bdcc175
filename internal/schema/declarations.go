package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"
)

// Declarations is the on-disk form of a registry: named types and the
// document kinds built on them.
type Declarations struct {
	Types map[string]TypeDecl `json:"types"`
	Kinds map[string]KindDecl `json:"kinds"`
}

// TypeDecl declares one named type
type TypeDecl struct {
	Kind        string            `json:"kind"` // object, enum or pattern
	Description string            `json:"description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Values      []string          `json:"values,omitempty"`
	Pattern     string            `json:"pattern,omitempty"`
}

// KindDecl declares one document kind
type KindDecl struct {
	Type     string `json:"type"`
	Presence string `json:"presence,omitempty"`
}

// ParseDeclarations decodes YAML or JSON declarations. Unknown keys are rejected.
func ParseDeclarations(data []byte) (*Declarations, error) {
	var decls Declarations
	if err := yaml.UnmarshalStrict(data, &decls); err != nil {
		return nil, fmt.Errorf("failed to parse declarations: %w", err)
	}
	return &decls, nil
}

// LoadDeclarations reads declarations from a file
func LoadDeclarations(path string) (*Declarations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations: %w", err)
	}
	decls, err := ParseDeclarations(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}

// Build creates a registry from one or more declaration sets. Types may refer
// to each other across sets; redeclaring a type or kind is an error.
func Build(sets ...*Declarations) (*Registry, error) {
	b := &builder{
		registry: NewRegistry(),
		objects:  make(map[string]*Object),
		fields:   make(map[string]map[string]string),
	}

	for _, decls := range sets {
		if err := b.declareTypes(decls); err != nil {
			return nil, err
		}
	}
	if err := b.resolveFields(); err != nil {
		return nil, err
	}
	for _, decls := range sets {
		if err := b.declareKinds(decls); err != nil {
			return nil, err
		}
	}

	fingerprint, err := fingerprintOf(sets)
	if err != nil {
		return nil, err
	}
	b.registry.fingerprint = fingerprint
	return b.registry, nil
}

// fingerprintOf hashes the declaration sets in order. encoding/json sorts map
// keys, so formatting and key order in the source files do not matter.
func fingerprintOf(sets []*Declarations) (string, error) {
	h := sha256.New()
	for _, decls := range sets {
		data, err := json.Marshal(decls)
		if err != nil {
			return "", fmt.Errorf("failed to fingerprint declarations: %w", err)
		}
		h.Write(data)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type builder struct {
	registry *Registry
	objects  map[string]*Object
	fields   map[string]map[string]string // object name -> field -> expression
}

func (b *builder) declareTypes(decls *Declarations) error {
	for _, name := range sortedKeys(decls.Types) {
		decl := decls.Types[name]
		if _, err := ParsePrimitive(name); err == nil {
			return fmt.Errorf("type %s shadows a built-in type", name)
		}

		var t Type
		switch decl.Kind {
		case "object":
			obj := NewObject(name)
			b.objects[name] = obj
			b.fields[name] = decl.Fields
			t = obj
		case "enum":
			if len(decl.Values) == 0 {
				return fmt.Errorf("enum %s declares no values", name)
			}
			t = NewEnum(name, decl.Values...)
		case "pattern":
			p, err := NewPattern(name, decl.Pattern)
			if err != nil {
				return err
			}
			t = p
		default:
			return fmt.Errorf("type %s: unknown kind %q", name, decl.Kind)
		}

		if err := b.registry.RegisterType(t); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) resolveFields() error {
	for _, objName := range sortedKeys(b.objects) {
		obj := b.objects[objName]
		exprs := b.fields[objName]
		for _, field := range sortedKeys(exprs) {
			shape, err := ParseDescriptor(exprs[field], b.resolve)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", objName, field, err)
			}
			if err := obj.AddField(field, shape); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) declareKinds(decls *Declarations) error {
	for _, kind := range sortedKeys(decls.Kinds) {
		decl := decls.Kinds[kind]
		obj, ok := b.objects[decl.Type]
		if !ok {
			return fmt.Errorf("kind %s: %q is not a declared object type", kind, decl.Type)
		}
		presence, err := ParsePresence(decl.Presence)
		if err != nil {
			return fmt.Errorf("kind %s: %w", kind, err)
		}
		if err := b.registry.RegisterKind(kind, obj, presence); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) resolve(name string) (Type, error) {
	if p, err := ParsePrimitive(name); err == nil {
		return p, nil
	}
	if t, ok := b.registry.LookupType(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type: %s", name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
