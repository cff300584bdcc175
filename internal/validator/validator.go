// Package validator grades metadata documents against the shapes declared in
// a schema registry. Results are states from the state package rather than
// a pass/fail verdict, so callers can tell a malformed field from a missing one.
package validator

import (
	"time"

	"github.com/conduit-lang/metadata-validator/internal/document"
	"github.com/conduit-lang/metadata-validator/internal/schema"
	"github.com/conduit-lang/metadata-validator/internal/state"
	"go.uber.org/zap"
)

// AdministrativeFields are never classified by ValidateFields
var AdministrativeFields = []string{"describedBy", "schema_version", "license", "creation_time"}

// Validator runs the core and field validators over a registry. The registry
// is only read, so a Validator is safe for concurrent use.
type Validator struct {
	registry *schema.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Validator
type Option func(*Validator)

// WithLogger sets the logger used for non-fatal diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp reports
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// New creates a validator over registry
func New(registry *schema.Registry, opts ...Option) *Validator {
	v := &Validator{
		registry: registry,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Registry returns the registry the validator reads
func (v *Validator) Registry() *schema.Registry {
	return v.registry
}

// ValidateCore classifies a whole document against its kind's concrete type.
// There is no partial credit: the document either constructs or it does not.
func (v *Validator) ValidateCore(kind string, data document.Document) (state.MetadataState, error) {
	top, ok := v.registry.TopLevel(kind)
	if !ok {
		return "", &UnknownKindError{Kind: kind}
	}

	if len(data) == 0 {
		return state.Missing, nil
	}

	return fromAttempt(attempt(schema.Plain(top), data)), nil
}

// ValidateFields classifies each field of data against its declared shape.
// Administrative and undeclared fields produce no entry.
func (v *Validator) ValidateFields(kind string, data document.Document) (map[string]state.MetadataState, error) {
	shapes, ok := v.registry.FieldShapes(kind)
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}

	out := make(map[string]state.MetadataState, len(data))
	for name, value := range data {
		if isAdministrative(name) {
			continue
		}

		shape, declared := shapes[name]
		if !declared {
			v.logger.Warn("field is not declared for kind",
				zap.String("kind", kind),
				zap.String("field", name))
			continue
		}

		out[name] = Classify(value, shape)
	}
	return out, nil
}

func isAdministrative(name string) bool {
	for _, f := range AdministrativeFields {
		if f == name {
			return true
		}
	}
	return false
}
