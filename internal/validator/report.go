package validator

import (
	"time"

	"github.com/conduit-lang/metadata-validator/internal/document"
	"github.com/conduit-lang/metadata-validator/internal/schema"
	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report is the outcome of running both validators over one document
type Report struct {
	ID        uuid.UUID                      `json:"id"`
	Kind      string                         `json:"kind"`
	Core      state.MetadataState            `json:"core"`
	Fields    map[string]state.MetadataState `json:"fields,omitempty"`
	CreatedAt time.Time                      `json:"created_at"`
}

// Summary counts the field states of the report
func (r *Report) Summary() state.Summary {
	return state.Summarize(r.Fields)
}

// Clone returns a copy of the report that shares no maps with r
func (r *Report) Clone() *Report {
	cp := *r
	if r.Fields != nil {
		cp.Fields = make(map[string]state.MetadataState, len(r.Fields))
		for name, st := range r.Fields {
			cp.Fields[name] = st
		}
	}
	return &cp
}

// Validate runs the core and field validators for kind. The kind must be
// known to both.
func (v *Validator) Validate(kind string, data document.Document) (*Report, error) {
	core, err := v.ValidateCore(kind, data)
	if err != nil {
		return nil, err
	}
	fields, err := v.ValidateFields(kind, data)
	if err != nil {
		return nil, err
	}

	return v.newReport(kind, core, fields), nil
}

func (v *Validator) newReport(kind string, core state.MetadataState, fields map[string]state.MetadataState) *Report {
	return &Report{
		ID:        uuid.New(),
		Kind:      kind,
		Core:      core,
		Fields:    fields,
		CreatedAt: v.now().UTC(),
	}
}

// MetadataReport holds one report per registered kind of a metadata record
type MetadataReport struct {
	ID        uuid.UUID          `json:"id"`
	Reports   map[string]*Report `json:"reports"`
	CreatedAt time.Time          `json:"created_at"`
}

// CoreStates returns the core state of every kind
func (m *MetadataReport) CoreStates() map[string]state.MetadataState {
	out := make(map[string]state.MetadataState, len(m.Reports))
	for kind, r := range m.Reports {
		out[kind] = r.Core
	}
	return out
}

// ValidateMetadata validates a metadata record whose top-level keys are kind
// names and whose values are the documents of those kinds. Every kind with a
// top-level type gets a report: absent kinds are graded by their registered
// presence, and a value that is not a mapping is corrupt.
func (v *Validator) ValidateMetadata(record document.Document) *MetadataReport {
	out := &MetadataReport{
		ID:        uuid.New(),
		Reports:   make(map[string]*Report),
		CreatedAt: v.now().UTC(),
	}

	for _, kind := range v.registry.Kinds() {
		entry, _ := v.registry.Get(kind)
		if entry.Type == nil {
			continue
		}

		raw := record[kind]
		if schema.IsEmpty(raw) {
			out.Reports[kind] = v.newReport(kind, absentState(entry.Presence), nil)
			continue
		}

		data, ok := schema.AsMapping(raw)
		if !ok {
			v.logger.Warn("metadata entry is not a mapping",
				zap.String("kind", kind))
			out.Reports[kind] = v.newReport(kind, state.Corrupt, nil)
			continue
		}

		core, _ := v.ValidateCore(kind, data)
		var fields map[string]state.MetadataState
		if entry.Fields != nil {
			fields, _ = v.ValidateFields(kind, data)
		}
		out.Reports[kind] = v.newReport(kind, core, fields)
	}

	for key := range record {
		if _, ok := v.registry.Get(key); !ok && !isAdministrative(key) {
			v.logger.Debug("ignoring metadata entry with no registered kind", zap.String("key", key))
		}
	}

	return out
}

// CorruptMetadata is the report for a record that could not be read at all:
// every kind with a top-level type is CORRUPT.
func (v *Validator) CorruptMetadata() *MetadataReport {
	out := &MetadataReport{
		ID:        uuid.New(),
		Reports:   make(map[string]*Report),
		CreatedAt: v.now().UTC(),
	}
	for _, kind := range v.registry.Kinds() {
		if _, ok := v.registry.TopLevel(kind); ok {
			out.Reports[kind] = v.newReport(kind, state.Corrupt, nil)
		}
	}
	return out
}

func absentState(p schema.Presence) state.MetadataState {
	switch p {
	case schema.PresenceOptional:
		return state.Optional
	case schema.PresenceExcluded:
		return state.Excluded
	default:
		return state.Missing
	}
}
