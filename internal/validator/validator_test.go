package validator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/catalog"
	"github.com/conduit-lang/metadata-validator/internal/document"
	"github.com/conduit-lang/metadata-validator/internal/schema"
	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newCatalogValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	registry, err := catalog.Default()
	require.NoError(t, err)
	return New(registry, opts...)
}

func validDataDescription() document.Document {
	aind := map[string]interface{}{
		"name":                "Allen Institute for Neural Dynamics",
		"abbreviation":        "AIND",
		"registry":            "ROR",
		"registry_identifier": "04szwah67",
	}
	return document.Document{
		"describedBy":    "https://raw.githubusercontent.com/AllenNeuralDynamics/aind-data-schema/main/src/aind_data_schema/core/data_description.py",
		"schema_version": "1.0.0",
		"license":        "CC-BY-4.0",
		"creation_time":  "2024-03-01T10:00:00Z",
		"platform":       map[string]interface{}{"name": "Electrophysiology platform", "abbreviation": "ecephys"},
		"subject_id":     "632269",
		"label":          "ecephys_632269",
		"name":           "ecephys_632269_2024-03-01_10-00-00",
		"institution":    aind,
		"funding_source": []interface{}{map[string]interface{}{"funder": aind}},
		"data_level":     "raw",
		"group":          "ephys",
		"investigators": []interface{}{
			map[string]interface{}{"name": "Jane Doe"},
			map[string]interface{}{"name": "John Roe", "registry": "ORCID", "registry_identifier": "0000-0002-1825-0097"},
		},
		"project_name": "Neural dynamics",
		"restrictions": nil,
		"modality":     []interface{}{map[string]interface{}{"name": "Extracellular electrophysiology", "abbreviation": "ecephys"}},
		"related_data": []interface{}{},
		"data_summary": nil,
	}
}

func TestValidateCore(t *testing.T) {
	v := newCatalogValidator(t)

	t.Run("valid document", func(t *testing.T) {
		got, err := v.ValidateCore("data_description", validDataDescription())
		require.NoError(t, err)
		assert.Equal(t, state.Valid, got)
	})

	t.Run("empty document", func(t *testing.T) {
		got, err := v.ValidateCore("data_description", document.Document{})
		require.NoError(t, err)
		assert.Equal(t, state.Missing, got)

		got, err = v.ValidateCore("data_description", nil)
		require.NoError(t, err)
		assert.Equal(t, state.Missing, got)
	})

	t.Run("one bad field fails the whole document", func(t *testing.T) {
		doc := validDataDescription()
		doc["data_level"] = "processed"

		got, err := v.ValidateCore("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, state.Present, got)
	})

	t.Run("missing required field", func(t *testing.T) {
		doc := validDataDescription()
		delete(doc, "label")

		got, err := v.ValidateCore("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, state.Present, got)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := v.ValidateCore("not_a_real_kind", validDataDescription())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownKind))

		var unknown *UnknownKindError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "not_a_real_kind", unknown.Kind)
	})
}

func TestValidateFields(t *testing.T) {
	v := newCatalogValidator(t)

	t.Run("valid document", func(t *testing.T) {
		got, err := v.ValidateFields("data_description", validDataDescription())
		require.NoError(t, err)

		for _, field := range []string{
			"platform", "subject_id", "label", "name", "institution", "funding_source",
			"data_level", "group", "investigators", "project_name", "restrictions",
			"modality", "related_data", "data_summary",
		} {
			assert.Equal(t, state.Valid, got[field], field)
		}
	})

	t.Run("administrative fields are skipped", func(t *testing.T) {
		got, err := v.ValidateFields("data_description", validDataDescription())
		require.NoError(t, err)
		for _, field := range AdministrativeFields {
			assert.NotContains(t, got, field)
		}
		assert.Len(t, got, 14)
	})

	t.Run("missing label and group", func(t *testing.T) {
		doc := validDataDescription()
		doc["label"] = nil
		doc["group"] = ""

		got, err := v.ValidateFields("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, state.Missing, got["label"])
		assert.Equal(t, state.Missing, got["group"])
		assert.Equal(t, state.Valid, got["platform"])
		assert.Equal(t, state.Valid, got["subject_id"])
	})

	t.Run("malformed platform", func(t *testing.T) {
		doc := validDataDescription()
		doc["platform"] = map[string]interface{}{"name": "Electrophysiology platform"}

		got, err := v.ValidateFields("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, state.Present, got["platform"])
	})

	t.Run("empty subject id", func(t *testing.T) {
		doc := validDataDescription()
		doc["subject_id"] = ""

		got, err := v.ValidateFields("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, state.Missing, got["subject_id"])
	})

	t.Run("one malformed investigator", func(t *testing.T) {
		doc := validDataDescription()
		doc["investigators"] = []interface{}{
			map[string]interface{}{"name": "Jane Doe"},
			map[string]interface{}{"registry": "ORCID"},
		}

		got, err := v.ValidateFields("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, state.Present, got["investigators"])
	})

	t.Run("only fields present in the document are graded", func(t *testing.T) {
		got, err := v.ValidateFields("data_description", document.Document{"label": "x"})
		require.NoError(t, err)
		assert.Equal(t, map[string]state.MetadataState{"label": state.Valid}, got)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := v.ValidateFields("not_a_real_kind", validDataDescription())
		assert.True(t, errors.Is(err, ErrUnknownKind))
	})

	t.Run("idempotent", func(t *testing.T) {
		doc := validDataDescription()
		doc["group"] = "unknown"

		first, err := v.ValidateFields("data_description", doc)
		require.NoError(t, err)
		second, err := v.ValidateFields("data_description", doc)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestValidateFieldsUnion(t *testing.T) {
	v := newCatalogValidator(t)

	surgery := map[string]interface{}{
		"procedure_type":         "Surgery",
		"start_date":             "2024-01-10",
		"experimenter_full_name": "Jane Doe",
		"procedures":             []interface{}{map[string]interface{}{"procedure_type": "Headframe"}},
	}
	training := map[string]interface{}{
		"procedure_type": "Training",
		"training_name":  "Foraging",
		"protocol_id":    "dx.doi.org/10.17504/protocols.io.1",
		"start_date":     "2024-01-12",
	}

	got, err := v.ValidateFields("procedures", document.Document{
		"subject_id":         "632269",
		"subject_procedures": []interface{}{surgery, training},
	})
	require.NoError(t, err)
	assert.Equal(t, state.Valid, got["subject_procedures"])

	got, err = v.ValidateFields("procedures", document.Document{
		"subject_procedures": []interface{}{surgery, map[string]interface{}{"procedure_type": "Training"}},
	})
	require.NoError(t, err)
	assert.Equal(t, state.Present, got["subject_procedures"])
}

func TestValidateFieldsLogsUndeclaredFields(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := newCatalogValidator(t, WithLogger(zap.New(core)))

	doc := validDataDescription()
	doc["favourite_color"] = "blue"

	got, err := v.ValidateFields("data_description", doc)
	require.NoError(t, err)
	assert.NotContains(t, got, "favourite_color")

	entries := logs.FilterField(zap.String("field", "favourite_color")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "field is not declared for kind", entries[0].Message)
}

func TestFieldOnlyKind(t *testing.T) {
	registry := schema.NewRegistry()
	require.NoError(t, registry.RegisterShapes("notes", nil, map[string]*schema.TypeDescriptor{
		"text": schema.Plain(schema.TypeString),
	}, schema.PresenceRequired))
	v := New(registry)

	_, err := v.ValidateCore("notes", document.Document{"text": "hi"})
	assert.True(t, errors.Is(err, ErrUnknownKind))

	got, err := v.ValidateFields("notes", document.Document{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, state.Valid, got["text"])
}

func TestValidatorConcurrentUse(t *testing.T) {
	v := newCatalogValidator(t)
	doc := validDataDescription()
	doc["group"] = nil

	want, err := v.ValidateFields("data_description", doc)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.ValidateFields("data_description", doc)
			assert.NoError(t, err)
			assert.Equal(t, want, got)

			core, err := v.ValidateCore("data_description", doc)
			assert.NoError(t, err)
			assert.Equal(t, state.Present, core)
		}()
	}
	wg.Wait()
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v := newCatalogValidator(t, WithClock(func() time.Time { return fixed }))

	report, err := v.Validate("data_description", validDataDescription())
	require.NoError(t, err)
	assert.Equal(t, fixed, report.CreatedAt)
}
