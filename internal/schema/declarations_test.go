package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDeclarations = `
types:
  Person:
    kind: object
    fields:
      name: str
      email: optional[email]
  Modality:
    kind: enum
    values: [ecephys, behavior]
  SubjectId:
    kind: pattern
    pattern: '^[0-9]+$'
  DataDescription:
    kind: object
    fields:
      describedBy: str
      schema_version: str
      subject_id: SubjectId
      modality: list[Modality]
      investigators: list[Person]
      label: optional[str]
kinds:
  data_description:
    type: DataDescription
  session:
    type: Person
    presence: optional
`

func TestBuild(t *testing.T) {
	decls, err := ParseDeclarations([]byte(sampleDeclarations))
	require.NoError(t, err)

	registry, err := Build(decls)
	require.NoError(t, err)

	assert.Equal(t, []string{"data_description", "session"}, registry.Kinds())

	fields, ok := registry.FieldShapes("data_description")
	require.True(t, ok)
	assert.Len(t, fields, 4)
	assert.Equal(t, "list[Person]", fields["investigators"].String())
	assert.Equal(t, "SubjectId", fields["subject_id"].String())

	entry, ok := registry.Get("session")
	require.True(t, ok)
	assert.Equal(t, PresenceOptional, entry.Presence)

	top, ok := registry.TopLevel("data_description")
	require.True(t, ok)
	err = top.Construct(map[string]interface{}{
		"describedBy":    "https://example.org",
		"schema_version": "1.0.0",
		"subject_id":     "632269",
		"modality":       []interface{}{"ecephys"},
		"investigators":  []interface{}{map[string]interface{}{"name": "Jane"}},
	})
	assert.NoError(t, err)
}

func TestBuildMergesSets(t *testing.T) {
	base, err := ParseDeclarations([]byte(`
types:
  Person: {kind: object, fields: {name: str}}
`))
	require.NoError(t, err)

	ext, err := ParseDeclarations([]byte(`
types:
  Team: {kind: object, fields: {members: "list[Person]"}}
kinds:
  team: {type: Team}
`))
	require.NoError(t, err)

	registry, err := Build(base, ext)
	require.NoError(t, err)
	assert.Equal(t, []string{"team"}, registry.Kinds())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown field type", `types: {A: {kind: object, fields: {x: Missing}}}`},
		{"bad expression", `types: {A: {kind: object, fields: {x: "list[str"}}}`},
		{"unknown type kind", `types: {A: {kind: tuple}}`},
		{"empty enum", `types: {A: {kind: enum}}`},
		{"bad pattern", `types: {A: {kind: pattern, pattern: "(["}}`},
		{"shadows builtin", `types: {str: {kind: object}}`},
		{"kind of non-object", `{types: {A: {kind: enum, values: [x]}}, kinds: {a: {type: A}}}`},
		{"kind of undeclared type", `kinds: {a: {type: Nope}}`},
		{"bad presence", `{types: {A: {kind: object}}, kinds: {a: {type: A, presence: never}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, err := ParseDeclarations([]byte(tt.input))
			require.NoError(t, err)
			_, err = Build(decls)
			assert.Error(t, err)
		})
	}

	t.Run("duplicate type across sets", func(t *testing.T) {
		decls, err := ParseDeclarations([]byte(`types: {A: {kind: object}}`))
		require.NoError(t, err)
		_, err = Build(decls, decls)
		assert.Error(t, err)
	})
}

func TestParseDeclarationsRejectsUnknownKeys(t *testing.T) {
	_, err := ParseDeclarations([]byte(`typez: {}`))
	assert.Error(t, err)
}

func TestLoadDeclarations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDeclarations), 0o644))

	decls, err := LoadDeclarations(path)
	require.NoError(t, err)
	assert.Len(t, decls.Kinds, 2)

	_, err = LoadDeclarations(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildFingerprint(t *testing.T) {
	build := func(t *testing.T, docs ...string) *Registry {
		t.Helper()
		var sets []*Declarations
		for _, doc := range docs {
			decls, err := ParseDeclarations([]byte(doc))
			require.NoError(t, err)
			sets = append(sets, decls)
		}
		registry, err := Build(sets...)
		require.NoError(t, err)
		return registry
	}

	base := build(t, sampleDeclarations)
	assert.Len(t, base.Fingerprint(), 64)
	assert.Equal(t, base.Fingerprint(), build(t, sampleDeclarations).Fingerprint())

	reordered := `
kinds:
  session: {presence: optional, type: Person}
  data_description: {type: DataDescription}
types:
  SubjectId: {kind: pattern, pattern: '^[0-9]+$'}
  Modality: {kind: enum, values: [ecephys, behavior]}
  Person: {kind: object, fields: {email: "optional[email]", name: str}}
  DataDescription:
    kind: object
    fields:
      label: optional[str]
      investigators: list[Person]
      modality: list[Modality]
      subject_id: SubjectId
      schema_version: str
      describedBy: str
`
	assert.Equal(t, base.Fingerprint(), build(t, reordered).Fingerprint(), "layout must not change the fingerprint")

	extended := build(t, sampleDeclarations, `types: {Rig: {kind: object, fields: {rig_id: str}}}`)
	assert.NotEqual(t, base.Fingerprint(), extended.Fingerprint())

	narrowed := build(t, strings.Replace(sampleDeclarations, "[ecephys, behavior]", "[ecephys]", 1))
	assert.NotEqual(t, base.Fingerprint(), narrowed.Fingerprint(), "enum values are part of the fingerprint")
}
