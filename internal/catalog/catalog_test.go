package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conduit-lang/metadata-validator/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	registry, err := Default()
	require.NoError(t, err)

	assert.Equal(t, CoreKinds, registry.Kinds())
	for _, kind := range CoreKinds {
		_, ok := registry.TopLevel(kind)
		assert.True(t, ok, kind)
		_, ok = registry.FieldShapes(kind)
		assert.True(t, ok, kind)
	}
}

func TestAcquisitionShapes(t *testing.T) {
	registry, err := Default()
	require.NoError(t, err)

	top, ok := registry.TopLevel("acquisition")
	require.True(t, ok)
	assert.Equal(t, "Acquisition", top.Name())

	fields, ok := registry.FieldShapes("acquisition")
	require.True(t, ok)
	assert.Equal(t, "list[str]", fields["protocol_id"].String())
	assert.Equal(t, "str", fields["specimen_id"].String())
	assert.Equal(t, "optional[str]", fields["notes"].String())
	assert.NotContains(t, fields, "describedBy")
	assert.NotContains(t, fields, "schema_version")
}

func TestPresence(t *testing.T) {
	registry, err := Default()
	require.NoError(t, err)

	for kind, want := range map[string]schema.Presence{
		"data_description": schema.PresenceRequired,
		"subject":          schema.PresenceRequired,
		"procedures":       schema.PresenceRequired,
		"session":          schema.PresenceOptional,
		"rig":              schema.PresenceOptional,
	} {
		entry, ok := registry.Get(kind)
		require.True(t, ok, kind)
		assert.Equal(t, want, entry.Presence, kind)
	}
}

func TestLoadExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
types:
  Model:
    kind: object
    fields:
      name: str
      architecture: optional[str]
      trained_by: list[Person]
kinds:
  model:
    type: Model
    presence: excluded
`), 0o644))

	registry, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, registry.Kinds(), "model")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsRedeclaredKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kinds:
  subject:
    type: Person
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
