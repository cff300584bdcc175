// Package catalog holds the declarations of the known metadata document kinds
// and builds the default schema registry from them.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/conduit-lang/metadata-validator/internal/schema"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// CoreKinds are the document kinds that make up a complete metadata record
var CoreKinds = []string{
	"acquisition",
	"data_description",
	"instrument",
	"procedures",
	"processing",
	"quality_control",
	"rig",
	"session",
	"subject",
}

// Declarations returns the embedded declaration sets in file name order
func Declarations() ([]*schema.Declarations, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	sets := make([]*schema.Declarations, 0, len(names))
	for _, name := range names {
		data, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, err
		}
		decls, err := schema.ParseDeclarations(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sets = append(sets, decls)
	}
	return sets, nil
}

// Default builds the registry for the embedded kinds
func Default() (*schema.Registry, error) {
	return Load("")
}

// Load builds a registry from the embedded declarations plus the optional
// extension file at extra
func Load(extra string) (*schema.Registry, error) {
	sets, err := Declarations()
	if err != nil {
		return nil, err
	}

	if extra != "" {
		decls, err := schema.LoadDeclarations(extra)
		if err != nil {
			return nil, err
		}
		sets = append(sets, decls)
	}

	registry, err := schema.Build(sets...)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	return registry, nil
}
