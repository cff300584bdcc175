package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func primitiveResolver(name string) (Type, error) {
	return ParsePrimitive(name)
}

func TestDescriptorAccessors(t *testing.T) {
	union := Union(Plain(TypeString), Plain(TypeInt))
	d := List(Annotated(union, "identifier"))

	assert.Equal(t, KindList, d.Kind())
	assert.Equal(t, KindAnnotated, d.Inner().Kind())
	assert.Equal(t, "identifier", d.Inner().Annotation())
	assert.Len(t, d.Inner().Inner().Members(), 2)
	assert.Equal(t, TypeString, d.Inner().Inner().Members()[0].Leaf())
	assert.False(t, d.IsOptional())
	assert.True(t, Optional(d).IsOptional())
	assert.True(t, Annotated(Annotated(Optional(d), "a"), "b").IsOptional())
	assert.False(t, List(Optional(Plain(TypeString))).IsOptional())

	members := union.Members()
	members[0] = Plain(TypeBool)
	assert.Equal(t, TypeString, union.Members()[0].Leaf(), "Members must return a copy")
}

func TestDescriptorConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { Plain(nil) })
	assert.Panics(t, func() { Optional(nil) })
	assert.Panics(t, func() { Union() })
	assert.Panics(t, func() { List(nil) })
	assert.Panics(t, func() { Annotated(nil, "") })
}

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"str", "str"},
		{"string", "str"},
		{"optional[str]", "optional[str]"},
		{"list[int]", "list[int]"},
		{"list", "list"},
		{"optional[list]", "optional[list]"},
		{"union[str, int]", "union[str, int]"},
		{"union[dict,str,int]", "union[dict, str, int]"},
		{"annotated[str]", "annotated[str]"},
		{`annotated[union[str, int], "none"]`, `annotated[union[str, int], "none"]`},
		{"list[annotated[union[str, int], `note`]]", `list[annotated[union[str, int], "note"]]`},
		{"optional[list[optional[float]]]", "optional[list[optional[float]]]"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			d, err := ParseDescriptor(tt.expr, primitiveResolver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())

			again, err := ParseDescriptor(d.String(), primitiveResolver)
			require.NoError(t, err)
			assert.Equal(t, d.String(), again.String())
		})
	}
}

func TestParseDescriptorErrors(t *testing.T) {
	tests := []string{
		"",
		"Person",
		"optional",
		"optional[]",
		"list[str",
		"union[str,]",
		"str[int]",
		"annotated[str, 5]",
		"list[str] extra",
		"[str]",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseDescriptor(expr, primitiveResolver)
			assert.Error(t, err)
		})
	}
}
