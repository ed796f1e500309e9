package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoal/internal/schema"
)

func writeSchemaFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDefinitions_Basic(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "schema.cue", `package shoal

schemas: {
	cafe: {
		description: "A cafe"
		fields: {
			name: {type: "str"}
			menu: {type: "relation_list", schema: "menu_item"}
		}
	}
	menu_item: {
		description: "An item on the menu"
		fields: {
			name: {type: "str"}
			price: {type: "int"}
		}
	}
}
`)

	result, err := LoadDefinitions(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Definitions, 2)

	// Definitions come back sorted by name.
	cafe := result.Definitions[0]
	assert.Equal(t, "cafe", cafe.Name)
	assert.Equal(t, "A cafe", cafe.Description)
	require.Len(t, cafe.Fields, 2)

	var menu, name *schema.Field
	for i := range cafe.Fields {
		switch cafe.Fields[i].Name {
		case "menu":
			menu = &cafe.Fields[i]
		case "name":
			name = &cafe.Fields[i]
		}
	}
	require.NotNil(t, menu)
	require.NotNil(t, name)
	assert.Equal(t, schema.RelationList, menu.RelationKind)
	assert.Equal(t, "menu_item", menu.RelationTarget)
	assert.Equal(t, schema.TypeString, name.Type)

	assert.Equal(t, "menu_item", result.Definitions[1].Name)
}

func TestLoadDefinitions_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "cafe.cue", `package shoal

schemas: cafe: {
	description: "A cafe"
	fields: name: {type: "str"}
}
`)
	writeSchemaFile(t, dir, "menu.cue", `package shoal

schemas: menu_item: {
	description: "An item"
	fields: price: {type: "int"}
}
`)

	result, err := LoadDefinitions(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FileCount)
	assert.Len(t, result.Definitions, 2)
}

func TestLoadDefinitions_DirectoryNotFound(t *testing.T) {
	_, err := LoadDefinitions(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDefinitions_EmptyDirectory(t *testing.T) {
	_, err := LoadDefinitions(t.TempDir())
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDefinitions_NoSchemasDeclaration(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "schema.cue", `package shoal

something: else: true`)

	_, err := LoadDefinitions(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNoSchemas, loadErr.Code)
}

func TestLoadDefinitions_MissingFieldType(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "schema.cue", `package shoal

schemas: cafe: {
	description: "A cafe"
	fields: name: {kind: "str"}
}
`)

	_, err := LoadDefinitions(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}

func TestLoadDefinitions_RelationMissingTarget(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "schema.cue", `package shoal

schemas: cafe: {
	description: "A cafe"
	fields: menu: {type: "relation_list"}
}
`)

	_, err := LoadDefinitions(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing target schema")
}

func TestLoadDefinitions_UnknownScalarTypePassesThrough(t *testing.T) {
	// Structural validation of type names happens in the build engine so
	// every definition problem is reported together.
	dir := t.TempDir()
	writeSchemaFile(t, dir, "schema.cue", `package shoal

schemas: cafe: {
	description: "A cafe"
	fields: name: {type: "varchar"}
}
`)

	result, err := LoadDefinitions(dir)
	require.NoError(t, err)
	require.Len(t, result.Definitions, 1)
	assert.Equal(t, schema.FieldType("varchar"), result.Definitions[0].Fields[0].Type)
}

func TestLoadDefinitions_CUESyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "schema.cue", `package shoal

schemas: { broken`)

	_, err := LoadDefinitions(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
}
