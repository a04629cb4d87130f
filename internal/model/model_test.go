package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PutOverwriteKeepsPosition(t *testing.T) {
	reg := NewRegistry()

	first := NewClassModel()
	first.Attributes.Set("old", "str")
	reg.Put("Animal", first)

	other := NewClassModel()
	reg.Put("Dog", other)

	second := NewClassModel()
	second.Attributes.Set("new", "int")
	reg.Put("Animal", second)

	assert.Equal(t, []string{"Animal", "Dog"}, reg.Names())
	got, ok := reg.Get("Animal")
	require.True(t, ok)
	_, hasOld := got.Attributes.Get("old")
	assert.False(t, hasOld)
	label, hasNew := got.Attributes.Get("new")
	assert.True(t, hasNew)
	assert.Equal(t, "int", label)
}

func TestRegistry_Delete(t *testing.T) {
	reg := NewRegistry()
	reg.Put("A", NewClassModel())
	reg.Put("B", NewClassModel())
	reg.Put("C", NewClassModel())

	reg.Delete("B")
	assert.Equal(t, []string{"A", "C"}, reg.Names())

	// Deleting an unknown name is a no-op.
	reg.Delete("Missing")
	assert.Equal(t, 2, reg.Len())
}

func TestAttributes_SetOverwriteKeepsPosition(t *testing.T) {
	attrs := NewAttributes()
	attrs.Set("x", "str")
	attrs.Set("y", "int")
	attrs.Set("x", "float")

	assert.Equal(t, []string{"x", "y"}, attrs.Names())
	label, ok := attrs.Get("x")
	require.True(t, ok)
	assert.Equal(t, "float", label)
}

func TestClassModel_AddMethodReplacesInPlace(t *testing.T) {
	c := NewClassModel()
	c.AddMethod(MethodSignature{Name: "run", Params: []string{}, Decorators: []string{}, ReturnType: "None"})
	c.AddMethod(MethodSignature{Name: "stop", Params: []string{}, Decorators: []string{}, ReturnType: "None"})
	c.AddMethod(MethodSignature{Name: "run", Params: []string{"speed: int"}, Decorators: []string{}, ReturnType: "bool"})

	require.Len(t, c.Methods, 2)
	assert.Equal(t, "run", c.Methods[0].Name)
	assert.Equal(t, "bool", c.Methods[0].ReturnType)
	assert.Equal(t, []string{"speed: int"}, c.Methods[0].Params)
	assert.Equal(t, "stop", c.Methods[1].Name)
}

func TestRegistry_JSONRoundTrip(t *testing.T) {
	reg := NewRegistry()

	zebra := NewClassModel()
	zebra.Attributes.Set("stripes", "int")
	zebra.Attributes.Set("alive", "bool")
	zebra.AddMethod(MethodSignature{
		Name:       "gallop",
		Params:     []string{"speed: int"},
		Decorators: []string{"cached"},
		ReturnType: "None",
	})
	zebra.ParentNames = []string{"Animal", "Striped"}
	reg.Put("Zebra", zebra)

	apple := NewClassModel()
	apple.Attributes.Set("count", "int")
	reg.Put("Apple", apple)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveJSON(path, reg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Registry order survives serialization, not map order.
	assert.Less(t, strings.Index(string(raw), "Zebra"), strings.Index(string(raw), "Apple"))
	assert.Less(t, strings.Index(string(raw), "stripes"), strings.Index(string(raw), "alive"))

	loaded, err := LoadJSON(path)
	require.NoError(t, err)

	assert.Equal(t, reg.Names(), loaded.Names())
	gotZebra, ok := loaded.Get("Zebra")
	require.True(t, ok)
	assert.Equal(t, []string{"stripes", "alive"}, gotZebra.Attributes.Names())
	assert.Equal(t, zebra.Methods, gotZebra.Methods)
	assert.Equal(t, []string{"Animal", "Striped"}, gotZebra.ParentNames)

	gotApple, ok := loaded.Get("Apple")
	require.True(t, ok)
	assert.Equal(t, []string{"count"}, gotApple.Attributes.Names())
	assert.Empty(t, gotApple.Methods)
	assert.Empty(t, gotApple.ParentNames)
}

func TestRegistry_MarshalEmptyContainers(t *testing.T) {
	reg := NewRegistry()
	reg.Put("Bare", NewClassModel())

	b, err := json.Marshal(reg)
	require.NoError(t, err)
	// Empty containers serialize as empty, never null.
	assert.Contains(t, string(b), `"attributes":{}`)
	assert.Contains(t, string(b), `"methods":[]`)
	assert.Contains(t, string(b), `"parent_classes":[]`)
}

func TestSaveJSON_ShapeErrorWritesNothing(t *testing.T) {
	reg := NewRegistry()
	reg.Put("Broken", &ClassModel{Attributes: NewAttributes(), ParentNames: []string{}})

	path := filepath.Join(t.TempDir(), "model.json")
	err := SaveJSON(path, reg)

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "Broken", shapeErr.Class)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadJSON_RestoresDocumentOrder(t *testing.T) {
	doc := `{
    "Zulu": {
        "attributes": {"b": "str", "a": "int"},
        "methods": [],
        "parent_classes": []
    },
    "Alpha": {
        "attributes": {},
        "methods": [
            {"name": "go", "args": [], "decorators": [], "return_type": "None"}
        ],
        "parent_classes": ["Zulu"]
    }
}`
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	reg, err := LoadJSON(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Zulu", "Alpha"}, reg.Names())
	zulu, ok := reg.Get("Zulu")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, zulu.Attributes.Names())
}

func TestLoadJSON_RejectsMissingContainers(t *testing.T) {
	doc := `{"Broken": {"attributes": {}, "parent_classes": []}}`
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := LoadJSON(path)
	// The schema check rejects the document before any of it is
	// decoded into model types.
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestOriginIndex_ClassesIn(t *testing.T) {
	origins := OriginIndex{
		"Dog":    "pets/dog.py",
		"Cat":    "pets/cat.py",
		"Puppy":  "pets/dog.py",
		"Animal": "base.py",
	}

	assert.Equal(t, []string{"Dog", "Puppy"}, origins.ClassesIn("pets/dog.py"))
	assert.Empty(t, origins.ClassesIn("missing.py"))
}
