package diagram

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyuml/internal/model"
)

func animalDogRegistry() *model.Registry {
	reg := model.NewRegistry()

	animal := model.NewClassModel()
	animal.Attributes.Set("name", "str")
	animal.AddMethod(model.MethodSignature{
		Name:       "speak",
		Params:     []string{},
		Decorators: []string{},
		ReturnType: "str",
	})
	reg.Put("Animal", animal)

	dog := model.NewClassModel()
	dog.Attributes.Set("breed", "Any")
	dog.ParentNames = []string{"Animal"}
	reg.Put("Dog", dog)

	return reg
}

func TestBuild_EmptyRegistry(t *testing.T) {
	out, err := Build(model.NewRegistry())
	assert.ErrorIs(t, err, model.ErrEmptyModel)
	assert.Empty(t, out)

	out, err = Build(nil)
	assert.ErrorIs(t, err, model.ErrEmptyModel)
	assert.Empty(t, out)
}

func TestBuild_NodesAndEdges(t *testing.T) {
	reg := animalDogRegistry()

	out, err := Build(reg)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "digraph G {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))

	// One node block per class, one edge per (class, parent) pair.
	assert.Equal(t, 2, strings.Count(out, "shape=plaintext"))
	assert.Equal(t, 1, strings.Count(out, "->"))
	assert.Contains(t, out, "Animal -> Dog [arrowhead=onormal];")

	assert.Contains(t, out, "<tr><td><b>Animal</b></td></tr>")
	assert.Contains(t, out, `<tr><td align="left">- name: str</td></tr>`)
	assert.Contains(t, out, `<tr><td align="left">+ speak(): str</td></tr>`)
	assert.Contains(t, out, "<tr><td><b>Dog</b></td></tr>")
	assert.Contains(t, out, `<tr><td align="left">- breed: Any</td></tr>`)

	// Method parameters are modeled but never drawn.
	assert.NotContains(t, out, "speak(sound")
}

func TestBuild_Deterministic(t *testing.T) {
	reg := animalDogRegistry()

	first, err := Build(reg)
	require.NoError(t, err)
	second, err := Build(reg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Nodes come out in registry order, edges in class-then-parent order.
	cyborg := model.NewClassModel()
	cyborg.ParentNames = []string{"Dog", "Robot"}
	reg.Put("Cyborg", cyborg)

	out, err := Build(reg)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "<b>Animal</b>"), strings.Index(out, "<b>Dog</b>"))
	assert.Less(t, strings.Index(out, "<b>Dog</b>"), strings.Index(out, "<b>Cyborg</b>"))
	assert.Less(t, strings.Index(out, "Dog -> Cyborg"), strings.Index(out, "Robot -> Cyborg"))
}

func TestBuild_DanglingParentKeepsEdge(t *testing.T) {
	reg := model.NewRegistry()
	c := model.NewClassModel()
	c.ParentNames = []string{"Unscanned"}
	reg.Put("Orphan", c)

	out, err := Build(reg)
	require.NoError(t, err)

	// The parent has no node block, only the implicit edge endpoint.
	assert.Contains(t, out, "Unscanned -> Orphan [arrowhead=onormal];")
	assert.NotContains(t, out, "<b>Unscanned</b>")
}

func TestBuild_EscapesLabelMarkup(t *testing.T) {
	reg := model.NewRegistry()
	c := model.NewClassModel()
	c.Attributes.Set("odd", `Literal["<br/>"]`)
	reg.Put("Edge", c)

	out, err := Build(reg)
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;br/&gt;")
	assert.NotContains(t, out, "<br/>")
}

func TestBuild_ShapeErrorBeforeOutput(t *testing.T) {
	reg := model.NewRegistry()
	reg.Put("Broken", &model.ClassModel{Methods: []model.MethodSignature{}, ParentNames: []string{}})

	out, err := Build(reg)
	var shapeErr *model.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Empty(t, out)
}

func TestGraphviz_MissingBinary(t *testing.T) {
	render := Graphviz("pyuml-no-such-binary", "png", "BT")
	err := render(context.Background(), "digraph G {\n}\n", filepath.Join(t.TempDir(), "out.png"))

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "pyuml-no-such-binary", renderErr.Tool)
}

func TestGraphviz_RendersFile(t *testing.T) {
	if _, err := exec.LookPath("dot"); err != nil {
		t.Skip("graphviz is not installed")
	}

	reg := animalDogRegistry()
	dot, err := Build(reg)
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "diagram.png")
	render := Graphviz("dot", "png", "BT")
	require.NoError(t, render(context.Background(), dot, outPath))

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
