package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, "png", cfg.Diagram.Format)
	assert.Equal(t, "BT", cfg.Diagram.RankDir)
	assert.Equal(t, "dot", cfg.Diagram.DotBin)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyuml.yaml")
	yaml := "project:\n  root: ./src\ndiagram:\n  format: svg\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("PYUML_DOT_BIN", "/opt/graphviz/bin/dot")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./src", cfg.Project.Root)
	assert.Equal(t, "svg", cfg.Diagram.Format)
	// Env beats both defaults and file.
	assert.Equal(t, "/opt/graphviz/bin/dot", cfg.Diagram.DotBin)
	// Untouched keys keep their defaults.
	assert.Equal(t, "BT", cfg.Diagram.RankDir)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyuml.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project: ["), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
