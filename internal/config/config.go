package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root   string   `yaml:"root"`
		Ignore []string `yaml:"ignore"`
	} `yaml:"project"`
	Diagram struct {
		Format  string `yaml:"format"`
		RankDir string `yaml:"rankdir"`
		DotBin  string `yaml:"dot_bin"`
		Output  string `yaml:"output"`
	} `yaml:"diagram"`
}

// Default returns the configuration used when no pyuml.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Project.Root = "."
	cfg.Diagram.Format = "png"
	cfg.Diagram.RankDir = "BT"
	cfg.Diagram.DotBin = "dot"
	cfg.Diagram.Output = "uml.png"
	return cfg
}

// LoadConfig reads the YAML config at path, falling back to defaults
// when the file is missing. A .env file and PYUML_* variables override
// individual keys afterwards.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file means defaults only
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with environment variables if present
	if root := os.Getenv("PYUML_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if bin := os.Getenv("PYUML_DOT_BIN"); bin != "" {
		cfg.Diagram.DotBin = bin
	}
	if format := os.Getenv("PYUML_DIAGRAM_FORMAT"); format != "" {
		cfg.Diagram.Format = format
	}
	if rankdir := os.Getenv("PYUML_RANKDIR"); rankdir != "" {
		cfg.Diagram.RankDir = rankdir
	}

	return cfg, nil
}
