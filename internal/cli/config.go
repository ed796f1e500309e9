package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig is the parsed shoal.yaml project file.
type ProjectConfig struct {
	Schemas  string `yaml:"schemas"`  // directory containing CUE definitions
	Log      string `yaml:"log"`      // path to the operation log database
	Key      string `yaml:"key"`      // path to the signing key file
	Endpoint string `yaml:"endpoint"` // default node endpoint for deploy
}

// DefaultConfig returns a ProjectConfig with default paths, relative to dir.
func DefaultConfig(dir string) ProjectConfig {
	return ProjectConfig{
		Schemas:  filepath.Join(dir, "schemas"),
		Log:      filepath.Join(dir, "shoal.db"),
		Key:      filepath.Join(dir, "secret.txt"),
		Endpoint: "http://localhost:2020/graphql",
	}
}

// LoadConfig reads and parses a shoal.yaml file. Missing fields fall back
// to defaults relative to the config file's directory.
func LoadConfig(path string) (ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig(filepath.Dir(path))
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Relative paths in the file resolve against the file's directory.
	base := filepath.Dir(path)
	cfg.Schemas = resolvePath(base, cfg.Schemas)
	cfg.Log = resolvePath(base, cfg.Log)
	cfg.Key = resolvePath(base, cfg.Key)

	return cfg, nil
}

// WriteConfig writes a shoal.yaml with paths relative to its own directory.
func WriteConfig(path string, cfg ProjectConfig) error {
	base := filepath.Dir(path)
	out := ProjectConfig{
		Schemas:  relPath(base, cfg.Schemas),
		Log:      relPath(base, cfg.Log),
		Key:      relPath(base, cfg.Key),
		Endpoint: cfg.Endpoint,
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func relPath(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return p
	}
	return rel
}
