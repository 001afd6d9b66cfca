package setup

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilename  = "config.yml"
	overlayFilename = "setup.yml"
	dotenvFilename  = ".env"
)

type (
	// Package is one entry of the verified package set. Import is the Python
	// module name when it differs from the distribution name.
	Package struct {
		Name     string `yaml:"name"`
		Display  string `yaml:"display,omitempty"`
		Import   string `yaml:"import,omitempty"`
		Version  string `yaml:"version,omitempty"`
		Optional bool   `yaml:"optional,omitempty"`
	}
	// FixStep is one entry of the ordered reinstall sequence that works
	// around the binary-wheel mismatch between numpy and the packages
	// compiled against it.
	FixStep struct {
		Name    string   `yaml:"name"`
		Version string   `yaml:"version"`
		Args    []string `yaml:"args,omitempty"`
	}
	// ParserConfig describes the tree-sitter parser build of the StructCoder
	// checkout: the grammar repositories cloned into the vendor dir and the
	// shared objects the build script produces.
	ParserConfig struct {
		Dir         string   `yaml:"dir"`
		VendorDir   string   `yaml:"vendor_dir"`
		BuildScript string   `yaml:"build_script"`
		Grammars    []string `yaml:"grammars"`
		Artifacts   []string `yaml:"artifacts"`
		Sources     []string `yaml:"sources"`
	}
	CheckpointConfig struct {
		Path string `yaml:"path"`
		Hint string `yaml:"hint,omitempty"`
	}
	DatasetConfig struct {
		Dir     string `yaml:"dir"`
		Display string `yaml:"display,omitempty"`
	}
	// Config is the tool configuration, loaded from the embedded config.yml
	// and optionally overlaid by a setup.yml in the working directory and by
	// STRUCTCODER_* environment variables (a .env file is honored).
	Config struct {
		PythonVersion string           `yaml:"python_version"`
		EnvDir        string           `yaml:"env_dir"`
		IndexURL      string           `yaml:"index_url,omitempty"`
		Manifest      string           `yaml:"manifest"`
		Packages      []Package        `yaml:"packages"`
		FixOrder      []FixStep        `yaml:"fix_order"`
		Parser        ParserConfig     `yaml:"parser"`
		Dirs          []string         `yaml:"dirs"`
		Checkpoint    CheckpointConfig `yaml:"checkpoint"`
		Datasets      []DatasetConfig  `yaml:"datasets"`
		Variables     StringMap        `yaml:"variables"`

		// set from commandline flags, not from yaml
		NoLauncher bool `yaml:"-"`
		AssumeYes  bool `yaml:"-"`
	}
)

// ImportName returns the Python module name used to import the package.
func (p Package) ImportName() string {
	if p.Import != "" {
		return p.Import
	}
	return pythonImportName(p.Name)
}

// DisplayName returns the human-readable package name.
func (p Package) DisplayName() string {
	if p.Display != "" {
		return p.Display
	}
	return p.Name
}

// NewConfig loads the embedded configuration and applies local overrides.
func NewConfig() (*Config, error) {
	config := &Config{}
	configFile := MustGetResource(configFilename)
	err := yaml.Unmarshal([]byte(configFile), config)
	if err != nil {
		log.Printf("Unable to parse config file %s: %s\n", configFilename, err)
		return nil, err
	}
	if overlay, err := os.ReadFile(overlayFilename); err == nil {
		err = yaml.Unmarshal(overlay, config)
		if err != nil {
			log.Printf("Unable to parse local config file %s: %s\n", overlayFilename, err)
			return nil, err
		}
		log.Printf("Applied local config overrides from %s", overlayFilename)
	}
	config.applyEnvOverrides()
	if config.Variables == nil {
		config.Variables = StringMap{}
	}
	return config, nil
}

// applyEnvOverrides reads a .env file (if present) and then picks up
// STRUCTCODER_* variables from the environment. Explicit environment
// variables win over the .env file, which godotenv guarantees by not
// overriding existing values.
func (c *Config) applyEnvOverrides() {
	if _, err := os.Stat(dotenvFilename); err == nil {
		if err := godotenv.Load(dotenvFilename); err != nil {
			log.Printf("Unable to load %s: %s", dotenvFilename, err)
		}
	}
	if v := os.Getenv("STRUCTCODER_ENV_DIR"); v != "" {
		c.EnvDir = v
	}
	if v := os.Getenv("STRUCTCODER_PYTHON_VERSION"); v != "" {
		c.PythonVersion = v
	}
	if v := os.Getenv("STRUCTCODER_INDEX_URL"); v != "" {
		c.IndexURL = v
	}
}

// pythonImportName derives a Python module name from a distribution name for
// the usual cases (dashes become underscores). Known irregular names are
// mapped explicitly.
func pythonImportName(distName string) string {
	normalized := strings.ToLower(strings.ReplaceAll(distName, "-", "_"))
	if importName, ok := irregularImportNames[normalized]; ok {
		return importName
	}
	return normalized
}

var irregularImportNames = map[string]string{
	"scikit_learn":   "sklearn",
	"pyyaml":         "yaml",
	"pillow":         "PIL",
	"beautifulsoup4": "bs4",
}
