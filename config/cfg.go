package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	ManifestConfig struct {
		Path string `yaml:"path" validate:"required"`
		Key  string `yaml:"key" validate:"required"`
	}

	EntriesConfig struct {
		Dir string `yaml:"dir" validate:"required"`
		Key string `yaml:"key" validate:"required"`
	}

	TemplatesConfig struct {
		Dir   string `yaml:"dir" validate:"required"`
		Main  string `yaml:"main" validate:"required"`
		Entry string `yaml:"entry" validate:"required"`
	}

	FragmentsConfig struct {
		Dir                string `yaml:"dir" validate:"required"`
		Ext                string `yaml:"ext" validate:"required,startswith=."`
		TransliterateNames bool   `yaml:"transliterate_names"`
	}

	DocumentConfig struct {
		Manifest  ManifestConfig  `yaml:"manifest"`
		Entries   EntriesConfig   `yaml:"entries"`
		Templates TemplatesConfig `yaml:"templates"`
		Fragments FragmentsConfig `yaml:"fragments"`
		Source    string          `yaml:"source" validate:"required"`
	}

	CompilerConfig struct {
		Command      string   `yaml:"command" validate:"required"`
		Args         []string `yaml:"args"`
		IgnoreErrors bool     `yaml:"ignore_errors"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Compiler  CompilerConfig `yaml:"compiler"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
