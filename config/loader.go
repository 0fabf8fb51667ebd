package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Default() and validates the
// result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Paths.Manifest != "" && !strings.HasSuffix(cfg.Paths.Manifest, ".jsonl") {
		errs = append(errs, fmt.Errorf("paths.manifest %q must end with .jsonl", cfg.Paths.Manifest))
	}
	if cfg.Paths.Manifest != "" && cfg.Paths.Audio == "" {
		errs = append(errs, errors.New("paths.audio is required when paths.manifest is set"))
	}
	if cfg.Paths.Annotations != "" && cfg.Paths.Annotations == cfg.Paths.RTTM {
		errs = append(errs, fmt.Errorf("paths.annotations and paths.rttm must differ, both are %q", cfg.Paths.RTTM))
	}

	if cfg.Serve.Workers < 0 {
		errs = append(errs, fmt.Errorf("serve.workers %d must not be negative", cfg.Serve.Workers))
	}
	if (cfg.Serve.CertFile == "") != (cfg.Serve.KeyFile == "") {
		errs = append(errs, errors.New("serve.cert_file and serve.key_file must be set together"))
	}

	return errors.Join(errs...)
}
