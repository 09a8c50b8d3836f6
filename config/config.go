package config

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-fbank/algorithms/spectral"
	"github.com/RyanBlaney/sonido-fbank/logging"
	"gopkg.in/yaml.v3"
)

// BankKind selects how filter band edges are spaced
type BankKind string

const (
	KindLinear BankKind = "linear"
	KindMel    BankKind = "mel"
	KindBark   BankKind = "bark"
)

// OutputFormat selects how a computed filter bank is written
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatJSON OutputFormat = "json"
)

// Config is the on-disk configuration for the fbank tool
type Config struct {
	LogLevel   string                    `json:"log_level" yaml:"log_level"`   // debug, info, warn, error
	Kind       BankKind                  `json:"kind" yaml:"kind"`             // linear, mel or bark
	Format     OutputFormat              `json:"format" yaml:"format"`         // csv or json
	FilterBank spectral.FilterBankParams `json:"filterbank" yaml:"filterbank"` // filter bank geometry
}

// Default returns a linear, constant-scale bank written as CSV
func Default() Config {
	return Config{
		LogLevel:   "info",
		Kind:       KindLinear,
		Format:     FormatCSV,
		FilterBank: spectral.DefaultFilterBankParams(),
	}
}

// Load reads a YAML config. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every field, including the filter bank geometry
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Kind {
	case KindLinear, KindMel, KindBark:
	default:
		return fmt.Errorf("unknown filter bank kind %q (want linear, mel or bark)", c.Kind)
	}

	switch c.Format {
	case FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want csv or json)", c.Format)
	}

	if err := c.FilterBank.Validate(); err != nil {
		return fmt.Errorf("invalid filterbank config: %w", err)
	}
	return nil
}
