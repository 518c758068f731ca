package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yumyai/orpheus/pkg/model"
)

const (
	DefaultFileName = "orpheus.yaml"
	fileMode        = 0600
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig    = "ORPHEUS_CONFIG"
	EnvWorkDir   = "ORPHEUS_WORK_DIR"
	EnvOutputDir = "ORPHEUS_OUTPUT_DIR"
	EnvLogLevel  = "ORPHEUS_LOG_LEVEL"
	EnvThreshold = "ORPHEUS_THRESHOLD"
	EnvTopN      = "ORPHEUS_TOP_N"
)

// Config is the full run configuration.
type Config struct {
	IO      IOConfig      `yaml:"io"`
	Scoring ScoringConfig `yaml:"scoring"`
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
}

// IOConfig holds input and output locations. Empty input paths are
// discovered under WorkDir.
type IOConfig struct {
	WorkDir   string `yaml:"work_dir"`
	OutputDir string `yaml:"output_dir,omitempty"`
	GFF3      string `yaml:"gff3,omitempty"`
	Sequences string `yaml:"sequences,omitempty"`
	BuscoDir  string `yaml:"busco_dir,omitempty"`
	Homology  string `yaml:"homology,omitempty"`
}

type ScoringConfig struct {
	Threshold float64          `yaml:"threshold"`
	TopN      int              `yaml:"top_n"`
	Weights   *model.WeightSet `yaml:"weights,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ExportConfig struct {
	SQLite bool `yaml:"sqlite"`
}

func Defaults() *Config {
	return &Config{
		IO:      IOConfig{WorkDir: "."},
		Scoring: ScoringConfig{Threshold: 0.5},
		Logging: LoggingConfig{Level: "info"},
	}
}

// OutputDir returns the configured output directory, or the work dir.
func (c *Config) OutputDir() string {
	if c.IO.OutputDir != "" {
		return c.IO.OutputDir
	}
	return c.IO.WorkDir
}

// Load reads a YAML config file on top of Defaults. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	c := Defaults()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	return c, nil
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "error loading env file: %s", path)
	}
	return nil
}

// ApplyEnv overrides c with any ORPHEUS_* variables present in the
// environment.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvWorkDir); ok && v != "" {
		c.IO.WorkDir = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok && v != "" {
		c.IO.OutputDir = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvThreshold); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s: %q", EnvThreshold, v)
		}
		c.Scoring.Threshold = f
	}
	if v, ok := os.LookupEnv(EnvTopN); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s: %q", EnvTopN, v)
		}
		c.Scoring.TopN = n
	}
	return nil
}

// ParseWeights parses "ortholog,completeness,homology,length".
func ParseWeights(s string) (*model.WeightSet, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.Errorf("weights need 4 comma separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid weight %q", p)
		}
		vals[i] = f
	}
	return &model.WeightSet{
		Ortholog:     vals[0],
		Completeness: vals[1],
		Homology:     vals[2],
		Length:       vals[3],
	}, nil
}

// Validate rejects settings the scorer cannot use.
func (c *Config) Validate() error {
	if c.IO.WorkDir == "" {
		return errors.New("work dir required")
	}
	if c.Scoring.Threshold < 0 {
		return errors.Errorf("threshold must not be negative: %g", c.Scoring.Threshold)
	}
	if c.Scoring.TopN < 0 {
		return errors.Errorf("top_n must not be negative: %d", c.Scoring.TopN)
	}
	if w := c.Scoring.Weights; w != nil {
		if w.Ortholog < 0 || w.Completeness < 0 || w.Homology < 0 || w.Length < 0 {
			return errors.Errorf("weights must not be negative: %s", w)
		}
	}
	return nil
}

// Write saves c as YAML at path, creating the parent directory if needed.
func Write(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create dir: %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}
