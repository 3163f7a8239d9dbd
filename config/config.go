// Package config loads and validates the parameters that steer prototype
// distillation, grounded on original_source/classify/cluster.h's
// CLUSTERCONFIG.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"glyphtrain"
)

// minConfidence is the smallest confidence (alpha) the chi-squared solver
// can be asked for, matching bucket.minAlpha / spec.md §6's stated range.
const minConfidence = 1e-200

// Style selects which family of prototype shapes distillation is allowed
// to produce.
type Style int

const (
	Spherical Style = iota
	Elliptical
	Mixed
	Automatic
)

func (s Style) String() string {
	switch s {
	case Spherical:
		return "spherical"
	case Elliptical:
		return "elliptical"
	case Mixed:
		return "mixed"
	case Automatic:
		return "automatic"
	default:
		return "unknown"
	}
}

func parseStyle(s string) (Style, error) {
	switch s {
	case "spherical":
		return Spherical, nil
	case "elliptical":
		return Elliptical, nil
	case "mixed":
		return Mixed, nil
	case "automatic":
		return Automatic, nil
	default:
		return 0, fmt.Errorf("unknown proto style %q", s)
	}
}

// ClusterConfig parameterizes one run of prototype distillation.
type ClusterConfig struct {
	// ProtoStyle selects which prototype shapes may be produced.
	ProtoStyle Style
	// MinSamples is the minimum cluster size to analyze, expressed as a
	// fraction of the total number of training characters.
	MinSamples float64
	// MaxIllegal is the maximum fraction of a cluster's characters that
	// may contribute more than one sample before the cluster is split
	// rather than distilled.
	MaxIllegal float64
	// Independence is the maximum tolerated correlation coefficient
	// between any two dimensions of a candidate cluster.
	Independence float64
	// Confidence is the probability of a Type I error (rejecting a
	// distribution that actually fits) the goodness-of-fit tests run
	// against a cluster will tolerate, matching the original's Confidence
	// field (cluster.cpp) and passed straight through as the chi-squared
	// test's alpha: small is lenient (more clusters accepted), large is
	// strict. The Tesseract default is 1e-3.
	Confidence float64
	// MagicSamples is the expected number of samples per character; a
	// cluster whose size is close to it gets a leniency boost in the
	// Hotelling split test. Zero disables the boost.
	MagicSamples int
}

// rawConfig mirrors ClusterConfig's YAML representation.
type rawConfig struct {
	ProtoStyle   string  `yaml:"proto_style"`
	MinSamples   float64 `yaml:"min_samples"`
	MaxIllegal   float64 `yaml:"max_illegal"`
	Independence float64 `yaml:"independence"`
	Confidence   float64 `yaml:"confidence"`
	MagicSamples int     `yaml:"magic_samples"`
}

// Load reads and validates a ClusterConfig from a YAML file.
func Load(path string) (ClusterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClusterConfig{}, glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, err, "reading config %s", path)
	}
	return Parse(data)
}

// Parse validates and decodes a ClusterConfig from YAML bytes.
func Parse(data []byte) (ClusterConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ClusterConfig{}, glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, err, "parsing config yaml")
	}

	style, err := parseStyle(raw.ProtoStyle)
	if err != nil {
		return ClusterConfig{}, glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, err, "invalid proto_style")
	}

	cfg := ClusterConfig{
		ProtoStyle:   style,
		MinSamples:   raw.MinSamples,
		MaxIllegal:   raw.MaxIllegal,
		Independence: raw.Independence,
		Confidence:   raw.Confidence,
		MagicSamples: raw.MagicSamples,
	}
	if err := cfg.Validate(); err != nil {
		return ClusterConfig{}, err
	}
	return cfg, nil
}

// Validate reports a *glyphtrain.DataError if any field is out of its
// acceptable range.
func (c ClusterConfig) Validate() error {
	if c.MinSamples < 0 || c.MinSamples > 1 {
		return glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, nil, "min_samples %v must be in [0,1]", c.MinSamples)
	}
	if c.MaxIllegal < 0 || c.MaxIllegal > 1 {
		return glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, nil, "max_illegal %v must be in [0,1]", c.MaxIllegal)
	}
	if c.Independence < 0 || c.Independence > 1 {
		return glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, nil, "independence %v must be in [0,1]", c.Independence)
	}
	if c.Confidence < minConfidence || c.Confidence > 1 {
		return glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, nil, "confidence %v must be in [%v,1]", c.Confidence, minConfidence)
	}
	if c.MagicSamples < 0 {
		return glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, nil, "magic_samples %d must be >= 0", c.MagicSamples)
	}
	return nil
}
