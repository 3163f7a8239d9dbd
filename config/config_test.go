package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidConfig(t *testing.T) {
	t.Parallel()
	yaml := []byte(`
proto_style: mixed
min_samples: 0.1
max_illegal: 0.2
independence: 0.3
confidence: 0.99
magic_samples: 20
`)
	cfg, err := Parse(yaml)
	require.NoError(t, err)
	assert.Equal(t, Mixed, cfg.ProtoStyle)
	assert.Equal(t, 20, cfg.MagicSamples)
	assert.InDelta(t, 0.1, cfg.MinSamples, 1e-9)
}

func TestParseRejectsUnknownStyle(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte("proto_style: triangular\nconfidence: 0.99\n"))
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangeConfidence(t *testing.T) {
	t.Parallel()
	cfg := ClusterConfig{ProtoStyle: Spherical, Confidence: 1.5}
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsConfidenceAtUpperBound(t *testing.T) {
	t.Parallel()
	cfg := ClusterConfig{ProtoStyle: Spherical, Confidence: 1.0}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsConfidenceBelowMinimum(t *testing.T) {
	t.Parallel()
	cfg := ClusterConfig{ProtoStyle: Spherical, Confidence: minConfidence / 10}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeMagicSamples(t *testing.T) {
	t.Parallel()
	cfg := ClusterConfig{ProtoStyle: Spherical, Confidence: 0.99, MagicSamples: -1}
	require.Error(t, cfg.Validate())
}
