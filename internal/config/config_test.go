package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/docshield/internal/detecterr"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Pipeline.DefaultLanguage)
	assert.InDelta(t, 0.3, cfg.Recall.ModelThreshold, 1e-9)
	assert.False(t, cfg.Recall.AmountEnabled)
	assert.Equal(t, 50, cfg.Scoring.Window)
	assert.InDelta(t, 0.4, cfg.Scoring.ReviewThreshold, 1e-9)
	assert.True(t, cfg.Address.IsEnabled())
	assert.InDelta(t, 0.8, cfg.Address.AcceptAbove, 1e-9)
	require.NoError(t, Validate(cfg))
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docshield.yaml")
	yml := `
pipeline:
  default_language: de-CH
recall:
  amount_enabled: true
  model_threshold: 0.25
validation:
  confidence:
    format_verified: 0.88
  extra_cities: [Albligen]
scoring:
  review_threshold: 0.45
address:
  enabled: false
report:
  path: /tmp/docshield.jsonl
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "de-CH", cfg.Pipeline.DefaultLanguage)
	assert.True(t, cfg.Recall.AmountEnabled)
	assert.InDelta(t, 0.25, cfg.Recall.ModelThreshold, 1e-9)
	assert.InDelta(t, 0.88, cfg.Validation.Confidence["format_verified"], 1e-9)
	assert.Equal(t, []string{"Albligen"}, cfg.Validation.ExtraCities)
	assert.InDelta(t, 0.45, cfg.Scoring.ReviewThreshold, 1e-9)
	assert.InDelta(t, 1.2, cfg.Scoring.KeywordBoost, 1e-9)
	assert.False(t, cfg.Address.IsEnabled())
	assert.Equal(t, 1, cfg.Report.Workers)
	require.NoError(t, Validate(cfg))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: ["), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"language", func(c *Config) { c.Pipeline.DefaultLanguage = "rm" }, "default_language"},
		{"model threshold", func(c *Config) { c.Recall.ModelThreshold = 1.5 }, "model_threshold"},
		{"unknown tier", func(c *Config) { c.Validation.Confidence = map[string]float64{"excellent": 0.99} }, "unknown confidence tier"},
		{"tier order", func(c *Config) { c.Validation.Confidence = map[string]float64{"weak_pattern": 0.99} }, "must be below"},
		{"empty city", func(c *Config) { c.Validation.ExtraCities = []string{" "} }, "extra_cities"},
		{"keyword boost", func(c *Config) { c.Scoring.KeywordBoost = 0.5 }, "keyword_boost"},
		{"multiplier bounds", func(c *Config) { c.Scoring.MaxMultiplier = 0.9 }, "multiplier bounds"},
		{"address thresholds", func(c *Config) { c.Address.ReviewBelow = 0.9 }, "review_below"},
		{"min components", func(c *Config) { c.Address.MinComponents = 1 }, "min_components"},
		{"telemetry endpoint", func(c *Config) { c.Telemetry.Enabled = true }, "endpoint"},
		{"telemetry protocol", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "localhost:4317"
			c.Telemetry.Protocol = "udp"
		}, "protocol"},
		{"report workers", func(c *Config) {
			c.Report.Path = "out.jsonl"
			c.Report.Workers = 0
		}, "report.workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.True(t, detecterr.Is(err, detecterr.KindConfig))
		})
	}
}

func TestValidateNil(t *testing.T) {
	require.Error(t, Validate(nil))
}
