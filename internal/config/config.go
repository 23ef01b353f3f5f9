package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds docshield configuration.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Recall     RecallConfig     `yaml:"recall"`
	Validation ValidationConfig `yaml:"validation"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Address    AddressConfig    `yaml:"address"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Report     ReportConfig     `yaml:"report"`
}

type PipelineConfig struct {
	DefaultLanguage   string `yaml:"default_language"`    // en | de | fr | it
	BatchConcurrency  int    `yaml:"batch_concurrency"`   // documents processed in parallel
	ClassifierMinHits int    `yaml:"classifier_min_hits"` // keyword hits before a document type is assigned
}

type RecallConfig struct {
	ModelThreshold float64 `yaml:"model_threshold"` // acceptance floor for model predictions
	AmountEnabled  bool    `yaml:"amount_enabled"`
	ModelDir       string  `yaml:"model_dir"` // NER bundle; empty runs regex only
	ModelVersion   string  `yaml:"model_version"`
	SeqLen         int     `yaml:"seq_len"`
	PoolSize       int     `yaml:"pool_size"`
	Cased          bool    `yaml:"cased"` // vocab is cased; lowercase input otherwise
	// RequireModel fails startup when the bundle cannot be loaded instead
	// of falling back to regex only.
	RequireModel bool `yaml:"require_model"`
}

type ValidationConfig struct {
	// Confidence overrides policy tiers by name, e.g. format_verified: 0.88.
	Confidence  map[string]float64 `yaml:"confidence"`
	ExtraCities []string           `yaml:"extra_cities"`
	DenyNouns   []string           `yaml:"deny_nouns"`
}

type ScoringConfig struct {
	Window          int     `yaml:"window"`
	ReviewThreshold float64 `yaml:"review_threshold"`
	KeywordBoost    float64 `yaml:"keyword_boost"`
	RepetitionStep  float64 `yaml:"repetition_step"`
	RepetitionCap   float64 `yaml:"repetition_cap"`
	ZoneFactor      float64 `yaml:"zone_factor"`
	ZoneLines       int     `yaml:"zone_lines"`
	ZoneMinLines    int     `yaml:"zone_min_lines"`
	MinMultiplier   float64 `yaml:"min_multiplier"`
	MaxMultiplier   float64 `yaml:"max_multiplier"`
}

type AddressConfig struct {
	Enabled       *bool   `yaml:"enabled"`
	Window        int     `yaml:"window"`
	MinComponents int     `yaml:"min_components"`
	ReviewBelow   float64 `yaml:"review_below"`
	AcceptAbove   float64 `yaml:"accept_above"`
}

// IsEnabled reports whether address linking runs. It defaults to on.
func (a AddressConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Protocol    string `yaml:"protocol"` // grpc | http
	ServiceName string `yaml:"service_name"`
}

type ReportConfig struct {
	Path      string `yaml:"path"` // JSONL file; empty disables reports
	QueueSize int    `yaml:"queue_size"`
	Workers   int    `yaml:"workers"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Pipeline.DefaultLanguage == "" {
		cfg.Pipeline.DefaultLanguage = "en"
	}
	if cfg.Pipeline.BatchConcurrency <= 0 {
		cfg.Pipeline.BatchConcurrency = 4
	}
	if cfg.Pipeline.ClassifierMinHits <= 0 {
		cfg.Pipeline.ClassifierMinHits = 2
	}

	if cfg.Recall.ModelThreshold == 0 {
		cfg.Recall.ModelThreshold = 0.3
	}
	if cfg.Recall.SeqLen <= 0 {
		cfg.Recall.SeqLen = 256
	}
	if cfg.Recall.PoolSize <= 0 {
		cfg.Recall.PoolSize = 1
	}

	s := &cfg.Scoring
	if s.Window <= 0 {
		s.Window = 50
	}
	if s.ReviewThreshold == 0 {
		s.ReviewThreshold = 0.4
	}
	if s.KeywordBoost == 0 {
		s.KeywordBoost = 1.2
	}
	if s.RepetitionStep == 0 {
		s.RepetitionStep = 0.05
	}
	if s.RepetitionCap == 0 {
		s.RepetitionCap = 1.15
	}
	if s.ZoneFactor == 0 {
		s.ZoneFactor = 0.8
	}
	if s.ZoneLines <= 0 {
		s.ZoneLines = 3
	}
	if s.ZoneMinLines <= 0 {
		s.ZoneMinLines = 10
	}
	if s.MinMultiplier == 0 {
		s.MinMultiplier = 0.5
	}
	if s.MaxMultiplier == 0 {
		s.MaxMultiplier = 1.3
	}

	a := &cfg.Address
	if a.Window <= 0 {
		a.Window = 50
	}
	if a.MinComponents <= 0 {
		a.MinComponents = 3
	}
	if a.ReviewBelow == 0 {
		a.ReviewBelow = 0.6
	}
	if a.AcceptAbove == 0 {
		a.AcceptAbove = 0.8
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "docshield"
	}

	if cfg.Report.QueueSize <= 0 {
		cfg.Report.QueueSize = 256
	}
	if cfg.Report.Workers <= 0 {
		cfg.Report.Workers = 1
	}
}
