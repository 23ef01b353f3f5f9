package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/validate"
)

// Validate checks the loaded config for consistent values. Failures are
// KindConfig errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return configErr(errors.New("config is nil"))
	}
	for _, check := range []func(*Config) error{
		validatePipelineConfig,
		validateRecallConfig,
		validateValidationConfig,
		validateScoringConfig,
		validateAddressConfig,
		validateTelemetryConfig,
		validateReportConfig,
	} {
		if err := check(cfg); err != nil {
			return configErr(err)
		}
	}
	return nil
}

func configErr(err error) error {
	return detecterr.New(detecterr.KindConfig, "config.validate", err)
}

func validatePipelineConfig(cfg *Config) error {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(cfg.Pipeline.DefaultLanguage)), "-")
	if !slices.Contains(lexicon.Languages, base) {
		return fmt.Errorf("pipeline.default_language must be one of %v, got %q", lexicon.Languages, cfg.Pipeline.DefaultLanguage)
	}
	if cfg.Pipeline.BatchConcurrency < 1 {
		return errors.New("pipeline.batch_concurrency must be at least 1")
	}
	return nil
}

func validateRecallConfig(cfg *Config) error {
	r := cfg.Recall
	if err := unitRange("recall.model_threshold", r.ModelThreshold); err != nil {
		return err
	}
	if r.ModelDir != "" && r.SeqLen < 8 {
		return fmt.Errorf("recall.seq_len must be at least 8, got %d", r.SeqLen)
	}
	return nil
}

func validateValidationConfig(cfg *Config) error {
	if _, err := validate.DefaultPolicy().WithOverrides(cfg.Validation.Confidence); err != nil {
		return fmt.Errorf("validation.confidence: %w", err)
	}
	for _, c := range cfg.Validation.ExtraCities {
		if strings.TrimSpace(c) == "" {
			return errors.New("validation.extra_cities contains an empty name")
		}
	}
	return nil
}

func validateScoringConfig(cfg *Config) error {
	s := cfg.Scoring
	if err := unitRange("scoring.review_threshold", s.ReviewThreshold); err != nil {
		return err
	}
	if err := unitRange("scoring.zone_factor", s.ZoneFactor); err != nil {
		return err
	}
	if s.KeywordBoost < 1 {
		return fmt.Errorf("scoring.keyword_boost must be >= 1, got %v", s.KeywordBoost)
	}
	if s.RepetitionCap < 1 {
		return fmt.Errorf("scoring.repetition_cap must be >= 1, got %v", s.RepetitionCap)
	}
	if s.MinMultiplier <= 0 || s.MinMultiplier > 1 || s.MaxMultiplier < 1 {
		return fmt.Errorf("scoring multiplier bounds must satisfy 0 < min <= 1 <= max, got [%v, %v]", s.MinMultiplier, s.MaxMultiplier)
	}
	return nil
}

func validateAddressConfig(cfg *Config) error {
	a := cfg.Address
	if err := unitRange("address.review_below", a.ReviewBelow); err != nil {
		return err
	}
	if err := unitRange("address.accept_above", a.AcceptAbove); err != nil {
		return err
	}
	if a.ReviewBelow > a.AcceptAbove {
		return fmt.Errorf("address.review_below (%v) must not exceed address.accept_above (%v)", a.ReviewBelow, a.AcceptAbove)
	}
	if a.MinComponents < 2 {
		return fmt.Errorf("address.min_components must be at least 2, got %d", a.MinComponents)
	}
	return nil
}

func validateTelemetryConfig(cfg *Config) error {
	t := cfg.Telemetry
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "grpc":
	case "http":
		if strings.Contains(t.Endpoint, "://") {
			u, err := url.Parse(t.Endpoint)
			if err != nil || u.Host == "" {
				return fmt.Errorf("telemetry.endpoint is not a valid url: %q", t.Endpoint)
			}
		}
	default:
		return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
	}
	return nil
}

func validateReportConfig(cfg *Config) error {
	if cfg.Report.Path == "" {
		return nil
	}
	if cfg.Report.Workers < 1 || cfg.Report.QueueSize < 1 {
		return errors.New("report.workers and report.queue_size must be positive")
	}
	return nil
}

func unitRange(field string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0,1], got %v", field, v)
	}
	return nil
}
