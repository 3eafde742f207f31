// Package config loads reviewer configuration from an optional YAML file and
// REVIEWER_-prefixed environment variables. Environment variables win over the
// file; both win over the compiled-in defaults.
//
// Example: REVIEWER_FUSION_COACH_WEIGHT=0.6 maps to fusion.coach_weight.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full configuration surface consumed by the reviewer core and
// its HTTP transport. The fusion algorithm itself never reads the environment;
// everything it needs is injected from here.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Gemini GeminiConfig `koanf:"gemini"`
	Agents AgentsConfig `koanf:"agents"`
	Fusion FusionConfig `koanf:"fusion"`
	Memory MemoryConfig `koanf:"memory"`
}

type ServerConfig struct {
	Port           int   `koanf:"port"`
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

type GeminiConfig struct {
	Model string `koanf:"model"`
}

// AgentsConfig holds the per-agent time budgets and the orchestrator retry cap.
// Deep mode multiplies every timeout so the model can reason longer.
type AgentsConfig struct {
	VisionTimeout     time.Duration `koanf:"vision_timeout"`
	CoachTimeout      time.Duration `koanf:"coach_timeout"`
	EngagementTimeout time.Duration `koanf:"engagement_timeout"`
	DeepMultiplier    float64       `koanf:"deep_multiplier"`
	MaxRetries        int           `koanf:"max_retries"`
}

// FusionConfig holds the blend weights for the combined score. Weights are
// renormalized at fusion time over the signals actually present, so they only
// need to be non-negative, not sum to one.
type FusionConfig struct {
	MetricsWeight    float64 `koanf:"metrics_weight"`
	CoachWeight      float64 `koanf:"coach_weight"`
	EngagementWeight float64 `koanf:"engagement_weight"`
}

type MemoryConfig struct {
	DBPath        string `koanf:"db_path"`
	HistoryCap    int    `koanf:"history_cap"`
	SummaryWindow int    `koanf:"summary_window"`
}

// defaults are applied for any key not set by the file or the environment.
var defaults = map[string]interface{}{
	"server.port":               8080,
	"server.max_upload_bytes":   int64(10 * 1024 * 1024),
	"gemini.model":              "gemini-2.5-flash",
	"agents.vision_timeout":     "8s",
	"agents.coach_timeout":      "9s",
	"agents.engagement_timeout": "6s",
	"agents.deep_multiplier":    1.5,
	"agents.max_retries":        1,
	"fusion.metrics_weight":     0.25,
	"fusion.coach_weight":       0.50,
	"fusion.engagement_weight":  0.25,
	"memory.db_path":            "reviewer-memory.db",
	"memory.history_cap":        50,
	"memory.summary_window":     8,
}

// Load reads configuration from the YAML file at path (skipped when path is
// empty) and from REVIEWER_-prefixed environment variables, then validates
// the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("REVIEWER_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "REVIEWER_"))
		// One underscore separates the section from the key; keys themselves
		// keep their underscores (FUSION_COACH_WEIGHT -> fusion.coach_weight).
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the fusion pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Fusion.MetricsWeight < 0 || c.Fusion.CoachWeight < 0 || c.Fusion.EngagementWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.Fusion.MetricsWeight+c.Fusion.CoachWeight+c.Fusion.EngagementWeight == 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if c.Memory.HistoryCap <= 0 {
		return fmt.Errorf("memory.history_cap must be positive, got %d", c.Memory.HistoryCap)
	}
	if c.Memory.SummaryWindow <= 0 {
		return fmt.Errorf("memory.summary_window must be positive, got %d", c.Memory.SummaryWindow)
	}
	if c.Agents.MaxRetries < 0 || c.Agents.MaxRetries > 2 {
		return fmt.Errorf("agents.max_retries must be in [0, 2], got %d", c.Agents.MaxRetries)
	}
	if c.Agents.DeepMultiplier < 1 {
		return fmt.Errorf("agents.deep_multiplier must be >= 1, got %v", c.Agents.DeepMultiplier)
	}
	return nil
}

// TimeoutFor returns the configured timeout for the named agent, scaled by
// the deep multiplier when deep is true. Unknown agent names get the coach
// budget, the longest of the three.
func (c *Config) TimeoutFor(agent string, deep bool) time.Duration {
	var d time.Duration
	switch agent {
	case "vision":
		d = c.Agents.VisionTimeout
	case "engagement":
		d = c.Agents.EngagementTimeout
	default:
		d = c.Agents.CoachTimeout
	}
	if deep {
		d = time.Duration(float64(d) * c.Agents.DeepMultiplier)
	}
	return d
}
