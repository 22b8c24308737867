package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical selector defaults file.
const DefaultConfigPath = "config/selector.defaults.json"

// Cost model names accepted by cost_model.
const (
	CostModelCompat    = "compat"
	CostModelCorrected = "corrected"
)

// SelectorConfig is the root tuning configuration for target selection.
// Every field is optional; the Get* accessors supply defaults for fields
// omitted from the JSON file, so partial configs are safe.
type SelectorConfig struct {
	// Selection params
	AngleWeight *float64 `json:"angle_weight,omitempty"`
	CostModel   *string  `json:"cost_model,omitempty"` // "compat" or "corrected"

	// Projection params
	RangeCutoff    *float64 `json:"range_cutoff,omitempty"` // <= 0 means use the scan's range_max
	ProjectToWorld *bool    `json:"project_to_world,omitempty"`

	// Dispatch params
	QueueDepth    *int    `json:"queue_depth,omitempty"`
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "10s"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySelectorConfig returns a SelectorConfig with all fields unset.
func EmptySelectorConfig() *SelectorConfig {
	return &SelectorConfig{}
}

// DefaultSelectorConfig returns a SelectorConfig with every field populated
// from the built-in defaults.
func DefaultSelectorConfig() *SelectorConfig {
	return &SelectorConfig{
		AngleWeight:    ptrFloat64(1.0),
		CostModel:      ptrString(CostModelCompat),
		RangeCutoff:    ptrFloat64(0),
		ProjectToWorld: ptrBool(false),
		QueueDepth:     ptrInt(64),
		StatsInterval:  ptrString("10s"),
	}
}

// LoadSelectorConfig loads a SelectorConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSelectorConfig(path string) (*SelectorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySelectorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *SelectorConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSelectorConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *SelectorConfig) Validate() error {
	if c.AngleWeight != nil {
		w := *c.AngleWeight
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("angle_weight must be a finite non-negative number, got %v", w)
		}
	}

	if c.CostModel != nil {
		switch *c.CostModel {
		case CostModelCompat, CostModelCorrected:
		default:
			return fmt.Errorf("cost_model must be %q or %q, got %q", CostModelCompat, CostModelCorrected, *c.CostModel)
		}
	}

	if c.RangeCutoff != nil && math.IsNaN(*c.RangeCutoff) {
		return fmt.Errorf("range_cutoff must be a number")
	}

	if c.QueueDepth != nil && *c.QueueDepth < 0 {
		return fmt.Errorf("queue_depth must be non-negative, got %d", *c.QueueDepth)
	}

	if c.StatsInterval != nil && *c.StatsInterval != "" {
		if _, err := time.ParseDuration(*c.StatsInterval); err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
	}

	return nil
}

// GetAngleWeight returns the angle_weight value or the default.
func (c *SelectorConfig) GetAngleWeight() float64 {
	if c.AngleWeight == nil {
		return 1.0 // default
	}
	return *c.AngleWeight
}

// GetCostModel returns the cost_model value or the default.
func (c *SelectorConfig) GetCostModel() string {
	if c.CostModel == nil || *c.CostModel == "" {
		return CostModelCompat // default
	}
	return *c.CostModel
}

// GetRangeCutoff returns the range_cutoff value or the default (0).
func (c *SelectorConfig) GetRangeCutoff() float64 {
	if c.RangeCutoff == nil {
		return 0
	}
	return *c.RangeCutoff
}

// GetProjectToWorld returns the project_to_world value or the default.
func (c *SelectorConfig) GetProjectToWorld() bool {
	if c.ProjectToWorld == nil {
		return false
	}
	return *c.ProjectToWorld
}

// GetQueueDepth returns the queue_depth value or the default.
func (c *SelectorConfig) GetQueueDepth() int {
	if c.QueueDepth == nil {
		return 64 // default
	}
	return *c.QueueDepth
}

// GetStatsInterval parses and returns StatsInterval as a time.Duration.
func (c *SelectorConfig) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}
