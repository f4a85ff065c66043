package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical planner defaults file.
const DefaultConfigPath = "config/planner.defaults.json"

// PlannerConfig holds the tunable constants of the avoidance planner.
// Every field is optional; the Get* accessors supply the default for any
// field left unset, so partial files are safe.
type PlannerConfig struct {
	// Escape (vehicle inside a zone)
	EscapeDistance *float64 `json:"escape_distance,omitempty" yaml:"escape_distance,omitempty"` // metres

	// Forward-collision repulsion
	RepulsionMinSpeed  *float64 `json:"repulsion_min_speed,omitempty" yaml:"repulsion_min_speed,omitempty"` // m/s, strict
	RepulsionLookahead *float64 `json:"repulsion_lookahead,omitempty" yaml:"repulsion_lookahead,omitempty"` // seconds
	RepulsionMargin    *float64 `json:"repulsion_margin,omitempty" yaml:"repulsion_margin,omitempty"`       // metres
	RepulsionDistance  *float64 `json:"repulsion_distance,omitempty" yaml:"repulsion_distance,omitempty"`   // metres

	// Tangent-orbit avoidance
	BlockingMargin      *float64 `json:"blocking_margin,omitempty" yaml:"blocking_margin,omitempty"`             // metres
	OrbitMultiplier     *float64 `json:"orbit_multiplier,omitempty" yaml:"orbit_multiplier,omitempty"`           // x zone radius
	OrbitOffset         *float64 `json:"orbit_offset,omitempty" yaml:"orbit_offset,omitempty"`                   // radians
	SafetyMultiplier    *float64 `json:"safety_multiplier,omitempty" yaml:"safety_multiplier,omitempty"`         // x zone radius
	CandidatePathMargin *float64 `json:"candidate_path_margin,omitempty" yaml:"candidate_path_margin,omitempty"` // metres

	// Interception
	TargetHorizon *float64 `json:"target_horizon,omitempty" yaml:"target_horizon,omitempty"` // seconds
}

func ptrFloat64(v float64) *float64 { return &v }

// EmptyPlannerConfig returns a PlannerConfig with all fields nil.
func EmptyPlannerConfig() *PlannerConfig {
	return &PlannerConfig{}
}

// DefaultPlannerConfig returns a PlannerConfig with every field populated
// with its default value.
func DefaultPlannerConfig() *PlannerConfig {
	c := EmptyPlannerConfig()
	return &PlannerConfig{
		EscapeDistance:      ptrFloat64(c.GetEscapeDistance()),
		RepulsionMinSpeed:   ptrFloat64(c.GetRepulsionMinSpeed()),
		RepulsionLookahead:  ptrFloat64(c.GetRepulsionLookahead()),
		RepulsionMargin:     ptrFloat64(c.GetRepulsionMargin()),
		RepulsionDistance:   ptrFloat64(c.GetRepulsionDistance()),
		BlockingMargin:      ptrFloat64(c.GetBlockingMargin()),
		OrbitMultiplier:     ptrFloat64(c.GetOrbitMultiplier()),
		OrbitOffset:         ptrFloat64(c.GetOrbitOffset()),
		SafetyMultiplier:    ptrFloat64(c.GetSafetyMultiplier()),
		CandidatePathMargin: ptrFloat64(c.GetCandidatePathMargin()),
		TargetHorizon:       ptrFloat64(c.GetTargetHorizon()),
	}
}

// LoadPlannerConfig loads a PlannerConfig from a JSON or YAML file. The
// format is chosen by extension (.json, .yaml, .yml).
func LoadPlannerConfig(path string) (*PlannerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := EmptyPlannerConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any values set are usable.
func (c *PlannerConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"escape_distance", c.EscapeDistance},
		{"repulsion_lookahead", c.RepulsionLookahead},
		{"repulsion_distance", c.RepulsionDistance},
		{"orbit_multiplier", c.OrbitMultiplier},
		{"orbit_offset", c.OrbitOffset},
		{"safety_multiplier", c.SafetyMultiplier},
	}
	for _, f := range positive {
		if f.v == nil {
			continue
		}
		if !finite(*f.v) || *f.v <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", f.name, *f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"repulsion_min_speed", c.RepulsionMinSpeed},
		{"repulsion_margin", c.RepulsionMargin},
		{"blocking_margin", c.BlockingMargin},
		{"candidate_path_margin", c.CandidatePathMargin},
		{"target_horizon", c.TargetHorizon},
	}
	for _, f := range nonNegative {
		if f.v == nil {
			continue
		}
		if !finite(*f.v) || *f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}

	if c.OrbitOffset != nil && *c.OrbitOffset >= math.Pi {
		return fmt.Errorf("orbit_offset must be below pi radians, got %v", *c.OrbitOffset)
	}
	if c.OrbitMultiplier != nil && *c.OrbitMultiplier <= 1 {
		return fmt.Errorf("orbit_multiplier must be > 1 so the orbit clears the zone, got %v", *c.OrbitMultiplier)
	}

	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// GetEscapeDistance returns the escape_distance value or the default.
func (c *PlannerConfig) GetEscapeDistance() float64 {
	if c.EscapeDistance == nil {
		return 200.0
	}
	return *c.EscapeDistance
}

// GetRepulsionMinSpeed returns the repulsion_min_speed value or the default.
func (c *PlannerConfig) GetRepulsionMinSpeed() float64 {
	if c.RepulsionMinSpeed == nil {
		return 1.0
	}
	return *c.RepulsionMinSpeed
}

// GetRepulsionLookahead returns the repulsion_lookahead value or the default.
func (c *PlannerConfig) GetRepulsionLookahead() float64 {
	if c.RepulsionLookahead == nil {
		return 1.3
	}
	return *c.RepulsionLookahead
}

// GetRepulsionMargin returns the repulsion_margin value or the default.
func (c *PlannerConfig) GetRepulsionMargin() float64 {
	if c.RepulsionMargin == nil {
		return 20.0
	}
	return *c.RepulsionMargin
}

// GetRepulsionDistance returns the repulsion_distance value or the default.
func (c *PlannerConfig) GetRepulsionDistance() float64 {
	if c.RepulsionDistance == nil {
		return 500.0
	}
	return *c.RepulsionDistance
}

// GetBlockingMargin returns the blocking_margin value or the default.
func (c *PlannerConfig) GetBlockingMargin() float64 {
	if c.BlockingMargin == nil {
		return 35.0
	}
	return *c.BlockingMargin
}

// GetOrbitMultiplier returns the orbit_multiplier value or the default.
func (c *PlannerConfig) GetOrbitMultiplier() float64 {
	if c.OrbitMultiplier == nil {
		return 2.5
	}
	return *c.OrbitMultiplier
}

// GetOrbitOffset returns the orbit_offset value or the default.
func (c *PlannerConfig) GetOrbitOffset() float64 {
	if c.OrbitOffset == nil {
		return 1.0
	}
	return *c.OrbitOffset
}

// GetSafetyMultiplier returns the safety_multiplier value or the default.
func (c *PlannerConfig) GetSafetyMultiplier() float64 {
	if c.SafetyMultiplier == nil {
		return 2.2
	}
	return *c.SafetyMultiplier
}

// GetCandidatePathMargin returns the candidate_path_margin value or the default.
func (c *PlannerConfig) GetCandidatePathMargin() float64 {
	if c.CandidatePathMargin == nil {
		return 20.0
	}
	return *c.CandidatePathMargin
}

// GetTargetHorizon returns the target_horizon value or the default.
func (c *PlannerConfig) GetTargetHorizon() float64 {
	if c.TargetHorizon == nil {
		return 3.0
	}
	return *c.TargetHorizon
}
