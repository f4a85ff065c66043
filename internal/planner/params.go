package planner

import (
	"fmt"

	"github.com/Tahakcygt/HSS-ka/internal/config"
)

// Params holds the planner constants. Distances are metres, times seconds,
// angles radians.
type Params struct {
	EscapeDistance float64

	RepulsionMinSpeed  float64 // speed must be strictly above this
	RepulsionLookahead float64
	RepulsionMargin    float64
	RepulsionDistance  float64

	BlockingMargin      float64
	OrbitMultiplier     float64
	OrbitOffset         float64
	SafetyMultiplier    float64
	CandidatePathMargin float64

	TargetHorizon float64
}

// DefaultParams returns the built-in planner constants.
func DefaultParams() Params {
	return ParamsFromConfig(config.DefaultPlannerConfig())
}

// ParamsFromConfig converts a tuning config into Params. Unset fields take
// their defaults.
func ParamsFromConfig(cfg *config.PlannerConfig) Params {
	if cfg == nil {
		cfg = config.EmptyPlannerConfig()
	}
	return Params{
		EscapeDistance:      cfg.GetEscapeDistance(),
		RepulsionMinSpeed:   cfg.GetRepulsionMinSpeed(),
		RepulsionLookahead:  cfg.GetRepulsionLookahead(),
		RepulsionMargin:     cfg.GetRepulsionMargin(),
		RepulsionDistance:   cfg.GetRepulsionDistance(),
		BlockingMargin:      cfg.GetBlockingMargin(),
		OrbitMultiplier:     cfg.GetOrbitMultiplier(),
		OrbitOffset:         cfg.GetOrbitOffset(),
		SafetyMultiplier:    cfg.GetSafetyMultiplier(),
		CandidatePathMargin: cfg.GetCandidatePathMargin(),
		TargetHorizon:       cfg.GetTargetHorizon(),
	}
}

// Config returns p as a fully populated tuning config.
func (p Params) Config() *config.PlannerConfig {
	return &config.PlannerConfig{
		EscapeDistance:      &p.EscapeDistance,
		RepulsionMinSpeed:   &p.RepulsionMinSpeed,
		RepulsionLookahead:  &p.RepulsionLookahead,
		RepulsionMargin:     &p.RepulsionMargin,
		RepulsionDistance:   &p.RepulsionDistance,
		BlockingMargin:      &p.BlockingMargin,
		OrbitMultiplier:     &p.OrbitMultiplier,
		OrbitOffset:         &p.OrbitOffset,
		SafetyMultiplier:    &p.SafetyMultiplier,
		CandidatePathMargin: &p.CandidatePathMargin,
		TargetHorizon:       &p.TargetHorizon,
	}
}

// Validate applies the tuning-file rules to p.
func (p Params) Validate() error {
	if err := p.Config().Validate(); err != nil {
		return fmt.Errorf("planner params: %w", err)
	}
	return nil
}
