package reconcile

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/spigell/pf-reconciler/internal/classify"
	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/identity"
	"github.com/spigell/pf-reconciler/internal/interval"
	"github.com/spigell/pf-reconciler/internal/screening"
)

// Config is the policy of one engine. It is supplied by the caller; the
// engine never reads the environment.
type Config struct {
	// IdentityThreshold separates "same employer" from "different employer".
	IdentityThreshold float64 `mapstructure:"identity-threshold" json:"identity_threshold"`
	// AcceptanceFloor is the lowest confidence an edge may have to be paired.
	AcceptanceFloor        float64 `mapstructure:"acceptance-floor" json:"acceptance_floor"`
	AdjacencyToleranceDays int     `mapstructure:"adjacency-tolerance-days" json:"adjacency_tolerance_days"`
	IdentityWeight         float64 `mapstructure:"identity-weight" json:"identity_weight"`
	OverlapWeight          float64 `mapstructure:"overlap-weight" json:"overlap_weight"`

	ConfirmedConfidence float64 `mapstructure:"confirmed-confidence" json:"confirmed_confidence"`
	ConfirmedOverlap    float64 `mapstructure:"confirmed-overlap" json:"confirmed_overlap"`
	PartialConfidence   float64 `mapstructure:"partial-confidence" json:"partial_confidence"`

	// Workers bounds parallel pair scoring. Zero means one per CPU.
	Workers int `mapstructure:"workers" json:"-"`
	// AsOf closes ongoing periods for duration math. When unknown, the latest
	// concrete day found in the input is used.
	AsOf employment.Date `mapstructure:"-" json:"as_of,omitempty"`
	// DisabledSteps names optional screening steps to skip. Only
	// employer_identity may be disabled.
	DisabledSteps []string `mapstructure:"disabled-steps" json:"disabled_steps,omitempty"`
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	cls := classify.DefaultConfig()
	return Config{
		IdentityThreshold:      identity.DefaultThreshold,
		AcceptanceFloor:        0.3,
		AdjacencyToleranceDays: interval.DefaultToleranceDays,
		IdentityWeight:         0.6,
		OverlapWeight:          0.4,
		ConfirmedConfidence:    cls.ConfirmedConfidence,
		ConfirmedOverlap:       cls.ConfirmedOverlap,
		PartialConfidence:      cls.PartialConfidence,
	}
}

// Validate rejects configurations the engine cannot honour.
func (c Config) Validate() error {
	unit := []struct {
		name  string
		value float64
	}{
		{"identity-threshold", c.IdentityThreshold},
		{"acceptance-floor", c.AcceptanceFloor},
		{"identity-weight", c.IdentityWeight},
		{"overlap-weight", c.OverlapWeight},
	}
	for _, u := range unit {
		if math.IsNaN(u.value) || u.value < 0 || u.value > 1 {
			return employment.NewInputError("config."+u.name, fmt.Sprintf("must be within [0,1], got %v", u.value))
		}
	}

	if err := c.classifier().Validate(); err != nil {
		var inputErr *employment.InputError
		if errors.As(err, &inputErr) {
			return employment.NewInputError("config."+inputErr.Field, inputErr.Reason)
		}
		return err
	}

	if math.Abs(c.IdentityWeight+c.OverlapWeight-1) > 1e-9 {
		return employment.NewInputError("config.identity-weight",
			fmt.Sprintf("identity and overlap weights must sum to 1, got %v", c.IdentityWeight+c.OverlapWeight))
	}
	if c.AdjacencyToleranceDays < 0 {
		return employment.NewInputError("config.adjacency-tolerance-days", "must not be negative")
	}
	if c.Workers < 0 {
		return employment.NewInputError("config.workers", "must not be negative")
	}
	for _, name := range c.DisabledSteps {
		if err := screening.CheckDisable(name); err != nil {
			return employment.NewInputError("config.disabled-steps", err.Error())
		}
	}

	return nil
}

func (c Config) classifier() classify.Config {
	return classify.Config{
		ConfirmedConfidence: c.ConfirmedConfidence,
		ConfirmedOverlap:    c.ConfirmedOverlap,
		PartialConfidence:   c.PartialConfidence,
	}
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
