// Package config loads the engine-wide constants and the per-track policy
// table from TOML, grounded on the teacher's config.Load/toml.DecodeFile
// pattern (config/config.go) generalized from a single global policy
// struct to a table of per-track entries.
package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"

	"assembly/core/types"
	"assembly/curve"
	"assembly/track"
)

// CurveConfig is the TOML representation of a curve.Curve. Kind selects
// which family Build constructs; the remaining fields are interpreted
// according to Kind and otherwise ignored.
type CurveConfig struct {
	Kind    string `toml:"kind"`
	Ceil    uint64 `toml:"ceil"`
	Floor   uint64 `toml:"floor"`
	Factor  uint64 `toml:"factor"`
	XOffset uint64 `toml:"x_offset"`
	YOffset uint64 `toml:"y_offset"`
	Step    uint64 `toml:"step"`
	Period  uint64 `toml:"period"`
}

// Build constructs the curve.Curve described by c.
func (c CurveConfig) Build() (curve.Curve, error) {
	switch c.Kind {
	case "linear_decreasing":
		return curve.LinearDecreasing{Ceil: types.Perbill(c.Ceil), Floor: types.Perbill(c.Floor)}, nil
	case "reciprocal":
		return curve.Reciprocal{
			Factor:  types.Perbill(c.Factor),
			XOffset: types.Perbill(c.XOffset),
			YOffset: types.Perbill(c.YOffset),
		}, nil
	case "stepped_decreasing":
		return curve.SteppedDecreasing{Step: types.Perbill(c.Step), Period: types.Perbill(c.Period)}, nil
	default:
		return nil, fmt.Errorf("config: unknown curve kind %q", c.Kind)
	}
}

// TrackConfig is the TOML representation of one track.Info entry, keyed by
// the dispatch origin string that classifies into it.
type TrackConfig struct {
	ID                 uint16      `toml:"id"`
	Name               string      `toml:"name"`
	Origin             string      `toml:"origin"`
	MaxDeciding        uint32      `toml:"max_deciding"`
	DecisionDeposit    uint64      `toml:"decision_deposit"`
	PreparePeriod      uint64      `toml:"prepare_period"`
	DecisionPeriod     uint64      `toml:"decision_period"`
	ConfirmPeriod      uint64      `toml:"confirm_period"`
	MinEnactmentPeriod uint64      `toml:"min_enactment_period"`
	MaxQueued          uint32      `toml:"max_queued"`
	MinApproval        CurveConfig `toml:"min_approval"`
	MinSupport         CurveConfig `toml:"min_support"`
}

// EngineConfig is the complete TOML-loaded configuration: the engine-wide
// constants of spec.md §6 plus the per-track policy table.
type EngineConfig struct {
	SubmissionDeposit string        `toml:"submission_deposit"`
	UndecidingTimeout uint64        `toml:"undeciding_timeout"`
	AlarmInterval     uint64        `toml:"alarm_interval"`
	Tracks            []TrackConfig `toml:"tracks"`
}

// Load reads and validates an EngineConfig from path.
func Load(path string) (*EngineConfig, error) {
	cfg := &EngineConfig{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in TOML form, matching the teacher's round-trip
// support in config.Load/createDefault.
func Save(cfg *EngineConfig, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// SubmissionDepositAmount parses the configured decimal submission deposit.
func (c *EngineConfig) SubmissionDepositAmount() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(c.SubmissionDeposit, 10)
	if !ok {
		return nil, fmt.Errorf("config: invalid submission_deposit %q", c.SubmissionDeposit)
	}
	return amount, nil
}

// BuildRegistry constructs an immutable track.Static registry from the
// configured track table.
func (c *EngineConfig) BuildRegistry() (*track.Static, error) {
	tracks := make(map[track.Id]track.Info, len(c.Tracks))
	order := make([]track.Id, 0, len(c.Tracks))
	origins := make(map[string]track.Id, len(c.Tracks))

	for _, t := range c.Tracks {
		approval, err := t.MinApproval.Build()
		if err != nil {
			return nil, fmt.Errorf("config: track %q min_approval: %w", t.Name, err)
		}
		support, err := t.MinSupport.Build()
		if err != nil {
			return nil, fmt.Errorf("config: track %q min_support: %w", t.Name, err)
		}
		id := track.Id(t.ID)
		tracks[id] = track.Info{
			Name:               t.Name,
			MaxDeciding:        t.MaxDeciding,
			DecisionDeposit:    t.DecisionDeposit,
			PreparePeriod:      types.BlockNumber(t.PreparePeriod),
			DecisionPeriod:     types.BlockNumber(t.DecisionPeriod),
			ConfirmPeriod:      types.BlockNumber(t.ConfirmPeriod),
			MinEnactmentPeriod: types.BlockNumber(t.MinEnactmentPeriod),
			MinApproval:        approval,
			MinSupport:         support,
			MaxQueued:          t.MaxQueued,
		}
		order = append(order, id)
		origins[t.Origin] = id
	}
	return track.NewStatic(tracks, order, origins), nil
}
