package config

import "fmt"

// MinDecisionPeriod guards against a misconfigured track that could never
// give voters a meaningful window to move the tally.
var MinDecisionPeriod = uint64(1)

// Validate checks an EngineConfig for internal consistency, grounded on the
// teacher's ValidateConfig bound/threshold checks.
func Validate(cfg *EngineConfig) error {
	if _, err := cfg.SubmissionDepositAmount(); err != nil {
		return err
	}
	if cfg.UndecidingTimeout == 0 {
		return fmt.Errorf("config: undeciding_timeout must be > 0")
	}
	if cfg.AlarmInterval == 0 {
		return fmt.Errorf("config: alarm_interval must be > 0")
	}
	if len(cfg.Tracks) == 0 {
		return fmt.Errorf("config: at least one track is required")
	}

	seenIDs := make(map[uint16]bool, len(cfg.Tracks))
	seenOrigins := make(map[string]bool, len(cfg.Tracks))
	for _, t := range cfg.Tracks {
		if t.Name == "" {
			return fmt.Errorf("config: track %d: name must not be empty", t.ID)
		}
		if seenIDs[t.ID] {
			return fmt.Errorf("config: duplicate track id %d", t.ID)
		}
		seenIDs[t.ID] = true

		if t.Origin == "" {
			return fmt.Errorf("config: track %q: origin must not be empty", t.Name)
		}
		if seenOrigins[t.Origin] {
			return fmt.Errorf("config: duplicate track origin %q", t.Origin)
		}
		seenOrigins[t.Origin] = true

		if t.MaxDeciding == 0 {
			return fmt.Errorf("config: track %q: max_deciding must be > 0", t.Name)
		}
		if t.DecisionPeriod < MinDecisionPeriod {
			return fmt.Errorf("config: track %q: decision_period too small", t.Name)
		}
		if t.PreparePeriod == 0 {
			return fmt.Errorf("config: track %q: prepare_period must be > 0", t.Name)
		}
		if t.MaxQueued == 0 {
			return fmt.Errorf("config: track %q: max_queued must be > 0", t.Name)
		}
		if _, err := t.MinApproval.Build(); err != nil {
			return fmt.Errorf("config: track %q: min_approval: %w", t.Name, err)
		}
		if _, err := t.MinSupport.Build(); err != nil {
			return fmt.Errorf("config: track %q: min_support: %w", t.Name, err)
		}
	}
	return nil
}
