// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"sync"

	"github.com/kratos-chain/kratos/common"
)

// Decay constants. A fully inactive quarter costs 10% of total VC, down
// to a floor of MinVCThreshold.
const (
	DecayRate        float64 = 0.10
	EpochsPerQuarter uint64  = 13
	MinVCThreshold   uint64  = 1
)

// ActivityTracker records whether a validator has performed any
// VC-earning activity during the current quarter. Inactivity across an
// entire quarter triggers decay.
type ActivityTracker struct {
	ValidatorId       common.AccountId
	LastActivityEpoch common.EpochNumber
	HasGovernanceVote bool
	HasUptimeCredit   bool
	HasArbitration    bool
	LastDecayQuarter  uint64
	QuarterStartEpoch common.EpochNumber
}

// IsInactive reports whether none of the quarter's activity flags are set.
func (t *ActivityTracker) IsInactive() bool {
	return !t.HasGovernanceVote && !t.HasUptimeCredit && !t.HasArbitration
}

func (t *ActivityTracker) resetQuarter() {
	t.HasGovernanceVote = false
	t.HasUptimeCredit = false
	t.HasArbitration = false
}

// DecayEngine applies quarterly inactivity decay to validator credits.
type DecayEngine struct {
	mu       sync.Mutex
	trackers map[common.AccountId]*ActivityTracker
}

// NewDecayEngine constructs an empty decay engine.
func NewDecayEngine() *DecayEngine {
	return &DecayEngine{trackers: make(map[common.AccountId]*ActivityTracker)}
}

// InitializeValidator creates a fresh activity tracker for id.
func (d *DecayEngine) InitializeValidator(id common.AccountId, currentEpoch common.EpochNumber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.trackers[id]; ok {
		return
	}
	d.trackers[id] = &ActivityTracker{
		ValidatorId:       id,
		LastActivityEpoch: currentEpoch,
		QuarterStartEpoch: currentEpoch,
		LastDecayQuarter:  uint64(currentEpoch) / EpochsPerQuarter,
	}
}

func (d *DecayEngine) tracker(id common.AccountId) (*ActivityTracker, error) {
	t, ok := d.trackers[id]
	if !ok {
		return nil, wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	return t, nil
}

// RecordGovernanceVote marks id as active this quarter via a governance
// vote.
func (d *DecayEngine) RecordGovernanceVote(id common.AccountId, currentEpoch common.EpochNumber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.tracker(id)
	if err != nil {
		return err
	}
	t.HasGovernanceVote = true
	t.LastActivityEpoch = currentEpoch
	return nil
}

// RecordUptimeCredit marks id as active this quarter via an uptime
// credit.
func (d *DecayEngine) RecordUptimeCredit(id common.AccountId, currentEpoch common.EpochNumber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.tracker(id)
	if err != nil {
		return err
	}
	t.HasUptimeCredit = true
	t.LastActivityEpoch = currentEpoch
	return nil
}

// RecordArbitration marks id as active this quarter via arbitration
// participation.
func (d *DecayEngine) RecordArbitration(id common.AccountId, currentEpoch common.EpochNumber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.tracker(id)
	if err != nil {
		return err
	}
	t.HasArbitration = true
	t.LastActivityEpoch = currentEpoch
	return nil
}

// ApplyDecayIfNeeded checks whether id has entered a new quarter since its
// last decay and, if so and the validator was inactive throughout the
// prior quarter, computes a proportional decay of currentVC. It always
// advances the tracker's quarter bookkeeping and resets activity flags
// when a new quarter has begun, regardless of whether decay was actually
// applied.
// Returns (applied, delta); delta is the amount to subtract from each
// category, with no residual redistribution (unlike slashing).
func (d *DecayEngine) ApplyDecayIfNeeded(id common.AccountId, currentEpoch common.EpochNumber, currentVC VCCategoryAmounts) (bool, VCCategoryAmounts, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tracker(id)
	if err != nil {
		return false, VCCategoryAmounts{}, err
	}

	currentQuarter := uint64(currentEpoch) / EpochsPerQuarter
	if currentQuarter <= t.LastDecayQuarter {
		return false, VCCategoryAmounts{}, nil
	}

	totalVC := uint64(currentVC.Vote) + uint64(currentVC.Uptime) + uint64(currentVC.Arbitration) + uint64(currentVC.Seniority)

	var delta VCCategoryAmounts
	applied := false
	if t.IsInactive() && totalVC > MinVCThreshold {
		decayAmount := totalVC / 10
		if decayAmount < 1 {
			decayAmount = 1
		}
		delta = applyProportionalDecay(currentVC, totalVC, decayAmount)
		applied = true
	}

	t.LastDecayQuarter = currentQuarter
	t.QuarterStartEpoch = currentEpoch
	t.resetQuarter()

	return applied, delta, nil
}

// applyProportionalDecay splits decayAmount across the four categories by
// integer division only, with no residual top-up. Decay need not be exact
// to the unit, unlike the slashing engine's residual-to-largest-category
// rule.
func applyProportionalDecay(current VCCategoryAmounts, totalVC, decayAmount uint64) VCCategoryAmounts {
	if totalVC == 0 || decayAmount == 0 {
		return VCCategoryAmounts{}
	}
	return VCCategoryAmounts{
		Vote:        capDelta(current.Vote, uint64(current.Vote)*decayAmount/totalVC),
		Uptime:      capDelta(current.Uptime, uint64(current.Uptime)*decayAmount/totalVC),
		Arbitration: capDelta(current.Arbitration, uint64(current.Arbitration)*decayAmount/totalVC),
		Seniority:   capDelta(current.Seniority, uint64(current.Seniority)*decayAmount/totalVC),
	}
}
