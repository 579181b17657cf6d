// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kratos-chain/kratos/common"
)

// Validator-credit window constants. Windows are measured in epochs
// (one epoch per hour of chain time).
const (
	EpochsPerDay   uint64 = 24
	EpochsPerMonth uint64 = 720
	EpochsPerYear  uint64 = 8_760

	maxVotesPerDay          uint32  = 3
	maxVotesPerMonth        uint32  = 50
	maxArbitrationsPerYear  uint32  = 5
	minParticipationForVote float64 = 0.95
)

// BootstrapVCMultiplier is the reward multiplier applied to credits earned
// during the bootstrap era.
const BootstrapVCMultiplier uint32 = 2

// ValidatorCreditsRecord is the per-validator credit ledger entry.
type ValidatorCreditsRecord struct {
	VoteCredits        uint32
	UptimeCredits      uint32
	ArbitrationCredits uint32
	SeniorityCredits   uint32

	VotesToday           uint32
	VotesThisMonth       uint32
	ArbitrationsThisYear uint32

	LastDailyResetEpoch   common.EpochNumber
	LastMonthlyResetEpoch common.EpochNumber
	LastYearlyResetEpoch  common.EpochNumber

	ActiveEpochs             uint32
	ActivationBlock          common.BlockNumber
	LastSeniorityCreditEpoch common.EpochNumber
}

// TotalVC sums the four credit categories.
func (r *ValidatorCreditsRecord) TotalVC() uint64 {
	return uint64(r.VoteCredits) + uint64(r.UptimeCredits) + uint64(r.ArbitrationCredits) + uint64(r.SeniorityCredits)
}

func (r *ValidatorCreditsRecord) maybeResetDaily(epoch common.EpochNumber) {
	if uint64(epoch) >= uint64(r.LastDailyResetEpoch)+EpochsPerDay {
		r.VotesToday = 0
		r.LastDailyResetEpoch = epoch
	}
}

func (r *ValidatorCreditsRecord) maybeResetMonthly(epoch common.EpochNumber) {
	if uint64(epoch) >= uint64(r.LastMonthlyResetEpoch)+EpochsPerMonth {
		r.VotesThisMonth = 0
		r.LastMonthlyResetEpoch = epoch
	}
}

func (r *ValidatorCreditsRecord) maybeResetYearly(epoch common.EpochNumber) {
	if uint64(epoch) >= uint64(r.LastYearlyResetEpoch)+EpochsPerYear {
		r.ArbitrationsThisYear = 0
		r.LastYearlyResetEpoch = epoch
	}
}

// VCLedger tracks validator-credit accrual across four categories with
// anti-spam windows. Windows are reset lazily whenever a credit operation
// consults them, never by a background sweep.
type VCLedger struct {
	mu      sync.Mutex
	records map[common.AccountId]*ValidatorCreditsRecord
}

// NewVCLedger constructs an empty ledger.
func NewVCLedger() *VCLedger {
	return &VCLedger{records: make(map[common.AccountId]*ValidatorCreditsRecord)}
}

// InitializeValidator creates a fresh credits record for id if one does
// not already exist.
func (l *VCLedger) InitializeValidator(id common.AccountId, currentEpoch common.EpochNumber, activationBlock common.BlockNumber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[id]; ok {
		return
	}
	l.records[id] = &ValidatorCreditsRecord{
		LastDailyResetEpoch:      currentEpoch,
		LastMonthlyResetEpoch:    currentEpoch,
		LastYearlyResetEpoch:     currentEpoch,
		ActivationBlock:          activationBlock,
		LastSeniorityCreditEpoch: currentEpoch,
	}
}

// Restore installs a previously persisted credits record for id,
// overwriting any existing entry. Used when rebuilding the ledger from a
// checkpoint at startup.
func (l *VCLedger) Restore(id common.AccountId, record ValidatorCreditsRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := record
	l.records[id] = &cp
}

// Get returns a copy of id's credits record.
func (l *VCLedger) Get(id common.AccountId) (ValidatorCreditsRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return ValidatorCreditsRecord{}, false
	}
	return *r, true
}

// AddVoteCredit grants one vote credit to id, subject to the daily/monthly
// anti-spam windows, scaled by multiplier (1 outside the bootstrap era,
// BootstrapVCMultiplier within it). Hitting a window limit is not an
// error: the credit is silently withheld and the call reports false.
func (l *VCLedger) AddVoteCredit(id common.AccountId, currentEpoch common.EpochNumber, multiplier uint32) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[id]
	if !ok {
		return false, wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	r.maybeResetDaily(currentEpoch)
	r.maybeResetMonthly(currentEpoch)

	if r.VotesToday >= maxVotesPerDay || r.VotesThisMonth >= maxVotesPerMonth {
		return false, nil
	}

	r.VoteCredits = common.SaturatingAddU32(r.VoteCredits, multiplier)
	r.VotesToday++
	r.VotesThisMonth++
	return true, nil
}

// AddUptimeCredit grants an uptime credit to id provided its observed
// participation rate meets minParticipationForVote; below the threshold
// the credit is withheld and the call reports false.
func (l *VCLedger) AddUptimeCredit(id common.AccountId, participationRate float64, multiplier uint32) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[id]
	if !ok {
		return false, wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	if participationRate < minParticipationForVote {
		return false, nil
	}
	r.UptimeCredits = common.SaturatingAddU32(r.UptimeCredits, multiplier)
	return true, nil
}

// AddArbitrationCredit grants 5 arbitration credits to id, subject to the
// yearly anti-spam window; past the yearly limit the credit is withheld
// and the call reports false. The multiplier argument does not scale this
// grant.
func (l *VCLedger) AddArbitrationCredit(id common.AccountId, currentEpoch common.EpochNumber, multiplier uint32) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[id]
	if !ok {
		return false, wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	r.maybeResetYearly(currentEpoch)

	if r.ArbitrationsThisYear >= maxArbitrationsPerYear {
		return false, nil
	}
	r.ArbitrationCredits = common.SaturatingAddU32(r.ArbitrationCredits, 5)
	r.ArbitrationsThisYear++
	return true, nil
}

// AddSeniorityCredit grants 5 seniority credits to id once per month of
// continuous activation; within the month window the credit is withheld
// and the call reports false. The multiplier argument does not scale this
// grant.
func (l *VCLedger) AddSeniorityCredit(id common.AccountId, currentEpoch common.EpochNumber, multiplier uint32) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[id]
	if !ok {
		return false, wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	if uint64(currentEpoch) < uint64(r.LastSeniorityCreditEpoch)+EpochsPerMonth {
		return false, nil
	}
	r.SeniorityCredits = common.SaturatingAddU32(r.SeniorityCredits, 5)
	r.ActiveEpochs = common.SaturatingAddU32(r.ActiveEpochs, uint32(EpochsPerMonth))
	r.LastSeniorityCreditEpoch = currentEpoch
	return true, nil
}

// UpdateAllSeniority applies AddSeniorityCredit across every tracked
// validator, intended to run as an epoch-boundary maintenance batch.
func (l *VCLedger) UpdateAllSeniority(currentEpoch common.EpochNumber, bootstrapMultiplier func(common.AccountId) uint32) {
	l.mu.Lock()
	ids := make([]common.AccountId, 0, len(l.records))
	for id := range l.records {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	for _, id := range ids {
		mult := uint32(1)
		if bootstrapMultiplier != nil {
			mult = bootstrapMultiplier(id)
		}
		if _, err := l.AddSeniorityCredit(id, currentEpoch, mult); err != nil {
			log.Debug("seniority credit skipped", "validator", id.ShortString(), "err", err)
		}
	}
}

// ApplySlash mutates the four credit categories on id per the proportional
// split supplied by the slashing engine, with any residual already folded
// into the category amounts by the caller.
func (l *VCLedger) ApplySlash(id common.AccountId, voteDelta, uptimeDelta, arbitrationDelta, seniorityDelta uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return
	}
	r.VoteCredits = common.SaturatingSubU32(r.VoteCredits, voteDelta)
	r.UptimeCredits = common.SaturatingSubU32(r.UptimeCredits, uptimeDelta)
	r.ArbitrationCredits = common.SaturatingSubU32(r.ArbitrationCredits, arbitrationDelta)
	r.SeniorityCredits = common.SaturatingSubU32(r.SeniorityCredits, seniorityDelta)
}

// ApplyDecay mutates the four credit categories on id per the decay
// engine's proportional split (no residual redistribution, unlike
// ApplySlash).
func (l *VCLedger) ApplyDecay(id common.AccountId, voteDelta, uptimeDelta, arbitrationDelta, seniorityDelta uint32) {
	l.ApplySlash(id, voteDelta, uptimeDelta, arbitrationDelta, seniorityDelta)
}
