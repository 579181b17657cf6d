// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import "github.com/kratos-chain/kratos/common"

// ValidatorSnapshot is a read-only observability view of a validator,
// combining registry, credit, and slashing state. Score is derived purely
// for observability and never feeds back into VRF selection weight.
type ValidatorSnapshot struct {
	Id             common.AccountId
	Stake          common.Balance
	BlocksProduced uint64
	Status         ValidatorStatus
	TotalVC        uint64
	SlashCount     int
	InCooldown     bool
	Score          float64
}

// BuildSnapshot assembles a ValidatorSnapshot for id from the registry,
// ledger, and slashing engine.
func BuildSnapshot(id common.AccountId, registry *ValidatorRegistry, ledger *VCLedger, slasher *SlashingEngine, currentEpoch common.EpochNumber) (ValidatorSnapshot, bool) {
	info, ok := registry.Get(id)
	if !ok {
		return ValidatorSnapshot{}, false
	}
	record, _ := ledger.Get(id)
	slashes := slasher.GetValidatorSlashes(id)

	snap := ValidatorSnapshot{
		Id:             id,
		Stake:          info.Stake,
		BlocksProduced: info.BlocksProduced,
		Status:         info.Status,
		TotalVC:        record.TotalVC(),
		SlashCount:     len(slashes),
		InCooldown:     slasher.IsInCooldown(id, currentEpoch),
	}
	snap.Score = scoreFromSnapshot(snap)
	return snap, true
}

// scoreFromSnapshot derives a simple [0,1] performance score: a heavy
// penalty for any slash history or active cooldown, a smaller one for an
// empty credit record.
func scoreFromSnapshot(s ValidatorSnapshot) float64 {
	score := 1.0
	if s.SlashCount > 0 {
		score *= 0.5
	}
	if s.InCooldown {
		score *= 0.1
	}
	if s.TotalVC == 0 {
		score *= 0.5
	}
	return score
}
