// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"errors"
	"testing"

	"github.com/kratos-chain/kratos/common"
)

func testAccount(b byte) common.AccountId {
	var id common.AccountId
	id[0] = b
	return id
}

func TestRegisterCandidateRejectsBelowMinStake(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	err := r.RegisterCandidate(testAccount(1), common.KRAT(1), false, 0)
	if !errors.Is(err, ErrInsufficientStake) {
		t.Errorf("RegisterCandidate with sub-minimum stake = %v, want ErrInsufficientStake", err)
	}
}

func TestRegisterCandidateTracksTotalStake(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	a, b := testAccount(1), testAccount(2)
	if err := r.RegisterCandidate(a, MinValidatorStake(), false, 0); err != nil {
		t.Fatalf("RegisterCandidate(a): %v", err)
	}
	if err := r.RegisterCandidate(b, MinValidatorStake(), false, 0); err != nil {
		t.Fatalf("RegisterCandidate(b): %v", err)
	}

	want := MinValidatorStake().Add(MinValidatorStake())
	if got := r.TotalStake(); got.Cmp(want) != 0 {
		t.Errorf("TotalStake() = %s, want %s", got, want)
	}
}

func TestActivateCandidacyExpiryRemovesStake(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	a := testAccount(1)
	if err := r.RegisterCandidate(a, MinValidatorStake(), false, 0); err != nil {
		t.Fatalf("RegisterCandidate: %v", err)
	}

	err := r.Activate(a, common.BlockNumber(CandidacyExpiration+1))
	if !errors.Is(err, ErrCandidacyExpired) {
		t.Errorf("Activate past expiry = %v, want ErrCandidacyExpired", err)
	}
	if _, ok := r.Get(a); ok {
		t.Errorf("expired candidate still present in registry")
	}
	if !r.TotalStake().IsZero() {
		t.Errorf("TotalStake() = %s, want 0 after expired candidate purge", r.TotalStake())
	}
}

func TestAddStakeAndSlashStakeUpdateTotal(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	a := testAccount(1)
	if err := r.RegisterCandidate(a, MinValidatorStake(), false, 0); err != nil {
		t.Fatalf("RegisterCandidate: %v", err)
	}

	if err := r.AddStake(a, common.KRAT(1_000)); err != nil {
		t.Fatalf("AddStake: %v", err)
	}
	want := MinValidatorStake().Add(common.KRAT(1_000))
	if got := r.TotalStake(); got.Cmp(want) != 0 {
		t.Errorf("TotalStake() after AddStake = %s, want %s", got, want)
	}

	if err := r.SlashStake(a, common.KRAT(500)); err != nil {
		t.Fatalf("SlashStake: %v", err)
	}
	want = want.Sub(common.KRAT(500))
	if got := r.TotalStake(); got.Cmp(want) != 0 {
		t.Errorf("TotalStake() after SlashStake = %s, want %s", got, want)
	}

	if err := r.AddStake(testAccount(99), common.KRAT(1)); !errors.Is(err, ErrValidatorNotFound) {
		t.Errorf("AddStake on unknown account = %v, want ErrValidatorNotFound", err)
	}
}

// TestUnbondingLifecycle covers the full unbonding lifecycle: a partial
// StartUnbonding, an early WithdrawUnbonded failing not-ready, and a
// post-maturity WithdrawUnbonded releasing exactly the requested amount.
func TestUnbondingLifecycle(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	v := testAccount(1)
	stake := MinValidatorStake().Add(common.KRAT(1_000))
	if err := r.RegisterCandidate(v, stake, false, 0); err != nil {
		t.Fatalf("RegisterCandidate: %v", err)
	}
	if err := r.Activate(v, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	amount := common.KRAT(1_000)
	if err := r.StartUnbonding(v, amount, 0); err != nil {
		t.Fatalf("StartUnbonding: %v", err)
	}

	// the unbonded amount leaves the validator's stake and the registry
	// total immediately, even though the validator remains active.
	info, _ := r.Get(v)
	if info.Stake.Cmp(MinValidatorStake()) != 0 {
		t.Errorf("validator stake after StartUnbonding = %s, want %s", info.Stake, MinValidatorStake())
	}
	if !r.IsActive(v) {
		t.Errorf("validator should remain active during unbonding")
	}
	if got := r.TotalStake(); got.Cmp(MinValidatorStake()) != 0 {
		t.Errorf("TotalStake() after StartUnbonding = %s, want %s", got, MinValidatorStake())
	}

	if err := r.StartUnbonding(v, common.KRAT(1), 0); !errors.Is(err, ErrUnbondingAlreadyActive) {
		t.Errorf("second StartUnbonding = %v, want ErrUnbondingAlreadyActive", err)
	}

	readyAt := common.BlockNumber(UnbondingPeriodBlocks)
	if _, err := r.WithdrawUnbonded(v, readyAt-1); !errors.Is(err, ErrUnbondingNotReady) {
		t.Errorf("WithdrawUnbonded before maturity = %v, want ErrUnbondingNotReady", err)
	}

	released, err := r.WithdrawUnbonded(v, readyAt)
	if err != nil {
		t.Fatalf("WithdrawUnbonded at maturity: %v", err)
	}
	if released.Cmp(amount) != 0 {
		t.Errorf("WithdrawUnbonded amount = %s, want %s", released, amount)
	}

	if _, err := r.WithdrawUnbonded(v, readyAt); !errors.Is(err, ErrNoUnbondingRequest) {
		t.Errorf("repeat WithdrawUnbonded = %v, want ErrNoUnbondingRequest", err)
	}
}

func TestFinalizeUnbondingReleasesMaturedRequestsOnly(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	a, b := testAccount(1), testAccount(2)
	stake := MinValidatorStake().Add(common.KRAT(1_000))
	for _, id := range []common.AccountId{a, b} {
		if err := r.RegisterCandidate(id, stake, false, 0); err != nil {
			t.Fatalf("RegisterCandidate: %v", err)
		}
		if err := r.Activate(id, 0); err != nil {
			t.Fatalf("Activate: %v", err)
		}
	}

	if err := r.StartUnbonding(a, common.KRAT(100), 0); err != nil {
		t.Fatalf("StartUnbonding(a): %v", err)
	}
	if err := r.StartUnbonding(b, common.KRAT(200), 500); err != nil {
		t.Fatalf("StartUnbonding(b): %v", err)
	}

	released := r.FinalizeUnbonding(common.BlockNumber(UnbondingPeriodBlocks))
	if len(released) != 1 {
		t.Fatalf("FinalizeUnbonding at a's maturity released %d requests, want 1", len(released))
	}
	if released[0].ValidatorId != a {
		t.Errorf("FinalizeUnbonding released validator %x, want a", released[0].ValidatorId)
	}

	released = r.FinalizeUnbonding(common.BlockNumber(UnbondingPeriodBlocks) + 500)
	if len(released) != 1 || released[0].ValidatorId != b {
		t.Errorf("FinalizeUnbonding at b's maturity released %v, want [b]", released)
	}
}

func TestEnforceBootstrapGraceEvictsUnderStakedValidators(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	zeroStake, toppedUp, staked := testAccount(1), testAccount(2), testAccount(3)
	r.ActivateGenesisValidator(zeroStake, common.ZeroBalance, true)
	r.ActivateGenesisValidator(toppedUp, common.ZeroBalance, true)
	r.ActivateGenesisValidator(staked, MinValidatorStake(), false)

	if err := r.AddStake(toppedUp, MinValidatorStake()); err != nil {
		t.Fatalf("AddStake: %v", err)
	}

	// within the era and its grace window, zero-stake bootstrap
	// validators stay active.
	r.EnforceBootstrapGrace(common.BlockNumber(BootstrapEraBlocks))
	if !r.IsActive(zeroStake) {
		t.Fatalf("zero-stake bootstrap validator evicted before the grace window expired")
	}

	deadline := common.BlockNumber(BootstrapEraBlocks + BootstrapGracePeriod)
	r.EnforceBootstrapGrace(deadline)

	if r.IsActive(zeroStake) {
		t.Errorf("zero-stake bootstrap validator still active past the grace deadline")
	}
	if info, ok := r.Get(zeroStake); !ok || info.Status != StatusEjected {
		t.Errorf("evicted bootstrap validator status = %v, want StatusEjected", info.Status)
	}
	if !r.IsActive(toppedUp) {
		t.Errorf("bootstrap validator that supplied the minimum stake was evicted")
	}
	if !r.IsActive(staked) {
		t.Errorf("ordinary staked validator was evicted by the bootstrap grace check")
	}
}

func TestEjectRemovesFromActiveSet(t *testing.T) {
	t.Parallel()
	r := NewValidatorRegistry(NewEpochClock())

	v := testAccount(1)
	if err := r.RegisterCandidate(v, MinValidatorStake(), false, 0); err != nil {
		t.Fatalf("RegisterCandidate: %v", err)
	}
	if err := r.Activate(v, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	r.Eject(v)
	if r.IsActive(v) {
		t.Errorf("ejected validator still active")
	}
	info, ok := r.Get(v)
	if !ok || info.Status != StatusEjected {
		t.Errorf("ejected validator status = %v, want StatusEjected", info.Status)
	}
}
