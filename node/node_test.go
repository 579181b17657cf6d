// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package node

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/consensus/kratos"
	"github.com/kratos-chain/kratos/genesis"
)

func testAccount(b byte) common.AccountId {
	var id common.AccountId
	id[0] = b
	return id
}

func newTestNode(t *testing.T) (*Node, common.AccountId) {
	t.Helper()
	account := testAccount(1)
	spec := genesis.WithValidator(account)

	n, err := New(DefaultConfig(), spec, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n, account
}

func TestNewConstructsGenesisState(t *testing.T) {
	t.Parallel()
	n, account := newTestNode(t)

	if n.ChainTip().Header.Number != 0 {
		t.Errorf("ChainTip().Header.Number = %d, want 0", n.ChainTip().Header.Number)
	}
	snap, ok := n.Snapshot(account)
	if !ok {
		t.Fatalf("Snapshot(account) not found")
	}
	if snap.Stake.IsZero() {
		t.Errorf("genesis validator snapshot has zero stake")
	}
}

// TestApplySlashUpdatesLedgerAndRegistry exercises the cross-component
// wiring between the slashing engine, VC ledger, and validator registry:
// a critical event should both remove VC and stake from the validator.
func TestApplySlashUpdatesLedgerAndRegistry(t *testing.T) {
	t.Parallel()
	n, account := newTestNode(t)

	before, ok := n.registry.Get(account)
	if !ok {
		t.Fatalf("validator not found before slash")
	}

	outcome, err := n.ApplySlash(account, kratos.SlashableEvent{Kind: kratos.EventDoubleSigning})
	if err != nil {
		t.Fatalf("ApplySlash: %v", err)
	}
	if outcome.StakeDelta.IsZero() {
		t.Errorf("expected a critical slash to reduce stake")
	}

	after, _ := n.registry.Get(account)
	if after.Stake.Cmp(before.Stake) >= 0 {
		t.Errorf("validator stake after slash = %s, want less than %s", after.Stake, before.Stake)
	}

	stats := n.GetStats()
	if stats.SlashesApplied != 1 {
		t.Errorf("SlashesApplied = %d, want 1", stats.SlashesApplied)
	}
}

func TestApplySlashUnknownValidator(t *testing.T) {
	t.Parallel()
	n, _ := newTestNode(t)

	if _, err := n.ApplySlash(testAccount(99), kratos.SlashableEvent{Kind: kratos.EventDoubleSigning}); err != kratos.ErrValidatorNotFound {
		t.Errorf("ApplySlash(unknown) = %v, want ErrValidatorNotFound", err)
	}
}

func TestApplyQuarterlyDecayCreditsLedgerDelta(t *testing.T) {
	t.Parallel()
	n, account := newTestNode(t)

	for i := 0; i < 3; i++ {
		if ok, err := n.ledger.AddVoteCredit(account, 0, 1); err != nil || !ok {
			t.Fatalf("AddVoteCredit: ok=%v err=%v", ok, err)
		}
	}
	before, _ := n.ledger.Get(account)

	n.mu.Lock()
	n.applyQuarterlyDecay(common.EpochNumber(kratos.EpochsPerQuarter))
	n.mu.Unlock()

	after, _ := n.ledger.Get(account)
	if after.VoteCredits >= before.VoteCredits {
		t.Errorf("expected inactivity decay to reduce vote credits below %d, got %d", before.VoteCredits, after.VoteCredits)
	}
}

func TestCreditValidatorShareDistributesByStake(t *testing.T) {
	t.Parallel()
	n, account := newTestNode(t)

	before, _ := n.registry.Get(account)

	n.mu.Lock()
	n.creditValidatorShare(common.KRAT(1_000))
	n.mu.Unlock()

	after, _ := n.registry.Get(account)
	// sole active validator with all stake: the full share is credited.
	want := before.Stake.Add(common.KRAT(1_000))
	if after.Stake.Cmp(want) != 0 {
		t.Errorf("validator stake after full-share credit = %s, want %s", after.Stake, want)
	}
}
