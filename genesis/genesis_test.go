// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package genesis

import (
	"testing"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/consensus/kratos"
	"github.com/kratos-chain/kratos/store"
)

func testAccount(b byte) common.AccountId {
	var id common.AccountId
	id[0] = b
	return id
}

func TestParseGenesisDocument(t *testing.T) {
	t.Parallel()
	doc := []byte(`{
		"timestamp": 1700000000,
		"balances": {"0x0100000000000000000000000000000000000000000000000000000000000000": "1000000000000000"},
		"validators": [{"account": "0x0100000000000000000000000000000000000000000000000000000000000000", "stake": "50000000000000000", "is_bootstrap_validator": true}]
	}`)
	spec, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %d, want 1700000000", spec.Timestamp)
	}
	if len(spec.Validators) != 1 {
		t.Fatalf("len(Validators) = %d, want 1", len(spec.Validators))
	}
	if !spec.Validators[0].IsBootstrapValidator {
		t.Errorf("expected the parsed validator to be flagged bootstrap")
	}
}

func TestParseGenesisDefaultsTimestampAndTokenomics(t *testing.T) {
	t.Parallel()
	spec, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Timestamp != GenesisTimestamp {
		t.Errorf("Timestamp = %d, want default %d", spec.Timestamp, GenesisTimestamp)
	}
	if spec.Tokenomics.TotalSupply.IsZero() {
		t.Errorf("expected default tokenomics genesis state to be populated")
	}
}

// TestWithValidatorSingleValidatorFixture builds a
// devnet genesis with exactly one staked validator and its stake reserved
// out of the listed free balance.
func TestWithValidatorSingleValidatorFixture(t *testing.T) {
	t.Parallel()
	account := testAccount(1)
	spec := WithValidator(account)

	if len(spec.Validators) != 1 || spec.Validators[0].Account != account {
		t.Fatalf("WithValidator did not register the expected single validator")
	}
	stake := spec.Validators[0].Stake
	if stake.Cmp(kratos.MinValidatorStake()) != 0 {
		t.Errorf("validator stake = %s, want minimum stake %s", stake, kratos.MinValidatorStake())
	}

	freeBalance := spec.Balances[account]
	total := freeBalance.Add(stake)
	if total.Cmp(common.KRAT(1_000_000)) != 0 {
		t.Errorf("free balance + stake = %s, want 1,000,000 KRAT", total)
	}
}

func TestBuildConstructsGenesisBlockAndState(t *testing.T) {
	t.Parallel()
	account := testAccount(1)
	spec := WithValidator(account)

	state := store.NewStateBackend()
	registry := kratos.NewValidatorRegistry(kratos.NewEpochClock())
	ledger := kratos.NewVCLedger()
	decay := kratos.NewDecayEngine()

	block, err := Build(spec, state, registry, ledger, decay)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if block.Header.Number != 0 {
		t.Errorf("genesis block number = %d, want 0", block.Header.Number)
	}
	if !registry.IsActive(account) {
		t.Errorf("genesis validator should be active immediately")
	}
	if _, ok := ledger.Get(account); !ok {
		t.Errorf("genesis validator should have an initialized credits record")
	}
	if registry.TotalStake().Cmp(spec.Validators[0].Stake) != 0 {
		t.Errorf("TotalStake() = %s, want %s", registry.TotalStake(), spec.Validators[0].Stake)
	}
}
