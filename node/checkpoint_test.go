// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package node

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kratos-chain/kratos/consensus/kratos"
	"github.com/kratos-chain/kratos/genesis"
)

func TestCreditsRecordEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	want := kratos.ValidatorCreditsRecord{
		VoteCredits:              7,
		UptimeCredits:            11,
		ArbitrationCredits:       15,
		SeniorityCredits:         5,
		VotesToday:               2,
		VotesThisMonth:           40,
		ArbitrationsThisYear:     3,
		LastDailyResetEpoch:      100,
		LastMonthlyResetEpoch:    720,
		LastYearlyResetEpoch:     8760,
		ActiveEpochs:             1440,
		ActivationBlock:          12345,
		LastSeniorityCreditEpoch: 720,
	}

	got, ok := decodeCreditsRecord(encodeCreditsRecord(want))
	if !ok {
		t.Fatalf("decodeCreditsRecord rejected an encoded record")
	}
	if got != want {
		t.Errorf("round-tripped record = %+v, want %+v", got, want)
	}

	if _, ok := decodeCreditsRecord([]byte("short")); ok {
		t.Errorf("decodeCreditsRecord accepted a truncated value")
	}
}

// TestCheckpointAndRestoreLedger writes a ledger checkpoint through one
// node and verifies a second node constructed over the same store sees
// the persisted credits.
func TestCheckpointAndRestoreLedger(t *testing.T) {
	t.Parallel()
	account := testAccount(1)
	spec := genesis.WithValidator(account)

	config := DefaultConfig()
	config.CheckpointPath = filepath.Join(t.TempDir(), "ckpt")

	n, err := New(config, spec, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if ok, err := n.ledger.AddVoteCredit(account, 0, 1); err != nil || !ok {
			t.Fatalf("AddVoteCredit: ok=%v err=%v", ok, err)
		}
	}

	n.mu.Lock()
	n.checkpointLedger()
	n.mu.Unlock()
	if err := n.checkpoint.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	n2, err := New(config, spec, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New (restore): %v", err)
	}
	defer n2.checkpoint.Close()

	record, ok := n2.ledger.Get(account)
	if !ok {
		t.Fatalf("restored ledger is missing the checkpointed validator")
	}
	if record.VoteCredits != 3 {
		t.Errorf("restored VoteCredits = %d, want 3", record.VoteCredits)
	}
}
