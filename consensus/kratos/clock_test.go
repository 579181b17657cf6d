// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"testing"

	"github.com/kratos-chain/kratos/common"
)

func TestEpochFromBlock(t *testing.T) {
	t.Parallel()
	clock := NewEpochClock()

	tests := []struct {
		block common.BlockNumber
		epoch common.EpochNumber
	}{
		{0, 0},
		{599, 0},
		{600, 1},
		{1199, 1},
		{1200, 2},
	}
	for i, tt := range tests {
		if got := clock.EpochFromBlock(tt.block); got != tt.epoch {
			t.Errorf("test %d: EpochFromBlock(%d) = %d, want %d", i, tt.block, got, tt.epoch)
		}
	}
}

func TestSlotFromBlock(t *testing.T) {
	t.Parallel()
	clock := NewEpochClock()

	if got := clock.SlotFromBlock(5); got != 5 {
		t.Errorf("SlotFromBlock(5) = %d, want 5", got)
	}
	if got := clock.SlotFromBlock(600); got != 0 {
		t.Errorf("SlotFromBlock(600) = %d, want 0", got)
	}
	if got := clock.SlotFromBlock(605); got != 5 {
		t.Errorf("SlotFromBlock(605) = %d, want 5", got)
	}
}

func TestEpochWindow(t *testing.T) {
	t.Parallel()
	clock := NewEpochClock()

	start := clock.EpochStartBlock(2)
	end := clock.EpochEndBlock(2)
	if start != 1200 {
		t.Errorf("EpochStartBlock(2) = %d, want 1200", start)
	}
	if end != 1799 {
		t.Errorf("EpochEndBlock(2) = %d, want 1799", end)
	}
	if !clock.ContainsBlock(2, 1500) {
		t.Errorf("ContainsBlock(2, 1500) = false, want true")
	}
	if clock.ContainsBlock(2, 1800) {
		t.Errorf("ContainsBlock(2, 1800) = true, want false")
	}
}

func TestIsBootstrapEra(t *testing.T) {
	t.Parallel()
	clock := NewEpochClock()

	if !clock.IsBootstrapEra(0) {
		t.Errorf("block 0 should be in bootstrap era")
	}
	if !clock.IsBootstrapEra(common.BlockNumber(BootstrapEraBlocks - 1)) {
		t.Errorf("block BootstrapEraBlocks-1 should be in bootstrap era")
	}
	if clock.IsBootstrapEra(common.BlockNumber(BootstrapEraBlocks)) {
		t.Errorf("block BootstrapEraBlocks should not be in bootstrap era")
	}
}

func TestIsWithinBootstrapGrace(t *testing.T) {
	t.Parallel()
	clock := NewEpochClock()

	deadline := common.BlockNumber(BootstrapEraBlocks + BootstrapGracePeriod)
	if !clock.IsWithinBootstrapGrace(0) {
		t.Errorf("expected genesis to be within the grace window")
	}
	if !clock.IsWithinBootstrapGrace(deadline - 1) {
		t.Errorf("expected within grace window just before expiry")
	}
	if clock.IsWithinBootstrapGrace(deadline) {
		t.Errorf("expected grace window expired at exact boundary")
	}
}
