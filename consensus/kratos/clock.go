// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import "github.com/kratos-chain/kratos/common"

// Slot and epoch timing constants. An epoch is 600 blocks of 6-second
// slots; the bootstrap era spans the chain's first 1,440 epochs.
const (
	SlotDurationSecs     uint64 = 6
	EpochDurationBlocks  uint64 = 600
	BootstrapEraBlocks   uint64 = 864_000
	BootstrapGracePeriod uint64 = 100_800
)

// EpochClock converts between block numbers, epochs, and slots. It holds
// no mutable state: every method is a pure function of its inputs.
type EpochClock struct {
	epochDurationBlocks uint64
}

// NewEpochClock constructs an EpochClock using the standard
// EpochDurationBlocks constant.
func NewEpochClock() *EpochClock {
	return &EpochClock{epochDurationBlocks: EpochDurationBlocks}
}

// EpochFromBlock returns the epoch number containing blockNumber.
// EpochFromBlock(599) == 0, EpochFromBlock(600) == 1.
func (c *EpochClock) EpochFromBlock(blockNumber common.BlockNumber) common.EpochNumber {
	return common.EpochNumber(uint64(blockNumber) / c.epochDurationBlocks)
}

// EpochStartBlock returns the first block number belonging to epoch.
func (c *EpochClock) EpochStartBlock(epoch common.EpochNumber) common.BlockNumber {
	return common.BlockNumber(uint64(epoch) * c.epochDurationBlocks)
}

// EpochEndBlock returns the last block number belonging to epoch.
func (c *EpochClock) EpochEndBlock(epoch common.EpochNumber) common.BlockNumber {
	return common.BlockNumber(uint64(epoch)*c.epochDurationBlocks + c.epochDurationBlocks - 1)
}

// SlotFromBlock returns the slot number within its epoch for blockNumber.
func (c *EpochClock) SlotFromBlock(blockNumber common.BlockNumber) common.SlotNumber {
	return common.SlotNumber(uint64(blockNumber) % c.epochDurationBlocks)
}

// ContainsBlock reports whether blockNumber falls within epoch.
func (c *EpochClock) ContainsBlock(epoch common.EpochNumber, blockNumber common.BlockNumber) bool {
	return c.EpochFromBlock(blockNumber) == epoch
}

// NextEpoch returns the epoch immediately following epoch.
func (c *EpochClock) NextEpoch(epoch common.EpochNumber) common.EpochNumber {
	return epoch + 1
}

// IsBootstrapEra reports whether blockNumber falls within the bootstrap
// era (the first BootstrapEraBlocks blocks), during which
// MaxEarlyValidators and the bootstrap VC multiplier apply.
func (c *EpochClock) IsBootstrapEra(blockNumber common.BlockNumber) bool {
	return uint64(blockNumber) < BootstrapEraBlocks
}

// IsWithinBootstrapGrace reports whether blockNumber is still within the
// stake-up grace window that follows the bootstrap era: zero-stake
// bootstrap validators have until BootstrapGracePeriod blocks after the
// era ends to supply the minimum stake.
func (c *EpochClock) IsWithinBootstrapGrace(blockNumber common.BlockNumber) bool {
	return uint64(blockNumber) < BootstrapEraBlocks+BootstrapGracePeriod
}
