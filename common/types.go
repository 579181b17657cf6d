// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package common

// BlockNumber, EpochNumber, and SlotNumber are the three monotonic counters
// the consensus core reasons about. They are distinct named types rather
// than bare uint64 so that a BlockNumber can never be passed where an
// EpochNumber is expected by accident.
type (
	BlockNumber uint64
	EpochNumber uint64
	SlotNumber  uint64
)

// Domain separation tags used when hashing or signing. Each tag is
// prefixed onto the data being hashed/signed so that a
// signature produced for one purpose can never be replayed as a valid
// signature for another.
var (
	DomainBlockHeader = []byte("kratos-block-header-v1")
	DomainVRFSelect   = []byte("kratos-vrf-validator-selection")
	DomainTransaction = []byte("kratos-transaction-v1")
)
