// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package store

import (
	"bytes"
	"sort"
	"sync"

	"github.com/kratos-chain/kratos/common"
)

// CreditRecord is the canonical per-validator credit tuple folded into
// the state root alongside account balances, so two chains differing
// only in committed credit state (accrual, slashing, decay) produce
// different roots.
type CreditRecord struct {
	Validator   common.AccountId
	Vote        uint32
	Uptime      uint32
	Arbitration uint32
	Seniority   uint32
}

// StateBackend holds the account-balance view of chain state and computes
// a deterministic state root from it: a sorted-account BLAKE3 digest.
// Callers needing inclusion proofs would require a real trie; nothing in
// the consensus core does.
type StateBackend struct {
	mu       sync.RWMutex
	accounts map[common.AccountId]common.Balance
}

// NewStateBackend constructs an empty state backend.
func NewStateBackend() *StateBackend {
	return &StateBackend{accounts: make(map[common.AccountId]common.Balance)}
}

// SetAccountBalance sets id's balance.
func (s *StateBackend) SetAccountBalance(id common.AccountId, balance common.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = balance
}

// GetAccountBalance returns id's balance, or zero if unknown.
func (s *StateBackend) GetAccountBalance(id common.AccountId) common.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.accounts[id]; ok {
		return b
	}
	return common.ZeroBalance
}

// ComputeStateRoot returns a deterministic digest over every account
// balance and validator credit record, folding in blockNumber and
// chainID so the same state at a different block/chain produces a
// different root. The credits slice is sorted internally, so callers
// may pass records in any order.
func (s *StateBackend) ComputeStateRoot(blockNumber common.BlockNumber, chainID uint64, credits []CreditRecord) common.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]common.AccountId, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})

	sorted := make([]CreditRecord, len(credits))
	copy(sorted, credits)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Validator[:], sorted[j].Validator[:]) < 0
	})

	parts := make([][]byte, 0, 2*len(ids)+5*len(sorted)+2)
	parts = append(parts, common.PutUint64LE(uint64(blockNumber)))
	parts = append(parts, common.PutUint64LE(chainID))
	for _, id := range ids {
		parts = append(parts, id.Bytes())
		parts = append(parts, []byte(s.accounts[id].String()))
	}
	for _, c := range sorted {
		parts = append(parts,
			c.Validator.Bytes(),
			common.PutUint64LE(uint64(c.Vote)),
			common.PutUint64LE(uint64(c.Uptime)),
			common.PutUint64LE(uint64(c.Arbitration)),
			common.PutUint64LE(uint64(c.Seniority)))
	}
	return common.HashBytes(parts...)
}
