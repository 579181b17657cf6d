// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package store

import (
	"testing"

	"github.com/kratos-chain/kratos/common"
)

func testAccount(b byte) common.AccountId {
	var id common.AccountId
	id[0] = b
	return id
}

func TestGetAccountBalanceDefaultsToZero(t *testing.T) {
	t.Parallel()
	s := NewStateBackend()
	if got := s.GetAccountBalance(testAccount(1)); !got.IsZero() {
		t.Errorf("GetAccountBalance(unknown) = %s, want 0", got)
	}
}

func TestComputeStateRootDeterministic(t *testing.T) {
	t.Parallel()
	a, b := testAccount(1), testAccount(2)
	credits := []CreditRecord{
		{Validator: a, Vote: 3},
		{Validator: b, Uptime: 7},
	}

	s1 := NewStateBackend()
	s1.SetAccountBalance(a, common.KRAT(10))
	s1.SetAccountBalance(b, common.KRAT(20))

	// neither account insertion order nor credit-slice order should
	// affect the root: both enumerations are sorted before digesting.
	s2 := NewStateBackend()
	s2.SetAccountBalance(b, common.KRAT(20))
	s2.SetAccountBalance(a, common.KRAT(10))
	reversed := []CreditRecord{credits[1], credits[0]}

	root1 := s1.ComputeStateRoot(5, 1, credits)
	root2 := s2.ComputeStateRoot(5, 1, reversed)
	if root1 != root2 {
		t.Errorf("ComputeStateRoot depends on enumeration order: %s != %s", root1, root2)
	}
}

func TestComputeStateRootChangesWithBalance(t *testing.T) {
	t.Parallel()
	a := testAccount(1)
	s := NewStateBackend()
	s.SetAccountBalance(a, common.KRAT(10))
	root1 := s.ComputeStateRoot(0, 1, nil)

	s.SetAccountBalance(a, common.KRAT(11))
	root2 := s.ComputeStateRoot(0, 1, nil)

	if root1 == root2 {
		t.Errorf("ComputeStateRoot did not change after a balance update")
	}
}

func TestComputeStateRootChangesWithCredits(t *testing.T) {
	t.Parallel()
	a := testAccount(1)
	s := NewStateBackend()
	s.SetAccountBalance(a, common.KRAT(10))

	root1 := s.ComputeStateRoot(0, 1, []CreditRecord{{Validator: a, Vote: 10}})
	root2 := s.ComputeStateRoot(0, 1, []CreditRecord{{Validator: a, Vote: 9}})
	if root1 == root2 {
		t.Errorf("ComputeStateRoot did not change after a credit update")
	}
}

func TestComputeStateRootChangesWithBlockNumber(t *testing.T) {
	t.Parallel()
	a := testAccount(1)
	s := NewStateBackend()
	s.SetAccountBalance(a, common.KRAT(10))

	root1 := s.ComputeStateRoot(0, 1, nil)
	root2 := s.ComputeStateRoot(1, 1, nil)
	if root1 == root2 {
		t.Errorf("ComputeStateRoot should depend on blockNumber")
	}
}
