// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"errors"
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/kratos-chain/kratos/common"
)

func signedHeader(t *testing.T, priv ed25519.PrivateKey, author common.AccountId, h BlockHeader) BlockHeader {
	t.Helper()
	h.Author = author
	sig, err := SignEd25519(priv, h.signingPayload())
	if err != nil {
		t.Fatalf("SignEd25519: %v", err)
	}
	h.Signature = sig
	return h
}

func newTestValidator(t *testing.T) (common.AccountId, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return common.AccountIdFromPublicKey(pub), priv
}

func validatorFixture(t *testing.T) (*ValidatorRegistry, common.AccountId, ed25519.PrivateKey) {
	t.Helper()
	author, priv := newTestValidator(t)
	r := NewValidatorRegistry(NewEpochClock())
	r.ActivateGenesisValidator(author, common.KRAT(1_000_000), false)
	return r, author, priv
}

func TestValidateGenesisBlock(t *testing.T) {
	t.Parallel()
	v := NewBlockValidator(DefaultValidationConfig(), NewVRFSelector(nil), NewEpochClock())

	genesis := &Block{Header: BlockHeader{Number: 0, ParentHash: common.ZeroHash}}
	if err := v.Validate(genesis, nil, nil, 0); err != nil {
		t.Errorf("Validate(genesis) = %v, want nil", err)
	}

	withTx := &Block{Header: BlockHeader{Number: 0}, Transactions: []Transaction{{}}}
	if err := v.Validate(withTx, nil, nil, 0); !errors.Is(err, ErrInvalidGenesis) {
		t.Errorf("Validate(genesis with transactions) = %v, want ErrInvalidGenesis", err)
	}
}

func TestValidateRejectsWrongBlockNumber(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry, author, priv := validatorFixture(t)
	parent := BlockHeader{Number: 0, Timestamp: 1000}

	h := signedHeader(t, priv, author, BlockHeader{Number: 5, ParentHash: parent.Hash(), Timestamp: 2000})
	block := &Block{Header: h}
	if err := v.Validate(block, &parent, registry, 2000); !errors.Is(err, ErrInvalidBlockNumber) {
		t.Errorf("Validate(wrong number) = %v, want ErrInvalidBlockNumber", err)
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry, author, _ := validatorFixture(t)
	parent := BlockHeader{Number: 0, Timestamp: 1000}

	h := BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 2000, Author: author}
	h.Signature = common.Signature64{}
	h.Signature[0] = 0xFF // non-zero but bogus signature

	block := &Block{Header: h}
	if err := v.Validate(block, &parent, registry, 2000); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Validate(bad signature) = %v, want ErrInvalidSignature", err)
	}
}

func TestValidateRejectsUnauthorizedAuthor(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry := NewValidatorRegistry(NewEpochClock())
	unregistered, unregisteredPriv := newTestValidator(t)
	parent := BlockHeader{Number: 0, Timestamp: 1000}

	h := signedHeader(t, unregisteredPriv, unregistered, BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 2000})
	block := &Block{Header: h}
	if err := v.Validate(block, &parent, registry, 2000); !errors.Is(err, ErrUnauthorizedAuthor) {
		t.Errorf("Validate(unauthorized author) = %v, want ErrUnauthorizedAuthor", err)
	}
}

func TestValidateRejectsStaleTimestamp(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry, author, priv := validatorFixture(t)
	parent := BlockHeader{Number: 0, Timestamp: 2000}

	h := signedHeader(t, priv, author, BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 1000})
	block := &Block{Header: h}
	if err := v.Validate(block, &parent, registry, 2000); !errors.Is(err, ErrTimestampTooOld) {
		t.Errorf("Validate(stale timestamp) = %v, want ErrTimestampTooOld", err)
	}
}

func TestValidateRejectsFutureTimestamp(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry, author, priv := validatorFixture(t)
	parent := BlockHeader{Number: 0, Timestamp: 1000}

	h := signedHeader(t, priv, author, BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 1000 + DefaultTimestampToleranceSecs + 1000})
	block := &Block{Header: h}
	if err := v.Validate(block, &parent, registry, 1000); !errors.Is(err, ErrTimestampTooFar) {
		t.Errorf("Validate(future timestamp) = %v, want ErrTimestampTooFar", err)
	}
}

func TestValidateRejectsMerkleRootMismatch(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry, author, priv := validatorFixture(t)
	parent := BlockHeader{Number: 0, Timestamp: 1000}

	h := signedHeader(t, priv, author, BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 2000, TransactionsRoot: common.BytesToHash([]byte("wrong"))})
	block := &Block{Header: h, Transactions: nil}
	if err := v.Validate(block, &parent, registry, 2000); !errors.Is(err, ErrInvalidMerkleRoot) {
		t.Errorf("Validate(bad merkle root) = %v, want ErrInvalidMerkleRoot", err)
	}
}

func TestValidateSlotAssignmentSkippedOnEmptyActiveSet(t *testing.T) {
	t.Parallel()
	v := NewBlockValidator(DefaultValidationConfig(), NewVRFSelector(nil), NewEpochClock())

	registry := NewValidatorRegistry(NewEpochClock())
	author, priv := newTestValidator(t)
	registry.ActivateGenesisValidator(author, common.KRAT(1_000_000), false)
	// Eject to empty the active set while keeping the author "registered"
	// would also remove authorization, so instead exercise the skip path
	// directly against validateSlotAssignment with an empty registry.
	empty := NewValidatorRegistry(NewEpochClock())

	parent := BlockHeader{Number: 0, Timestamp: 1000}
	h := signedHeader(t, priv, author, BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 2000})

	if err := v.validateSlotAssignment(&h, empty); err != nil {
		t.Errorf("validateSlotAssignment with empty active set = %v, want nil (fail-open)", err)
	}
}

func TestValidateTransactionsRejectsInvalidSignature(t *testing.T) {
	t.Parallel()
	config := DefaultValidationConfig()
	config.VerifySlotAssignment = false
	v := NewBlockValidator(config, NewVRFSelector(nil), NewEpochClock())

	registry, author, priv := validatorFixture(t)
	parent := BlockHeader{Number: 0, Timestamp: 1000}

	badTx := Transaction{From: testAccount(9), To: testAccount(8), Amount: common.KRAT(1)}
	root := ComputeTransactionsRoot([]Transaction{badTx})

	h := signedHeader(t, priv, author, BlockHeader{Number: 1, Slot: 1, ParentHash: parent.Hash(), Timestamp: 2000, TransactionsRoot: root})
	block := &Block{Header: h, Transactions: []Transaction{badTx}}
	if err := v.Validate(block, &parent, registry, 2000); !errors.Is(err, ErrInvalidTransaction) {
		t.Errorf("Validate(invalid transaction signature) = %v, want ErrInvalidTransaction", err)
	}
}
