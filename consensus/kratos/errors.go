// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package kratos implements the KratOs consensus core: epoch timing,
// validator registry, validator credits, VRF-weighted slot selection,
// slashing, inactivity decay, and block validation.
package kratos

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Callers should match with errors.Is against these
// sentinels; every error returned by this package wraps one of them.
var (
	// Validation errors - malformed or unauthorized blocks.
	ErrInvalidBlockNumber = errors.New("kratos: invalid block number")
	ErrInvalidParentHash  = errors.New("kratos: invalid parent hash")
	ErrInvalidEpoch       = errors.New("kratos: invalid epoch")
	ErrInvalidSlot        = errors.New("kratos: invalid slot")
	ErrInvalidSignature   = errors.New("kratos: invalid signature")
	ErrUnauthorizedAuthor = errors.New("kratos: unauthorized author")
	ErrWrongSlotAuthor    = errors.New("kratos: wrong slot author")
	ErrTimestampTooOld    = errors.New("kratos: timestamp not after parent")
	ErrTimestampTooFar    = errors.New("kratos: timestamp too far in the future")
	ErrInvalidMerkleRoot  = errors.New("kratos: transactions root mismatch")
	ErrInvalidTransaction = errors.New("kratos: invalid transaction")
	ErrInvalidGenesis     = errors.New("kratos: invalid genesis block")

	// Selection errors - VRF selection.
	ErrNoCandidates          = errors.New("kratos: no candidates for selection")
	ErrNoSigningKey          = errors.New("kratos: no signing key configured")
	ErrVRFVerificationFailed = errors.New("kratos: vrf verification failed")

	// Staking / registry errors.
	ErrValidatorNotFound      = errors.New("kratos: validator not found")
	ErrValidatorExists        = errors.New("kratos: validator already registered")
	ErrInsufficientStake      = errors.New("kratos: insufficient stake")
	ErrValidatorInCooldown    = errors.New("kratos: validator in cooldown")
	ErrValidatorEjected       = errors.New("kratos: validator ejected")
	ErrCandidacyExpired       = errors.New("kratos: candidacy window expired")
	ErrTooManyEarlyValidators = errors.New("kratos: early validator slots exhausted")
	ErrUnbondingAlreadyActive = errors.New("kratos: unbonding request already active")
	ErrNoUnbondingRequest     = errors.New("kratos: no unbonding request")
	ErrUnbondingNotReady      = errors.New("kratos: unbonding period not elapsed")

	// Anti-spam window limits on the VC ledger are deliberately not
	// errors: the credit methods report false instead, and the only
	// ledger error is ErrValidatorNotFound.

	// Slashing errors.
	ErrInvalidSlashAmount = errors.New("kratos: invalid slash amount")

	// Cryptographic errors.
	ErrInvalidKeyLength = errors.New("kratos: invalid key length")
)

// wrap attaches a message to a sentinel error while preserving errors.Is
// matchability.
func wrap(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
