// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package common

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

// AccountIdSize is the length in bytes of an Ed25519 public key used as a
// validator or account identifier.
const AccountIdSize = ed25519.PublicKeySize

// SignatureSize is the length in bytes of an Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// AccountId identifies an account or validator by its Ed25519 public key.
type AccountId [AccountIdSize]byte

// ZeroAccount is the sentinel account used by the genesis block header,
// which has no author.
var ZeroAccount AccountId

// Signature64 is a fixed-size Ed25519 signature.
type Signature64 [SignatureSize]byte

// ZeroSignature is the sentinel signature carried by the genesis header.
var ZeroSignature Signature64

// AccountIdFromPublicKey builds an AccountId from an ed25519.PublicKey. It
// panics if the key is not the expected length, matching the stdlib's own
// behavior on malformed keys.
func AccountIdFromPublicKey(pub ed25519.PublicKey) AccountId {
	var a AccountId
	if len(pub) != AccountIdSize {
		panic(fmt.Sprintf("common: invalid ed25519 public key length %d", len(pub)))
	}
	copy(a[:], pub)
	return a
}

// PublicKey returns the AccountId reinterpreted as an ed25519.PublicKey for
// verification.
func (a AccountId) PublicKey() ed25519.PublicKey {
	pk := make(ed25519.PublicKey, AccountIdSize)
	copy(pk, a[:])
	return pk
}

// IsZero reports whether the account is the zero sentinel value.
func (a AccountId) IsZero() bool {
	return a == ZeroAccount
}

// Bytes returns a copy of the account's underlying bytes.
func (a AccountId) Bytes() []byte {
	b := make([]byte, AccountIdSize)
	copy(b, a[:])
	return b
}

// Hex returns the 0x-prefixed hex encoding of the account.
func (a AccountId) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a AccountId) String() string {
	return a.Hex()
}

// ShortString returns a truncated representation suitable for log lines.
func (a AccountId) ShortString() string {
	s := a.Hex()
	if len(s) <= 12 {
		return s
	}
	return s[:12] + "..."
}

// AccountIdFromBytes copies b into a new AccountId. It returns an error if
// b is not exactly AccountIdSize bytes.
func AccountIdFromBytes(b []byte) (AccountId, error) {
	var a AccountId
	if len(b) != AccountIdSize {
		return a, fmt.Errorf("common: invalid account id length %d, want %d", len(b), AccountIdSize)
	}
	copy(a[:], b)
	return a, nil
}

// Bytes returns a copy of the signature's underlying bytes.
func (s Signature64) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s[:])
	return b
}

// IsZero reports whether the signature is the zero sentinel value.
func (s Signature64) IsZero() bool {
	return s == ZeroSignature
}

// SignatureFromBytes copies b into a new Signature64. It returns an error
// if b is not exactly SignatureSize bytes.
func SignatureFromBytes(b []byte) (Signature64, error) {
	var s Signature64
	if len(b) != SignatureSize {
		return s, fmt.Errorf("common: invalid signature length %d, want %d", len(b), SignatureSize)
	}
	copy(s[:], b)
	return s, nil
}
