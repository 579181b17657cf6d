// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"golang.org/x/crypto/ed25519"

	"github.com/kratos-chain/kratos/common"
)

// SignEd25519 signs payload with priv, returning a fixed-size signature.
func SignEd25519(priv ed25519.PrivateKey, payload []byte) (common.Signature64, error) {
	sig := ed25519.Sign(priv, payload)
	return common.SignatureFromBytes(sig)
}

// VerifyEd25519 reports whether sig is a valid Ed25519 signature by signer
// over payload.
func VerifyEd25519(signer common.AccountId, payload []byte, sig common.Signature64) bool {
	return ed25519.Verify(signer.PublicKey(), payload, sig.Bytes())
}
