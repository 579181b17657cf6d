// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"github.com/kratos-chain/kratos/common"
)

// Transaction is the minimal transfer transaction carried in a block
// body.
type Transaction struct {
	From      common.AccountId
	To        common.AccountId
	Amount    common.Balance
	Nonce     uint64
	Signature common.Signature64
}

// signingPayload returns the domain-separated bytes a transaction's
// signature is computed over.
func (tx Transaction) signingPayload() []byte {
	payload := make([]byte, 0, len(common.DomainTransaction)+common.AccountIdSize*2+16)
	payload = append(payload, common.DomainTransaction...)
	payload = append(payload, tx.From.Bytes()...)
	payload = append(payload, tx.To.Bytes()...)
	payload = append(payload, common.PutUint64LE(tx.Amount.Uint64())...)
	payload = append(payload, common.PutUint64LE(tx.Nonce)...)
	return payload
}

// Hash returns the transaction's content hash.
func (tx Transaction) Hash() common.Hash {
	return common.HashBytes(tx.signingPayload())
}

// VerifySignature reports whether tx.Signature is a valid signature by
// tx.From over the transaction's signing payload.
func (tx Transaction) VerifySignature() bool {
	if tx.Signature.IsZero() {
		return false
	}
	return VerifyEd25519(tx.From, tx.signingPayload(), tx.Signature)
}

// ComputeTransactionsRoot computes a deterministic root hash over an
// ordered list of transactions: BLAKE3 over the concatenation of each
// transaction's hash, in order. This is a flat digest, not a Merkle tree:
// it detects any reordering or tampering of the transaction list but
// supports no per-transaction inclusion proofs.
func ComputeTransactionsRoot(txs []Transaction) common.Hash {
	if len(txs) == 0 {
		return common.ZeroHash
	}
	parts := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		h := tx.Hash()
		parts = append(parts, h[:])
	}
	return common.HashBytes(parts...)
}
