// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package common

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashSize is the length in bytes of a BLAKE3 hash as used throughout the
// consensus core (block hashes, state roots, VRF randomness).
const HashSize = 32

// Hash is a 32-byte BLAKE3 digest.
type Hash [HashSize]byte

// ZeroHash is the sentinel hash carried by the genesis block's parent_hash
// and transactions_root fields.
var ZeroHash Hash

// BytesToHash copies b into a new Hash, truncating or zero-padding on the
// left to HashSize if necessary.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashSize {
		b = b[len(b)-HashSize:]
	}
	copy(h[HashSize-len(b):], b)
	return h
}

// Bytes returns a copy of the hash's underlying bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// HashBytes computes the BLAKE3-256 digest of data.
func HashBytes(data ...[]byte) Hash {
	hasher := blake3.New(HashSize, nil)
	for _, d := range data {
		hasher.Write(d)
	}
	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// Hash64LE computes the BLAKE3-256 digest of the concatenation of data and
// interprets the first 8 bytes as a little-endian uint64. This is the
// per-candidate randomness source used by the VRF selector
// (validator_id || slot_le || epoch_le).
func Hash64LE(data ...[]byte) uint64 {
	h := HashBytes(data...)
	return binary.LittleEndian.Uint64(h[:8])
}

// PutUint64LE encodes v as 8 little-endian bytes, matching the transcript
// encoding the VRF selector and epoch/slot domain separation use.
func PutUint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
