// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"bytes"
	"math"

	"github.com/VictoriaMetrics/fastcache"
	"golang.org/x/crypto/ed25519"

	"github.com/kratos-chain/kratos/common"
)

// VRF weight constants. The stake cap bounds plutocratic weight growth;
// the log VC term bounds reputation snowballing; MinEffectiveVC keeps a
// fresh validator's weight non-zero (ln 1 = 0 otherwise).
const (
	StakeCapKRAT              uint64  = 1_000_000
	MinEffectiveVC            uint64  = 1
	BootstrapStakeComponent   float64 = 10.0
	BootstrapMinVCRequirement uint64  = 100
)

// selectionCacheBytes bounds the VRFSelector's selection-result cache to
// a fixed memory footprint.
const selectionCacheBytes = 4 * 1024 * 1024

// SelectionCandidate is the input to slot selection: a validator's id,
// stake, and validator-credit total (used as the VC component of the
// weight formula).
type SelectionCandidate struct {
	Id    common.AccountId
	Stake common.Balance
	VC    uint64
}

// ComputeVRFWeight computes a candidate's selection weight from its stake
// (in KRAT, as a float) and validator-credit total:
// min(sqrt(stake), sqrt(cap)) * ln(1 + max(vc, 1)).
// stakeKRAT == 0 with VC below BootstrapMinVCRequirement yields a zero
// weight (no bootstrap exemption); stakeKRAT == 0 with VC at or above the
// bootstrap threshold yields the fixed BootstrapStakeComponent, letting a
// zero-stake bootstrap validator still be selectable.
func ComputeVRFWeight(stakeKRAT float64, vc uint64) float64 {
	effectiveVC := vc
	if effectiveVC < MinEffectiveVC {
		effectiveVC = MinEffectiveVC
	}

	var stakeComponent float64
	switch {
	case stakeKRAT == 0 && vc < BootstrapMinVCRequirement:
		stakeComponent = 0
	case stakeKRAT == 0:
		stakeComponent = BootstrapStakeComponent
	default:
		capped := stakeKRAT
		if capped > float64(StakeCapKRAT) {
			capped = float64(StakeCapKRAT)
		}
		stakeComponent = math.Sqrt(capped)
		maxComponent := math.Sqrt(float64(StakeCapKRAT))
		if stakeComponent > maxComponent {
			stakeComponent = maxComponent
		}
	}

	vcComponent := math.Log1p(float64(effectiveVC))
	return stakeComponent * vcComponent
}

// IsBootstrapEligible reports whether a zero-stake candidate with the
// given VC qualifies under the bootstrap exemption.
func IsBootstrapEligible(stakeKRAT float64, vc uint64) bool {
	return stakeKRAT == 0 && vc >= BootstrapMinVCRequirement
}

// VRFSelector performs deterministic, VRF-weighted slot selection and
// VRF transcript signing. Selection is a pure function of
// (epoch, slot, candidates); the transcript signature is a separate
// Ed25519 signature over (epoch, slot) by the selector's key.
type VRFSelector struct {
	signingKey ed25519.PrivateKey
	cache      *fastcache.Cache
}

// NewVRFSelector constructs a selector. signingKey may be nil for a
// read-only/verification-only selector.
func NewVRFSelector(signingKey ed25519.PrivateKey) *VRFSelector {
	return &VRFSelector{
		signingKey: signingKey,
		cache:      fastcache.New(selectionCacheBytes),
	}
}

// selectionCacheKey digests (epoch, slot) together with the full candidate
// list. The candidate set can differ between the production and validation
// paths for the same slot, so the list must be part of the key or a cached
// winner computed over a different set would be returned.
func selectionCacheKey(epoch common.EpochNumber, slot common.SlotNumber, candidates []SelectionCandidate) []byte {
	parts := make([][]byte, 0, 2+3*len(candidates))
	parts = append(parts, common.PutUint64LE(uint64(epoch)), common.PutUint64LE(uint64(slot)))
	for _, c := range candidates {
		parts = append(parts, c.Id.Bytes(), []byte(c.Stake.String()), common.PutUint64LE(c.VC))
	}
	h := common.HashBytes(parts...)
	return h.Bytes()
}

// candidateRandom computes the per-candidate normalized random value used
// in weighted-argmax selection: BLAKE3(validator_id || slot_le || epoch_le)
// interpreted as a little-endian uint64, normalized to [0,1).
func candidateRandom(id common.AccountId, slot common.SlotNumber, epoch common.EpochNumber) float64 {
	r := common.Hash64LE(id.Bytes(), common.PutUint64LE(uint64(slot)), common.PutUint64LE(uint64(epoch)))
	return float64(r) / (float64(math.MaxUint64) + 1)
}

// Select deterministically picks the candidate with the highest
// weight*random score for (slot, epoch). Score ties break toward the
// lexicographically smaller id so the result is independent of candidate
// ordering. Returns ErrNoCandidates if candidates is empty - callers are
// expected to treat that as "skip this check", not as a validation
// failure.
func (s *VRFSelector) Select(epoch common.EpochNumber, slot common.SlotNumber, candidates []SelectionCandidate) (common.AccountId, error) {
	if len(candidates) == 0 {
		return common.AccountId{}, ErrNoCandidates
	}

	cacheKey := selectionCacheKey(epoch, slot, candidates)
	if cached, ok := s.cache.HasGet(nil, cacheKey); ok {
		var id common.AccountId
		copy(id[:], cached)
		return id, nil
	}

	var (
		best      common.AccountId
		bestScore float64 = -1
		found     bool
	)
	for _, c := range candidates {
		weight := ComputeVRFWeight(c.Stake.Float64()/float64(common.UnitsPerKRAT), c.VC)
		score := weight * candidateRandom(c.Id, slot, epoch)
		better := !found || score > bestScore ||
			(score == bestScore && bytes.Compare(c.Id[:], best[:]) < 0)
		if better {
			best = c.Id
			bestScore = score
			found = true
		}
	}

	s.cache.Set(cacheKey, best[:])
	return best, nil
}

// SignTranscript signs the domain-separated (epoch, slot) transcript with
// the selector's signing key. BlockHeader has no field for this signature
// and block production does not call SignTranscript, so proposed blocks do
// not carry it.
func (s *VRFSelector) SignTranscript(epoch common.EpochNumber, slot common.SlotNumber) (common.Signature64, error) {
	if s.signingKey == nil {
		return common.Signature64{}, ErrNoSigningKey
	}
	transcript := vrfTranscript(epoch, slot)
	sig := ed25519.Sign(s.signingKey, transcript)
	return common.SignatureFromBytes(sig)
}

// VerifyTranscript verifies a VRF transcript signature against the
// claimed signer's public key.
func VerifyTranscript(signer common.AccountId, epoch common.EpochNumber, slot common.SlotNumber, sig common.Signature64) bool {
	transcript := vrfTranscript(epoch, slot)
	return ed25519.Verify(signer.PublicKey(), transcript, sig.Bytes())
}

func vrfTranscript(epoch common.EpochNumber, slot common.SlotNumber) []byte {
	transcript := make([]byte, 0, len(common.DomainVRFSelect)+16)
	transcript = append(transcript, common.DomainVRFSelect...)
	transcript = append(transcript, common.PutUint64LE(uint64(epoch))...)
	transcript = append(transcript, common.PutUint64LE(uint64(slot))...)
	return transcript
}
