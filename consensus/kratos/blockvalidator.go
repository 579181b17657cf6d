// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/kratos-chain/kratos/common"
)

// DefaultTimestampToleranceSecs is the default allowance for a block's
// timestamp to sit ahead of the validating node's clock.
const DefaultTimestampToleranceSecs uint64 = 60

// BlockHeader holds the consensus-relevant header fields.
type BlockHeader struct {
	Number           common.BlockNumber
	ParentHash       common.Hash
	TransactionsRoot common.Hash
	StateRoot        common.Hash
	Timestamp        uint64
	Epoch            common.EpochNumber
	Slot             common.SlotNumber
	Author           common.AccountId
	Signature        common.Signature64
}

// SigningPayload returns the domain-separated bytes a header's signature
// is computed over. Block producers sign exactly these bytes.
func (h BlockHeader) SigningPayload() []byte {
	return h.signingPayload()
}

func (h BlockHeader) signingPayload() []byte {
	payload := make([]byte, 0, 128)
	payload = append(payload, common.DomainBlockHeader...)
	payload = append(payload, common.PutUint64LE(uint64(h.Number))...)
	payload = append(payload, h.ParentHash[:]...)
	payload = append(payload, h.TransactionsRoot[:]...)
	payload = append(payload, h.StateRoot[:]...)
	payload = append(payload, common.PutUint64LE(h.Timestamp)...)
	payload = append(payload, common.PutUint64LE(uint64(h.Epoch))...)
	payload = append(payload, common.PutUint64LE(uint64(h.Slot))...)
	return payload
}

// Hash returns the header's content hash, independent of its signature.
func (h BlockHeader) Hash() common.Hash {
	return common.HashBytes(h.signingPayload())
}

// VerifySignature reports whether h.Signature is a valid signature by
// h.Author over the header's signing payload.
func (h BlockHeader) VerifySignature() bool {
	if h.Signature.IsZero() {
		return h.Number == 0 && h.Author.IsZero()
	}
	return VerifyEd25519(h.Author, h.signingPayload(), h.Signature)
}

// Block pairs a header with its transaction body.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// ValidationConfig tunes BlockValidator's behavior.
type ValidationConfig struct {
	TimestampToleranceSecs uint64
	VerifySignatures       bool
	VerifyMerkleRoots      bool
	VerifySlotAssignment   bool
}

// DefaultValidationConfig returns the standard configuration: all checks
// enabled, 60-second timestamp tolerance.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		TimestampToleranceSecs: DefaultTimestampToleranceSecs,
		VerifySignatures:       true,
		VerifyMerkleRoots:      true,
		VerifySlotAssignment:   true,
	}
}

// BlockValidator performs the ordered structural, cryptographic,
// temporal, authorship, and slot-assignment checks on candidate blocks.
type BlockValidator struct {
	config   ValidationConfig
	selector *VRFSelector
	clock    *EpochClock
}

// NewBlockValidator constructs a BlockValidator.
func NewBlockValidator(config ValidationConfig, selector *VRFSelector, clock *EpochClock) *BlockValidator {
	return &BlockValidator{config: config, selector: selector, clock: clock}
}

// Validate runs every enabled check against block, given its parent and
// the active validator set (used to derive slot-assignment candidates).
// nowUnix is the validating node's current wall-clock time.
func (v *BlockValidator) Validate(block *Block, parent *BlockHeader, registry *ValidatorRegistry, nowUnix uint64) error {
	if block.Header.Number == 0 {
		return v.validateGenesis(block)
	}

	if err := v.validateBasicStructure(&block.Header, parent); err != nil {
		return err
	}
	if v.config.VerifySignatures {
		if err := v.validateSignature(&block.Header); err != nil {
			return err
		}
	}
	if err := v.validateAuthorAuthorization(&block.Header, registry); err != nil {
		return err
	}
	if err := v.validateTimestamp(&block.Header, parent, nowUnix); err != nil {
		return err
	}
	if v.config.VerifyMerkleRoots {
		if err := v.validateMerkleRoot(block); err != nil {
			return err
		}
	}
	return v.validateTransactions(block.Transactions)
}

func (v *BlockValidator) validateBasicStructure(h *BlockHeader, parent *BlockHeader) error {
	if uint64(h.Number) != uint64(parent.Number)+1 {
		return wrap(ErrInvalidBlockNumber, "block %d, parent %d", h.Number, parent.Number)
	}
	if h.ParentHash != parent.Hash() {
		return wrap(ErrInvalidParentHash, "block %d", h.Number)
	}
	if uint64(h.Epoch) < uint64(parent.Epoch) {
		return wrap(ErrInvalidEpoch, "block %d epoch %d before parent epoch %d", h.Number, h.Epoch, parent.Epoch)
	}
	if h.Epoch == parent.Epoch && uint64(h.Slot) <= uint64(parent.Slot) {
		return wrap(ErrInvalidSlot, "block %d slot %d not after parent slot %d", h.Number, h.Slot, parent.Slot)
	}
	return nil
}

func (v *BlockValidator) validateSignature(h *BlockHeader) error {
	if !h.VerifySignature() {
		return wrap(ErrInvalidSignature, "block %d", h.Number)
	}
	return nil
}

// validateAuthorAuthorization checks that the header's author is an
// active validator, then (if enabled) that it was correctly assigned the
// slot.
func (v *BlockValidator) validateAuthorAuthorization(h *BlockHeader, registry *ValidatorRegistry) error {
	if !registry.IsActive(h.Author) {
		return wrap(ErrUnauthorizedAuthor, "block %d author %s", h.Number, h.Author.ShortString())
	}
	if v.config.VerifySlotAssignment {
		return v.validateSlotAssignment(h, registry)
	}
	return nil
}

// validateSlotAssignment recomputes slot selection from the active
// validator set (using stake and blocks_produced as the VC proxy) and
// compares it to the header's author. When the candidate list is empty,
// or selection itself errors, the check is skipped rather than failing so
// bootstrap and fork replay are never halted. An actual mismatch between
// the recomputed author and the header's author is not one of those
// cases: it is returned as ErrWrongSlotAuthor.
func (v *BlockValidator) validateSlotAssignment(h *BlockHeader, registry *ValidatorRegistry) error {
	active := registry.ActiveValidators()
	if len(active) == 0 {
		log.Warn("slot assignment check skipped: empty active set", "block", h.Number)
		return nil
	}

	candidates := make([]SelectionCandidate, 0, len(active))
	for _, info := range active {
		candidates = append(candidates, SelectionCandidate{
			Id:    info.Id,
			Stake: info.Stake,
			VC:    info.BlocksProduced,
		})
	}

	selected, err := v.selector.Select(h.Epoch, h.Slot, candidates)
	if err != nil {
		log.Warn("slot assignment check skipped: selection failed", "block", h.Number, "err", err)
		return nil
	}
	if selected != h.Author {
		return wrap(ErrWrongSlotAuthor, "block %d slot %d: expected %s, got %s", h.Number, h.Slot, selected.ShortString(), h.Author.ShortString())
	}
	return nil
}

func (v *BlockValidator) validateTimestamp(h *BlockHeader, parent *BlockHeader, nowUnix uint64) error {
	if h.Timestamp <= parent.Timestamp {
		return wrap(ErrTimestampTooOld, "block %d timestamp %d not after parent %d", h.Number, h.Timestamp, parent.Timestamp)
	}
	tolerance := v.config.TimestampToleranceSecs
	if tolerance == 0 {
		tolerance = DefaultTimestampToleranceSecs
	}
	if h.Timestamp > nowUnix+tolerance {
		return wrap(ErrTimestampTooFar, "block %d timestamp %d exceeds now+tolerance %d", h.Number, h.Timestamp, nowUnix+tolerance)
	}
	return nil
}

func (v *BlockValidator) validateMerkleRoot(block *Block) error {
	root := ComputeTransactionsRoot(block.Transactions)
	if root != block.Header.TransactionsRoot {
		return wrap(ErrInvalidMerkleRoot, "block %d", block.Header.Number)
	}
	return nil
}

func (v *BlockValidator) validateTransactions(txs []Transaction) error {
	for i, tx := range txs {
		if !tx.VerifySignature() {
			return wrap(ErrInvalidTransaction, "transaction %d has invalid signature", i)
		}
	}
	return nil
}

// validateGenesis checks that a block numbered 0 is a valid genesis
// block: zero parent hash and no transactions.
func (v *BlockValidator) validateGenesis(block *Block) error {
	if block.Header.ParentHash != common.ZeroHash {
		return wrap(ErrInvalidGenesis, "genesis parent hash must be zero")
	}
	if len(block.Transactions) != 0 {
		return wrap(ErrInvalidGenesis, "genesis block must have no transactions")
	}
	return nil
}
