// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package node

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/consensus/kratos"
)

// Checkpoint key prefixes. Credit records live under one prefix so a
// restore can prefix-iterate them without touching other namespaces.
var (
	ckptCreditsPrefix = []byte("vc/")
	ckptTipKey        = []byte("meta/tip")
)

func creditsKey(id common.AccountId) []byte {
	key := make([]byte, 0, len(ckptCreditsPrefix)+common.AccountIdSize)
	key = append(key, ckptCreditsPrefix...)
	key = append(key, id.Bytes()...)
	return key
}

// encodeCreditsRecord serializes the fields of a credit record that must
// survive a restart, as fixed-width little-endian values.
func encodeCreditsRecord(r kratos.ValidatorCreditsRecord) []byte {
	out := make([]byte, 0, 13*8)
	for _, v := range []uint64{
		uint64(r.VoteCredits), uint64(r.UptimeCredits),
		uint64(r.ArbitrationCredits), uint64(r.SeniorityCredits),
		uint64(r.VotesToday), uint64(r.VotesThisMonth), uint64(r.ArbitrationsThisYear),
		uint64(r.LastDailyResetEpoch), uint64(r.LastMonthlyResetEpoch), uint64(r.LastYearlyResetEpoch),
		uint64(r.ActiveEpochs), uint64(r.ActivationBlock), uint64(r.LastSeniorityCreditEpoch),
	} {
		out = append(out, common.PutUint64LE(v)...)
	}
	return out
}

// decodeCreditsRecord is the inverse of encodeCreditsRecord. Returns false
// if the value is not the expected length.
func decodeCreditsRecord(data []byte) (kratos.ValidatorCreditsRecord, bool) {
	const fields = 13
	if len(data) != fields*8 {
		return kratos.ValidatorCreditsRecord{}, false
	}
	vals := make([]uint64, fields)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	return kratos.ValidatorCreditsRecord{
		VoteCredits:              uint32(vals[0]),
		UptimeCredits:            uint32(vals[1]),
		ArbitrationCredits:       uint32(vals[2]),
		SeniorityCredits:         uint32(vals[3]),
		VotesToday:               uint32(vals[4]),
		VotesThisMonth:           uint32(vals[5]),
		ArbitrationsThisYear:     uint32(vals[6]),
		LastDailyResetEpoch:      common.EpochNumber(vals[7]),
		LastMonthlyResetEpoch:    common.EpochNumber(vals[8]),
		LastYearlyResetEpoch:     common.EpochNumber(vals[9]),
		ActiveEpochs:             uint32(vals[10]),
		ActivationBlock:          common.BlockNumber(vals[11]),
		LastSeniorityCreditEpoch: common.EpochNumber(vals[12]),
	}, true
}

// restoreLedger rebuilds the VC ledger from a previously written
// checkpoint. Malformed entries are logged and skipped rather than
// aborting startup.
func (n *Node) restoreLedger() {
	if n.checkpoint == nil {
		return
	}
	restored := 0
	err := n.checkpoint.IteratePrefix(ckptCreditsPrefix, func(key, value []byte) error {
		id, err := common.AccountIdFromBytes(key[len(ckptCreditsPrefix):])
		if err != nil {
			log.Warn("skipping malformed ledger checkpoint key", "err", err)
			return nil
		}
		record, ok := decodeCreditsRecord(value)
		if !ok {
			log.Warn("skipping malformed ledger checkpoint value", "validator", id.ShortString())
			return nil
		}
		n.ledger.Restore(id, record)
		restored++
		return nil
	})
	if err != nil {
		log.Warn("ledger checkpoint restore failed", "err", err)
		return
	}
	if restored > 0 {
		log.Info("ledger restored from checkpoint", "validators", restored)
	}
}

// checkpointLedger persists a snapshot of every active validator's credit
// record plus the chain-tip number in one atomic batch. A node with no
// checkpoint store configured keeps everything in memory and this is a
// no-op. Must be called with n.mu held.
func (n *Node) checkpointLedger() {
	if n.checkpoint == nil {
		return
	}

	batch := n.checkpoint.NewBatch()
	for _, v := range n.registry.ActiveValidators() {
		record, ok := n.ledger.Get(v.Id)
		if !ok {
			continue
		}
		if err := batch.Put(creditsKey(v.Id), encodeCreditsRecord(record)); err != nil {
			log.Warn("ledger checkpoint write failed", "validator", v.Id.ShortString(), "err", err)
			return
		}
	}
	if err := batch.Put(ckptTipKey, common.PutUint64LE(uint64(n.chainTip.Header.Number))); err != nil {
		log.Warn("ledger checkpoint tip write failed", "err", err)
		return
	}
	if err := batch.Commit(); err != nil {
		log.Warn("ledger checkpoint commit failed", "err", err)
	}
}
