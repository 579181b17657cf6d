// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package node

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/ed25519"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/consensus/kratos"
	"github.com/kratos-chain/kratos/store"
	"github.com/kratos-chain/kratos/tokenomics"
)

const mailboxDrainBatch = 32

// networkPollLoop drains the mailbox on a short, fixed tick. The drain is
// capped per tick so a burst of requests cannot monopolise the lock.
func (n *Node) networkPollLoop() {
	defer n.wg.Done()

	interval := n.config.NetworkPollInterval
	if interval <= 0 {
		interval = DefaultNetworkPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.mu.Lock()
			n.mailbox.drain(n, mailboxDrainBatch)
			n.mu.Unlock()
		}
	}
}

// slotLoop advances the chain by one block per tick, selecting and
// validating a proposer the way a real network round would, minus the
// peer-to-peer broadcast and execution layer that live outside this
// repository.
func (n *Node) slotLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.config.SlotDuration)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.mu.Lock()
			n.processSlot()
			n.mu.Unlock()
		}
	}
}

// processSlot builds, signs (if the node holds the selected proposer's
// key), and validates the next block. Must be called with n.mu held.
func (n *Node) processSlot() {
	parent := n.chainTip.Header
	nextNumber := common.BlockNumber(uint64(parent.Number) + 1)
	epoch := n.clock.EpochFromBlock(nextNumber)
	slot := n.clock.SlotFromBlock(nextNumber)

	active := n.registry.ActiveValidators()
	n.stats.SlotsProcessed++
	n.metrics.SlotsProcessed.Inc()
	n.metrics.ValidatorsActive.Set(float64(len(active)))

	if len(active) == 0 {
		log.Warn("slot skipped: no active validators", "slot", slot, "epoch", epoch)
		return
	}

	candidates := make([]kratos.SelectionCandidate, 0, len(active))
	credits := make([]store.CreditRecord, 0, len(active))
	for _, v := range active {
		record, _ := n.ledger.Get(v.Id)
		candidates = append(candidates, kratos.SelectionCandidate{Id: v.Id, Stake: v.Stake, VC: record.TotalVC()})
		credits = append(credits, store.CreditRecord{
			Validator:   v.Id,
			Vote:        record.VoteCredits,
			Uptime:      record.UptimeCredits,
			Arbitration: record.ArbitrationCredits,
			Seniority:   record.SeniorityCredits,
		})
	}

	proposer, err := n.selector.Select(epoch, slot, candidates)
	if err != nil {
		log.Warn("slot skipped: selection failed", "slot", slot, "err", err)
		return
	}

	txs := n.mempool
	n.mempool = nil

	header := kratos.BlockHeader{
		Number:           nextNumber,
		ParentHash:       parent.Hash(),
		TransactionsRoot: kratos.ComputeTransactionsRoot(txs),
		StateRoot:        n.state.ComputeStateRoot(nextNumber, 0, credits),
		Timestamp:        uint64(time.Now().Unix()),
		Epoch:            epoch,
		Slot:             slot,
		Author:           proposer,
	}
	if n.config.SigningKey != nil && proposer == n.config.ValidatorID {
		sig := ed25519.Sign(n.config.SigningKey, header.SigningPayload())
		header.Signature, _ = common.SignatureFromBytes(sig)
	}

	block := &kratos.Block{Header: header, Transactions: txs}

	if n.config.Validation.VerifySignatures && header.Signature.IsZero() {
		// A block this node did not sign itself (no local key for the
		// selected proposer) cannot carry a valid signature; skip the
		// slot rather than validate a block we know will fail.
		log.Debug("slot has no local signing key for proposer", "slot", slot, "proposer", proposer.ShortString())
		return
	}

	if err := n.validator.Validate(block, &parent, n.registry, header.Timestamp); err != nil {
		n.stats.BlocksRejected++
		n.metrics.BlocksRejected.Inc()
		log.Warn("block failed validation", "slot", slot, "err", err)
		return
	}

	n.chainTip = block
	n.registry.RecordBlockProduced(proposer)
	n.stats.BlocksValidated++
	n.metrics.BlocksValidated.Inc()
	log.Info("block committed", "number", nextNumber, "slot", slot, "epoch", epoch, "author", proposer.ShortString())
}

// maintenanceLoop runs epoch-boundary bookkeeping - unbonding finalization,
// bootstrap-grace eviction, slashing-engine cooldown/critical-count decay,
// seniority credit accrual, and emission/burn - on a coarser tick than the
// slot loop, since none of it needs to run every block.
func (n *Node) maintenanceLoop() {
	defer n.wg.Done()

	interval := n.config.MaintenanceInterval
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastEpoch common.EpochNumber

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.mu.Lock()
			n.runMaintenance(&lastEpoch)
			n.mu.Unlock()
		}
	}
}

func (n *Node) runMaintenance(lastEpoch *common.EpochNumber) {
	currentBlock := n.chainTip.Header.Number
	currentEpoch := n.clock.EpochFromBlock(currentBlock)

	if currentEpoch > *lastEpoch {
		*lastEpoch = currentEpoch

		for _, req := range n.registry.FinalizeUnbonding(currentBlock) {
			bal := n.state.GetAccountBalance(req.ValidatorId)
			n.state.SetAccountBalance(req.ValidatorId, bal.Add(req.Amount))
		}
		n.registry.EnforceBootstrapGrace(currentBlock)
		n.slasher.OnEpochBoundary(currentEpoch)
		n.ledger.UpdateAllSeniority(currentEpoch, n.bootstrapMultiplier)
		n.applyQuarterlyDecay(currentEpoch)
		n.checkpointLedger()
	}

	if n.tokenomics.ShouldEmit(currentBlock) {
		emitted := n.tokenomics.CalculateEmission()
		n.tokenomics.Mint(emitted, currentBlock)
		n.metrics.EmissionMinted.Inc()

		dist := tokenomics.DistributeEmission(emitted)
		n.treasuryBalance = n.treasuryBalance.Add(dist.ToTreasury)
		n.reserveBalance = n.reserveBalance.Add(dist.ToReserve)
		n.creditValidatorShare(dist.ToValidators)

		burnRateBps := n.tokenomics.CurrentBurnRate()
		burned := emitted.MulUint64(burnRateBps).DivUint64(10_000)
		n.tokenomics.Burn(burned)

		log.Info("emission period processed", "block", currentBlock, "minted", emitted, "burned", burned,
			"toValidators", dist.ToValidators, "toTreasury", dist.ToTreasury, "toReserve", dist.ToReserve)
	}
}

// ApplySlash records a slashable event against id and reassembles the
// SlashingEngine's VC/stake deltas into the ledger and registry under a
// single write acquisition: the slashing engine itself never touches the
// ledger or registry directly, only returns the deltas for the owning
// node to apply.
func (n *Node) ApplySlash(id common.AccountId, event kratos.SlashableEvent) (kratos.SlashOutcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	record, ok := n.ledger.Get(id)
	if !ok {
		return kratos.SlashOutcome{}, kratos.ErrValidatorNotFound
	}
	validator, ok := n.registry.Get(id)
	if !ok {
		return kratos.SlashOutcome{}, kratos.ErrValidatorNotFound
	}

	currentBlock := n.chainTip.Header.Number
	currentEpoch := n.clock.EpochFromBlock(currentBlock)
	currentVC := kratos.VCCategoryAmounts{
		Vote:        record.VoteCredits,
		Uptime:      record.UptimeCredits,
		Arbitration: record.ArbitrationCredits,
		Seniority:   record.SeniorityCredits,
	}

	outcome := n.slasher.Slash(id, event, currentEpoch, currentBlock, currentVC, validator.Stake)

	n.ledger.ApplySlash(id, outcome.VCDelta.Vote, outcome.VCDelta.Uptime, outcome.VCDelta.Arbitration, outcome.VCDelta.Seniority)
	if !outcome.StakeDelta.IsZero() {
		if err := n.registry.SlashStake(id, outcome.StakeDelta); err != nil {
			log.Warn("slash stake application failed", "validator", id.ShortString(), "err", err)
		}
	}
	if outcome.ShouldEject {
		n.registry.Eject(id)
		n.metrics.ValidatorsEjected.Inc()
	}

	n.stats.SlashesApplied++
	n.metrics.SlashesApplied.Inc()
	return outcome, nil
}

// applyQuarterlyDecay runs the DecayEngine's quarter-boundary check against
// every active validator and folds any resulting reduction into the VC
// ledger, mirroring ApplySlash's deltas-only cross-component pattern.
// Must be called with n.mu held.
func (n *Node) applyQuarterlyDecay(currentEpoch common.EpochNumber) {
	for _, v := range n.registry.ActiveValidators() {
		record, ok := n.ledger.Get(v.Id)
		if !ok {
			continue
		}
		currentVC := kratos.VCCategoryAmounts{
			Vote:        record.VoteCredits,
			Uptime:      record.UptimeCredits,
			Arbitration: record.ArbitrationCredits,
			Seniority:   record.SeniorityCredits,
		}
		applied, delta, err := n.decay.ApplyDecayIfNeeded(v.Id, currentEpoch, currentVC)
		if err != nil || !applied {
			continue
		}
		n.ledger.ApplyDecay(v.Id, delta.Vote, delta.Uptime, delta.Arbitration, delta.Seniority)
		n.metrics.VCDecayEvents.Inc()
	}
}

// creditValidatorShare splits an emission period's validator share
// proportionally by stake across the active set. Must be called with
// n.mu held.
func (n *Node) creditValidatorShare(amount common.Balance) {
	active := n.registry.ActiveValidators()
	totalStake := n.registry.TotalStake()
	if len(active) == 0 || totalStake.IsZero() {
		return
	}
	for _, v := range active {
		if v.Stake.IsZero() {
			continue
		}
		share := amount.MulUint64(v.Stake.Uint64()).DivUint64(totalStake.Uint64())
		if err := n.registry.AddStake(v.Id, share); err != nil {
			log.Warn("validator reward credit failed", "validator", v.Id.ShortString(), "err", err)
		}
	}
}

// bootstrapMultiplier returns BootstrapVCMultiplier for a validator still
// within the bootstrap era, 1 otherwise.
func (n *Node) bootstrapMultiplier(id common.AccountId) uint32 {
	if n.clock.IsBootstrapEra(n.chainTip.Header.Number) {
		return kratos.BootstrapVCMultiplier
	}
	return 1
}

// statsLoop periodically logs a summary of node activity.
func (n *Node) statsLoop() {
	defer n.wg.Done()

	interval := n.config.StatsInterval
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.mu.RLock()
			stats := n.stats
			tip := n.chainTip.Header.Number
			active := len(n.registry.ActiveValidators())
			n.mu.RUnlock()

			log.Info("kratos node stats",
				"uptime", time.Since(stats.StartTime).Round(time.Second),
				"chainTip", tip,
				"activeValidators", active,
				"slotsProcessed", stats.SlotsProcessed,
				"blocksValidated", stats.BlocksValidated,
				"blocksRejected", stats.BlocksRejected)
		}
	}
}
