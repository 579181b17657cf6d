// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"math"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kratos-chain/kratos/common"
)

// Slashing retention and decay constants. Records are kept for 104 epochs
// and bounded overall; critical-event counts decay one step per 26 quiet
// epochs.
const (
	MaxSlashingRecords            int    = 10_000
	SlashingRecordRetentionEpochs uint64 = 104
	CriticalCountDecayEpochs      uint64 = 26
	ejectionCriticalCount         uint32 = 3
)

// SlashingSeverity ranks the punitive weight of a SlashableEvent.
type SlashingSeverity uint8

const (
	SeverityLow SlashingSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String implements fmt.Stringer for log output.
func (s SlashingSeverity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

// VCSlashPercent returns the fraction of total VC slashed for this
// severity.
func (s SlashingSeverity) VCSlashPercent() float64 {
	switch s {
	case SeverityCritical:
		return 0.50
	case SeverityHigh:
		return 0.25
	case SeverityMedium:
		return 0.10
	default:
		return 0.05
	}
}

// StakeSlashPercent returns the fraction of stake slashed for this
// severity.
func (s SlashingSeverity) StakeSlashPercent() float64 {
	return float64(s.StakeSlashBps()) / 10_000
}

// StakeSlashBps returns the stake slash rate in basis points. Stake math
// stays in integer basis points so balances above the uint64 range are
// slashed exactly.
func (s SlashingSeverity) StakeSlashBps() uint64 {
	switch s {
	case SeverityCritical:
		return 2_000
	case SeverityHigh:
		return 500
	case SeverityMedium:
		return 100
	default:
		return 0
	}
}

// RequiresCooldown reports whether this severity installs a cooldown
// window (Critical and High only).
func (s SlashingSeverity) RequiresCooldown() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// CooldownEpochs returns the cooldown length in epochs for this severity.
func (s SlashingSeverity) CooldownEpochs() uint64 {
	switch s {
	case SeverityCritical:
		return 52
	case SeverityHigh:
		return 12
	default:
		return 0
	}
}

// SlashableEventKind enumerates the punishable offenses.
type SlashableEventKind uint8

const (
	EventDoubleSigning SlashableEventKind = iota
	EventEquivocation
	EventArbitrationMisconduct
	EventInvalidGovernanceExecution
	EventExtendedDowntime
	EventRepeatedLowParticipation
)

// SlashableEvent describes an offense to be punished. EpochsOffline and
// AvgParticipation are only meaningful for EventExtendedDowntime and
// EventRepeatedLowParticipation respectively.
type SlashableEvent struct {
	Kind             SlashableEventKind
	EpochsOffline    uint64
	AvgParticipation float64
}

// Severity maps an event to its punitive severity. Downtime and
// low-participation events grade on their magnitude.
func (e SlashableEvent) Severity() SlashingSeverity {
	switch e.Kind {
	case EventDoubleSigning, EventEquivocation:
		return SeverityCritical
	case EventArbitrationMisconduct, EventInvalidGovernanceExecution:
		return SeverityHigh
	case EventExtendedDowntime:
		if e.EpochsOffline >= 12 {
			return SeverityMedium
		}
		return SeverityLow
	case EventRepeatedLowParticipation:
		if e.AvgParticipation < 0.50 {
			return SeverityMedium
		}
		return SeverityLow
	default:
		return SeverityLow
	}
}

// SlashingRecord is the historical record of a single slash.
type SlashingRecord struct {
	ValidatorId   common.AccountId
	Event         SlashableEvent
	SlashEpoch    common.EpochNumber
	SlashBlock    common.BlockNumber
	VCSlashed     uint64
	StakeSlashed  common.Balance
	CooldownUntil *common.EpochNumber
	Ejected       bool
}

// CooldownState tracks an active cooldown window for a validator.
type CooldownState struct {
	Reason             SlashableEventKind
	StartEpoch         common.EpochNumber
	EndEpoch           common.EpochNumber
	CriticalEventCount uint32
}

type criticalCountState struct {
	count             uint32
	lastCriticalEpoch common.EpochNumber
}

// VCCategoryAmounts is the per-category breakdown of a VC change (slash or
// decay), in the fixed category order vote/uptime/arbitration/seniority
// used throughout the consensus core.
type VCCategoryAmounts struct {
	Vote, Uptime, Arbitration, Seniority uint32
}

// SlashOutcome is the result of SlashingEngine.Slash: the record to
// persist plus the deltas the caller must apply to the VC ledger and
// validator registry.
type SlashOutcome struct {
	Record        SlashingRecord
	VCDelta       VCCategoryAmounts
	StakeDelta    common.Balance
	ShouldEject   bool
	CooldownUntil *common.EpochNumber
}

// SlashingEngine computes and tracks validator slashes, cooldowns, and
// ejections. It is a pure value transformer over the records passed in:
// the caller applies the returned deltas to the VC ledger and registry
// under its own lock.
type SlashingEngine struct {
	mu sync.Mutex

	records        []SlashingRecord
	cooldowns      map[common.AccountId]CooldownState
	criticalCounts map[common.AccountId]criticalCountState
}

// NewSlashingEngine constructs an empty engine.
func NewSlashingEngine() *SlashingEngine {
	return &SlashingEngine{
		cooldowns:      make(map[common.AccountId]CooldownState),
		criticalCounts: make(map[common.AccountId]criticalCountState),
	}
}

// safeSlashAmount guards against NaN/Inf/negative fractions and overflow.
func safeSlashAmount(total uint64, fraction float64) uint64 {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) || fraction < 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}
	amount := float64(total) * fraction
	if math.IsNaN(amount) || math.IsInf(amount, 1) {
		return total
	}
	rounded := common.SafeFloatToUint64(math.Round(amount))
	if rounded > total {
		return total
	}
	return rounded
}

// applyProportionalVCSlash splits slashAmount proportionally across the
// four categories via integer division, then assigns the residual to
// whichever category currently holds the most credits (ties favoring the
// seniority end of the order), so the applied total equals slashAmount
// exactly.
func applyProportionalVCSlash(current VCCategoryAmounts, totalVC uint64, slashAmount uint64) VCCategoryAmounts {
	if totalVC == 0 || slashAmount == 0 {
		return VCCategoryAmounts{}
	}

	voteShare := uint64(current.Vote) * slashAmount / totalVC
	uptimeShare := uint64(current.Uptime) * slashAmount / totalVC
	arbShare := uint64(current.Arbitration) * slashAmount / totalVC
	seniorityShare := uint64(current.Seniority) * slashAmount / totalVC

	proportionalSum := voteShare + uptimeShare + arbShare + seniorityShare
	residual := slashAmount - proportionalSum

	out := VCCategoryAmounts{
		Vote:        capDelta(current.Vote, voteShare),
		Uptime:      capDelta(current.Uptime, uptimeShare),
		Arbitration: capDelta(current.Arbitration, arbShare),
		Seniority:   capDelta(current.Seniority, seniorityShare),
	}

	if residual > 0 {
		largest := largestCategory(current)
		switch largest {
		case 0:
			out.Vote = capDelta(current.Vote, uint64(out.Vote)+residual)
		case 1:
			out.Uptime = capDelta(current.Uptime, uint64(out.Uptime)+residual)
		case 2:
			out.Arbitration = capDelta(current.Arbitration, uint64(out.Arbitration)+residual)
		default:
			out.Seniority = capDelta(current.Seniority, uint64(out.Seniority)+residual)
		}
	}
	return out
}

func capDelta(have uint32, want uint64) uint32 {
	if want > uint64(have) {
		return have
	}
	return uint32(want)
}

// largestCategory returns the index (0=vote,1=uptime,2=arbitration,
// 3=seniority) of the category with the most credits, with ties going to
// the highest index.
func largestCategory(c VCCategoryAmounts) int {
	best := 0
	bestVal := c.Vote
	if c.Uptime >= bestVal {
		best, bestVal = 1, c.Uptime
	}
	if c.Arbitration >= bestVal {
		best, bestVal = 2, c.Arbitration
	}
	if c.Seniority >= bestVal {
		best = 3
	}
	return best
}

// Slash computes the outcome of applying event to a validator with the
// given current VC/stake state, updating the engine's cooldown and
// critical-count tracking. It does not itself mutate the VC ledger or
// validator registry; callers apply the returned deltas.
func (e *SlashingEngine) Slash(
	id common.AccountId,
	event SlashableEvent,
	currentEpoch common.EpochNumber,
	currentBlock common.BlockNumber,
	currentVC VCCategoryAmounts,
	currentStake common.Balance,
) SlashOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	severity := event.Severity()
	totalVC := uint64(currentVC.Vote) + uint64(currentVC.Uptime) + uint64(currentVC.Arbitration) + uint64(currentVC.Seniority)

	vcSlashAmount := safeSlashAmount(totalVC, severity.VCSlashPercent())
	vcDelta := applyProportionalVCSlash(currentVC, totalVC, vcSlashAmount)

	remainingVC := common.SaturatingSubU64(totalVC, vcSlashAmount)

	var stakeDelta common.Balance
	if severity == SeverityCritical || remainingVC == 0 {
		stakeDelta = currentStake.MulUint64(severity.StakeSlashBps()).DivUint64(10_000)
	}

	cooldownUntil, eject := e.determineCooldownEjection(id, event, severity, currentEpoch)

	record := SlashingRecord{
		ValidatorId:   id,
		Event:         event,
		SlashEpoch:    currentEpoch,
		SlashBlock:    currentBlock,
		VCSlashed:     vcSlashAmount,
		StakeSlashed:  stakeDelta,
		CooldownUntil: cooldownUntil,
		Ejected:       eject,
	}
	e.records = append(e.records, record)
	if len(e.records) > MaxSlashingRecords {
		e.pruneLocked(currentEpoch)
	}

	log.Warn("validator slashed", "validator", id.ShortString(), "severity", severity, "vcSlashed", vcSlashAmount, "stakeSlashed", stakeDelta, "ejected", eject)

	return SlashOutcome{
		Record:        record,
		VCDelta:       vcDelta,
		StakeDelta:    stakeDelta,
		ShouldEject:   eject,
		CooldownUntil: cooldownUntil,
	}
}

// determineCooldownEjection decays id's critical-event count (if any) by
// the number of elapsed CriticalCountDecayEpochs windows before
// incrementing it, then installs a cooldown or ejects.
func (e *SlashingEngine) determineCooldownEjection(id common.AccountId, event SlashableEvent, severity SlashingSeverity, currentEpoch common.EpochNumber) (*common.EpochNumber, bool) {
	if severity == SeverityCritical {
		state := e.criticalCounts[id]
		if state.count > 0 {
			elapsed := uint64(currentEpoch) - uint64(state.lastCriticalEpoch)
			decay := uint32(elapsed / CriticalCountDecayEpochs)
			state.count = common.SaturatingSubU32(state.count, decay)
		}
		state.count++
		state.lastCriticalEpoch = currentEpoch
		e.criticalCounts[id] = state

		if state.count >= ejectionCriticalCount {
			delete(e.cooldowns, id)
			return nil, true
		}
	}

	if !severity.RequiresCooldown() {
		return nil, false
	}

	end := common.EpochNumber(uint64(currentEpoch) + severity.CooldownEpochs())
	e.cooldowns[id] = CooldownState{
		Reason:             event.Kind,
		StartEpoch:         currentEpoch,
		EndEpoch:           end,
		CriticalEventCount: e.criticalCounts[id].count,
	}
	return &end, false
}

// IsInCooldown reports whether id is currently within a cooldown window.
// The boundary is inclusive: a validator is still in cooldown on its
// EndEpoch.
func (e *SlashingEngine) IsInCooldown(id common.AccountId, currentEpoch common.EpochNumber) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cd, ok := e.cooldowns[id]
	if !ok {
		return false
	}
	return uint64(currentEpoch) <= uint64(cd.EndEpoch)
}

// OnEpochBoundary runs the engine's periodic maintenance: expired-cooldown
// cleanup, critical-count decay, and slashing-record pruning.
func (e *SlashingEngine) OnEpochBoundary(currentEpoch common.EpochNumber) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, cd := range e.cooldowns {
		if uint64(currentEpoch) > uint64(cd.EndEpoch) {
			delete(e.cooldowns, id)
		}
	}

	for id, state := range e.criticalCounts {
		elapsed := uint64(currentEpoch) - uint64(state.lastCriticalEpoch)
		decay := uint32(elapsed / CriticalCountDecayEpochs)
		newCount := common.SaturatingSubU32(state.count, decay)
		if newCount == 0 {
			delete(e.criticalCounts, id)
			continue
		}
		state.count = newCount
		e.criticalCounts[id] = state
	}

	e.pruneLocked(currentEpoch)
}

// pruneLocked removes slashing records older than the retention window
// and, if still over MaxSlashingRecords, truncates to the most recent
// entries. Must be called with e.mu held.
func (e *SlashingEngine) pruneLocked(currentEpoch common.EpochNumber) {
	cutoff := common.SaturatingSubU64(uint64(currentEpoch), SlashingRecordRetentionEpochs)
	kept := e.records[:0:0]
	for _, r := range e.records {
		if uint64(r.SlashEpoch) >= cutoff {
			kept = append(kept, r)
		}
	}
	e.records = kept

	if len(e.records) > MaxSlashingRecords {
		sort.Slice(e.records, func(i, j int) bool {
			return e.records[i].SlashEpoch > e.records[j].SlashEpoch
		})
		e.records = e.records[:MaxSlashingRecords]
	}
}

// GetValidatorSlashes returns all retained slashing records for id.
func (e *SlashingEngine) GetValidatorSlashes(id common.AccountId) []SlashingRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []SlashingRecord
	for _, r := range e.records {
		if r.ValidatorId == id {
			out = append(out, r)
		}
	}
	return out
}

// GetAllSlashes returns a copy of every retained slashing record.
func (e *SlashingEngine) GetAllSlashes() []SlashingRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SlashingRecord, len(e.records))
	copy(out, e.records)
	return out
}
