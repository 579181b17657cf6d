// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"

	"github.com/kratos-chain/kratos/common"
)

// Validator lifecycle and staking constants. The unbonding period is
// 403,200 blocks (28 days of 6-second slots); candidacy and bootstrap
// grace windows are each one week.
const (
	MinValidatorStakeKRAT uint64 = 50_000
	UnbondingPeriodBlocks uint64 = 403_200
	MaxEarlyValidators    int    = 21
	CandidacyExpiration   uint64 = 100_800
)

// MinValidatorStake is MinValidatorStakeKRAT expressed as a Balance.
func MinValidatorStake() common.Balance {
	return common.KRAT(MinValidatorStakeKRAT)
}

// ValidatorStatus is the lifecycle state of a ValidatorInfo entry.
type ValidatorStatus uint8

const (
	StatusCandidate ValidatorStatus = iota
	StatusActive
	StatusUnbonding
	StatusEjected
)

// ValidatorInfo is the registry's per-validator record.
type ValidatorInfo struct {
	Id                   common.AccountId
	Stake                common.Balance
	BlocksProduced       uint64
	IsBootstrapValidator bool
	JoinedBlock          common.BlockNumber
	CandidacyBlock       common.BlockNumber
	Status               ValidatorStatus
}

// UnbondingRequest tracks a validator's pending stake withdrawal. At most
// one request may be outstanding per account at a time; Amount was
// already deducted from the validator's stake and the
// registry's cached total stake atomically at request time, so it can
// never be double-counted by a concurrent selection.
type UnbondingRequest struct {
	ValidatorId    common.AccountId
	Amount         common.Balance
	RequestedBlock common.BlockNumber
	UnbondAtBlock  common.BlockNumber
}

// ValidatorRegistry owns the full set of validators and their lifecycle
// transitions: candidacy, activation, unbonding, and ejection. Active and
// ejected membership is tracked with explicit sets instead of re-deriving
// membership by scanning the full validator map on every query.
type ValidatorRegistry struct {
	mu sync.RWMutex

	clock *EpochClock

	validators map[common.AccountId]*ValidatorInfo
	unbonding  map[common.AccountId]*UnbondingRequest

	active  mapset.Set[common.AccountId]
	ejected mapset.Set[common.AccountId]

	earlyValidatorCount int
	totalStake          common.Balance
}

// NewValidatorRegistry constructs an empty registry.
func NewValidatorRegistry(clock *EpochClock) *ValidatorRegistry {
	return &ValidatorRegistry{
		clock:      clock,
		validators: make(map[common.AccountId]*ValidatorInfo),
		unbonding:  make(map[common.AccountId]*UnbondingRequest),
		active:     mapset.NewThreadUnsafeSet[common.AccountId](),
		ejected:    mapset.NewThreadUnsafeSet[common.AccountId](),
		totalStake: common.ZeroBalance,
	}
}

// TotalStake returns the registry's cached sum of every member's stake.
func (r *ValidatorRegistry) TotalStake() common.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalStake
}

// RegisterCandidate admits id as a candidate with the given stake at
// currentBlock. Stake below MinValidatorStake is rejected unless the
// candidate is flagged as a bootstrap validator, whose stake may start at
// zero during the bootstrap era.
func (r *ValidatorRegistry) RegisterCandidate(id common.AccountId, stake common.Balance, isBootstrap bool, currentBlock common.BlockNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[id]; exists {
		return wrap(ErrValidatorExists, "account %s", id.ShortString())
	}
	if stake.LessThan(MinValidatorStake()) && !(isBootstrap && r.clock.IsBootstrapEra(currentBlock)) {
		return wrap(ErrInsufficientStake, "account %s has %s, need %s", id.ShortString(), stake, MinValidatorStake())
	}
	if r.clock.IsBootstrapEra(currentBlock) && isBootstrap {
		if r.earlyValidatorCount >= MaxEarlyValidators {
			return wrap(ErrTooManyEarlyValidators, "max %d early validators reached", MaxEarlyValidators)
		}
		r.earlyValidatorCount++
	}

	r.validators[id] = &ValidatorInfo{
		Id:                   id,
		Stake:                stake,
		IsBootstrapValidator: isBootstrap,
		JoinedBlock:          currentBlock,
		CandidacyBlock:       currentBlock,
		Status:               StatusCandidate,
	}
	r.totalStake = r.totalStake.Add(stake)
	log.Debug("validator candidacy registered", "validator", id.ShortString(), "stake", stake, "bootstrap", isBootstrap)
	return nil
}

// AddStake credits id's stake by amount, saturating on overflow and
// updating the cached total stake.
func (r *ValidatorRegistry) AddStake(id common.AccountId, amount common.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.validators[id]
	if !ok {
		return wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	v.Stake = v.Stake.Add(amount)
	r.totalStake = r.totalStake.Add(amount)
	return nil
}

// SlashStake saturating-subtracts amount from id's stake; the removed
// tokens are considered burned by the economic layer and are not credited
// anywhere within the registry.
func (r *ValidatorRegistry) SlashStake(id common.AccountId, amount common.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.validators[id]
	if !ok {
		return wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	before := v.Stake
	v.Stake = v.Stake.Sub(amount)
	removed := before.Sub(v.Stake)
	r.totalStake = r.totalStake.Sub(removed)
	return nil
}

// Activate promotes a candidate to active status, provided its candidacy
// has not expired (CandidacyExpiration blocks after CandidacyBlock).
func (r *ValidatorRegistry) Activate(id common.AccountId, currentBlock common.BlockNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.validators[id]
	if !ok {
		return wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	if v.Status != StatusCandidate {
		return nil
	}
	if uint64(currentBlock) > uint64(v.CandidacyBlock)+CandidacyExpiration {
		delete(r.validators, id)
		r.totalStake = r.totalStake.Sub(v.Stake)
		return wrap(ErrCandidacyExpired, "account %s", id.ShortString())
	}
	v.Status = StatusActive
	r.active.Add(id)
	log.Info("validator activated", "validator", id.ShortString())
	return nil
}

// StartUnbonding initiates withdrawal of amount from id's stake at
// currentBlock. At most one outstanding
// request is permitted per account. The amount is deducted from the
// validator's stake (and the registry's cached total) atomically and
// immediately, so no subsequent selection can ever count it - the
// validator otherwise remains active and eligible with its reduced stake
// until the request is withdrawn.
func (r *ValidatorRegistry) StartUnbonding(id common.AccountId, amount common.Balance, currentBlock common.BlockNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.validators[id]
	if !ok {
		return wrap(ErrValidatorNotFound, "account %s", id.ShortString())
	}
	if _, exists := r.unbonding[id]; exists {
		return wrap(ErrUnbondingAlreadyActive, "account %s", id.ShortString())
	}
	if amount.Cmp(v.Stake) > 0 {
		return wrap(ErrInsufficientStake, "account %s has %s, requested %s", id.ShortString(), v.Stake, amount)
	}

	v.Stake = v.Stake.Sub(amount)
	r.totalStake = r.totalStake.Sub(amount)
	r.unbonding[id] = &UnbondingRequest{
		ValidatorId:    id,
		Amount:         amount,
		RequestedBlock: currentBlock,
		UnbondAtBlock:  common.BlockNumber(uint64(currentBlock) + UnbondingPeriodBlocks),
	}
	log.Info("unbonding started", "validator", id.ShortString(), "amount", amount, "ready", r.unbonding[id].UnbondAtBlock)
	return nil
}

// WithdrawUnbonded releases id's single outstanding unbonding request once
// currentBlock has reached its UnbondAtBlock, returning the released
// amount and clearing the request. Fails ErrUnbondingNotReady while still
// within the unbonding
// period, and ErrNoUnbondingRequest if none is outstanding.
func (r *ValidatorRegistry) WithdrawUnbonded(id common.AccountId, currentBlock common.BlockNumber) (common.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.unbonding[id]
	if !ok {
		return common.ZeroBalance, wrap(ErrNoUnbondingRequest, "account %s", id.ShortString())
	}
	if uint64(currentBlock) < uint64(req.UnbondAtBlock) {
		return common.ZeroBalance, wrap(ErrUnbondingNotReady, "account %s ready at %d, now %d", id.ShortString(), req.UnbondAtBlock, currentBlock)
	}
	delete(r.unbonding, id)
	return req.Amount, nil
}

// FinalizeUnbonding releases every unbonding request whose UnbondAtBlock
// has passed as of currentBlock, clearing them and returning the released
// requests so the caller can credit the corresponding balances. Intended
// to run as epoch/block-boundary maintenance alongside WithdrawUnbonded's
// single-account path.
func (r *ValidatorRegistry) FinalizeUnbonding(currentBlock common.BlockNumber) []*UnbondingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []*UnbondingRequest
	for id, req := range r.unbonding {
		if uint64(currentBlock) >= uint64(req.UnbondAtBlock) {
			released = append(released, req)
			delete(r.unbonding, id)
		}
	}
	return released
}

// Eject removes id from the active set permanently (e.g. after repeated
// critical slashing), without releasing its stake on a timer.
func (r *ValidatorRegistry) Eject(id common.AccountId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.validators[id]; ok {
		v.Status = StatusEjected
	}
	r.active.Remove(id)
	r.ejected.Add(id)
	log.Warn("validator ejected", "validator", id.ShortString())
}

// EnforceBootstrapGrace removes bootstrap validators that have not
// supplied the minimum stake by the end of the post-era grace window.
// Zero-stake authoring is permitted only while the bootstrap era lasts;
// a bootstrap validator then has BootstrapGracePeriod blocks past the
// era's end to bring its stake up to MinValidatorStake, and leaves the
// active set otherwise. Runs as epoch-boundary maintenance.
func (r *ValidatorRegistry) EnforceBootstrapGrace(currentBlock common.BlockNumber) {
	if r.clock.IsWithinBootstrapGrace(currentBlock) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	minStake := MinValidatorStake()
	for id, v := range r.validators {
		if !v.IsBootstrapValidator || v.Status == StatusEjected {
			continue
		}
		if v.Stake.GreaterThanOrEqual(minStake) {
			continue
		}
		v.Status = StatusEjected
		r.active.Remove(id)
		r.ejected.Add(id)
		log.Warn("bootstrap validator removed after grace period", "validator", id.ShortString(), "stake", v.Stake)
	}
}

// ActivateGenesisValidator inserts id directly into the active set at
// genesis, bypassing the normal candidacy/activation flow. Both bootstrap
// and staked genesis validators start immediately active.
func (r *ValidatorRegistry) ActivateGenesisValidator(id common.AccountId, stake common.Balance, isBootstrap bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.validators[id] = &ValidatorInfo{
		Id:                   id,
		Stake:                stake,
		IsBootstrapValidator: isBootstrap,
		JoinedBlock:          0,
		CandidacyBlock:       0,
		Status:               StatusActive,
	}
	r.active.Add(id)
	r.totalStake = r.totalStake.Add(stake)
	if isBootstrap {
		r.earlyValidatorCount++
	}
}

// IsActive reports whether id is currently an active validator.
func (r *ValidatorRegistry) IsActive(id common.AccountId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active.Contains(id)
}

// ActiveValidators returns a snapshot of all currently active validators.
func (r *ValidatorRegistry) ActiveValidators() []*ValidatorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ValidatorInfo, 0, r.active.Cardinality())
	for id := range r.active.Iter() {
		if v, ok := r.validators[id]; ok {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out
}

// Get returns a copy of the validator record for id, if present.
func (r *ValidatorRegistry) Get(id common.AccountId) (*ValidatorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[id]
	if !ok {
		return nil, false
	}
	cp := *v
	return &cp, true
}

// RecordBlockProduced increments a validator's blocks-produced counter,
// used both for observability and as the VC proxy in slot-assignment
// validation.
func (r *ValidatorRegistry) RecordBlockProduced(id common.AccountId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.validators[id]; ok {
		v.BlocksProduced++
	}
}
