// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package node wires the KratOs consensus components into a single
// cooperative task loop: one process, one lock, several ticker-driven
// goroutines coordinating over shared state.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/ed25519"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/consensus/kratos"
	"github.com/kratos-chain/kratos/genesis"
	"github.com/kratos-chain/kratos/store"
	"github.com/kratos-chain/kratos/tokenomics"
)

// Default task-loop intervals.
const (
	DefaultNetworkPollInterval = 100 * time.Millisecond
	DefaultMaintenanceInterval = 30 * time.Second
	DefaultStatsInterval       = 60 * time.Second
)

// Config holds a node's tunables.
type Config struct {
	SlotDuration        time.Duration
	NetworkPollInterval time.Duration
	MaintenanceInterval time.Duration
	StatsInterval       time.Duration
	Validation          kratos.ValidationConfig
	SigningKey          ed25519.PrivateKey
	ValidatorID         common.AccountId

	// CheckpointPath, if set, opens a pebble database used to persist a VC
	// ledger snapshot of every active validator at each epoch boundary.
	// Left empty, the node keeps no checkpoint and runs ledger state
	// in-memory only (fine for tests and devnets).
	CheckpointPath string
}

// DefaultConfig returns a Config with spec-mandated timing and validation
// defaults.
func DefaultConfig() Config {
	return Config{
		SlotDuration:        time.Duration(kratos.SlotDurationSecs) * time.Second,
		NetworkPollInterval: DefaultNetworkPollInterval,
		MaintenanceInterval: DefaultMaintenanceInterval,
		StatsInterval:       DefaultStatsInterval,
		Validation:          kratos.DefaultValidationConfig(),
	}
}

// Stats is a polled counter snapshot kept for local introspection
// alongside the Prometheus metrics that form the primary observability
// surface.
type Stats struct {
	SlotsProcessed  uint64
	BlocksValidated uint64
	BlocksRejected  uint64
	SlashesApplied  uint64
	StartTime       time.Time
}

// Node owns every piece of shared consensus state behind a single
// sync.RWMutex. Cross-component invariants hold because dependent
// mutations run under one write acquisition.
type Node struct {
	mu sync.RWMutex

	config Config

	clock     *kratos.EpochClock
	registry  *kratos.ValidatorRegistry
	ledger    *kratos.VCLedger
	selector  *kratos.VRFSelector
	slasher   *kratos.SlashingEngine
	decay     *kratos.DecayEngine
	validator *kratos.BlockValidator
	state     *store.StateBackend
	metrics   *kratos.Metrics

	checkpoint *store.PebbleStore

	tokenomics      tokenomics.TokenomicsState
	treasuryBalance common.Balance
	reserveBalance  common.Balance

	chainTip *kratos.Block
	mempool  []kratos.Transaction

	mailbox *Mailbox

	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Node from config and a genesis specification, building
// and populating every consensus component.
func New(config Config, spec *genesis.GenesisSpec, reg prometheus.Registerer) (*Node, error) {
	clock := kratos.NewEpochClock()
	registry := kratos.NewValidatorRegistry(clock)
	ledger := kratos.NewVCLedger()
	decay := kratos.NewDecayEngine()
	slasher := kratos.NewSlashingEngine()
	selector := kratos.NewVRFSelector(config.SigningKey)
	validationConfig := config.Validation
	validator := kratos.NewBlockValidator(validationConfig, selector, clock)
	state := store.NewStateBackend()
	metrics := kratos.NewMetrics(reg)

	genesisBlock, err := genesis.Build(spec, state, registry, ledger, decay)
	if err != nil {
		return nil, err
	}

	var checkpoint *store.PebbleStore
	if config.CheckpointPath != "" {
		checkpoint, err = store.OpenPebbleStore(config.CheckpointPath)
		if err != nil {
			return nil, err
		}
	}

	n := &Node{
		config:     config,
		clock:      clock,
		registry:   registry,
		ledger:     ledger,
		selector:   selector,
		slasher:    slasher,
		decay:      decay,
		validator:  validator,
		state:      state,
		metrics:    metrics,
		checkpoint: checkpoint,
		tokenomics: spec.Tokenomics,
		chainTip:   genesisBlock,
		mailbox:    NewMailbox(64),
		stats:      Stats{StartTime: time.Now()},
	}
	n.restoreLedger()
	return n, nil
}

// Start launches the node's cooperative task loop.
func (n *Node) Start() {
	n.ctx, n.cancel = context.WithCancel(context.Background())

	log.Info("kratos node starting", "slotDuration", n.config.SlotDuration)

	n.wg.Add(4)
	go n.networkPollLoop()
	go n.slotLoop()
	go n.maintenanceLoop()
	go n.statsLoop()

	log.Info("kratos node started")
}

// Stop signals every task-loop goroutine to exit, waits for them to
// finish, and closes the checkpoint store if one is open.
func (n *Node) Stop() {
	if n.cancel == nil {
		return
	}
	log.Info("stopping kratos node")
	n.cancel()
	n.wg.Wait()
	if n.checkpoint != nil {
		if err := n.checkpoint.Close(); err != nil {
			log.Warn("checkpoint store close failed", "err", err)
		}
	}
	log.Info("kratos node stopped")
}

// ChainTip returns the current head block.
func (n *Node) ChainTip() *kratos.Block {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.chainTip
}

// GetStats returns a snapshot of the node's local stats counters.
func (n *Node) GetStats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats
}

// TreasuryBalance returns the cumulative treasury share of every emission
// period processed so far.
func (n *Node) TreasuryBalance() common.Balance {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.treasuryBalance
}

// ReserveBalance returns the cumulative reserve share of every emission
// period processed so far.
func (n *Node) ReserveBalance() common.Balance {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.reserveBalance
}

// Snapshot returns a read-only ValidatorSnapshot for id.
func (n *Node) Snapshot(id common.AccountId) (kratos.ValidatorSnapshot, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	epoch := n.clock.EpochFromBlock(n.chainTip.Header.Number)
	return kratos.BuildSnapshot(id, n.registry, n.ledger, n.slasher, epoch)
}

// SubmitTransaction appends tx to the mempool via the node's mailbox, so
// it is applied under the single consensus lock like every other mutation.
func (n *Node) SubmitTransaction(ctx context.Context, tx kratos.Transaction) error {
	_, err := n.mailbox.Submit(ctx, func(node *Node) interface{} {
		node.mempool = append(node.mempool, tx)
		return nil
	})
	return err
}
