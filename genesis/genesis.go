// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package genesis loads the JSON genesis document and builds the genesis
// block and initial chain state from it.
package genesis

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/consensus/kratos"
	"github.com/kratos-chain/kratos/store"
	"github.com/kratos-chain/kratos/tokenomics"
)

// GenesisTimestamp is the canonical KratOs network launch time
// (2025-01-01 00:00:00 UTC).
const GenesisTimestamp uint64 = 1_735_689_600

// GenesisValidator describes one validator's genesis allocation.
type GenesisValidator struct {
	Account              common.AccountId
	Stake                common.Balance
	IsBootstrapValidator bool
}

// GenesisSpec is the parsed, in-memory form of the JSON genesis
// document.
type GenesisSpec struct {
	Timestamp  uint64
	Balances   map[common.AccountId]common.Balance
	Validators []GenesisValidator
	Tokenomics tokenomics.TokenomicsState
}

// genesisDocument is the on-disk JSON shape. AccountId keys are encoded as
// 0x-prefixed hex strings since Go map keys must be strings for
// encoding/json.
type genesisDocument struct {
	Timestamp  uint64                     `json:"timestamp"`
	Balances   map[string]common.Balance  `json:"balances"`
	Validators []genesisValidatorDoc      `json:"validators"`
	Tokenomics tokenomics.TokenomicsState `json:"tokenomics"`
}

type genesisValidatorDoc struct {
	Account              string         `json:"account"`
	Stake                common.Balance `json:"stake"`
	IsBootstrapValidator bool           `json:"is_bootstrap_validator"`
}

// accountIdFromHex parses a 0x-prefixed hex account id.
func accountIdFromHex(s string) (common.AccountId, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return common.AccountId{}, fmt.Errorf("genesis: invalid account hex %q: %w", s, err)
	}
	return common.AccountIdFromBytes(b)
}

// LoadFromFile reads and parses a genesis document from path.
func LoadFromFile(path string) (*GenesisSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a genesis document from raw JSON bytes.
func Parse(data []byte) (*GenesisSpec, error) {
	var doc genesisDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("genesis: decoding document: %w", err)
	}

	spec := &GenesisSpec{
		Timestamp:  doc.Timestamp,
		Balances:   make(map[common.AccountId]common.Balance, len(doc.Balances)),
		Tokenomics: doc.Tokenomics,
	}
	for hexID, bal := range doc.Balances {
		id, err := accountIdFromHex(hexID)
		if err != nil {
			return nil, err
		}
		spec.Balances[id] = bal
	}
	for _, v := range doc.Validators {
		id, err := accountIdFromHex(v.Account)
		if err != nil {
			return nil, err
		}
		spec.Validators = append(spec.Validators, GenesisValidator{
			Account:              id,
			Stake:                v.Stake,
			IsBootstrapValidator: v.IsBootstrapValidator,
		})
	}
	if spec.Timestamp == 0 {
		spec.Timestamp = GenesisTimestamp
	}
	if spec.Tokenomics.TotalSupply.IsZero() {
		spec.Tokenomics = tokenomics.Genesis()
	}
	return spec, nil
}

// WithValidator returns a minimal single-validator GenesisSpec: account
// gets an initial 1,000,000 KRAT balance and is registered with the
// minimum validator stake reserved from that balance.
func WithValidator(account common.AccountId) *GenesisSpec {
	stake := kratos.MinValidatorStake()
	freeBalance := common.KRAT(1_000_000).Sub(stake)

	return &GenesisSpec{
		Timestamp: GenesisTimestamp,
		Balances: map[common.AccountId]common.Balance{
			account: freeBalance,
		},
		Validators: []GenesisValidator{
			{Account: account, Stake: stake, IsBootstrapValidator: false},
		},
		Tokenomics: tokenomics.Genesis(),
	}
}

// ChainID is the fixed chain identifier folded into the genesis state
// root computation.
const ChainID uint64 = 0

// Build constructs the genesis block and populates state, registry,
// credit ledger, and decay engine from spec. Construction order:
// balances (set exactly as listed), then validators (installed into the
// registry, ledger, and decay engine; no account entry is created for a
// validator and no stake is deducted from its listed balance), then the
// state root, then the header.
func Build(spec *GenesisSpec, state *store.StateBackend, registry *kratos.ValidatorRegistry, ledger *kratos.VCLedger, decay *kratos.DecayEngine) (*kratos.Block, error) {
	for id, bal := range spec.Balances {
		state.SetAccountBalance(id, bal)
	}

	credits := make([]store.CreditRecord, 0, len(spec.Validators))
	for _, v := range spec.Validators {
		registry.ActivateGenesisValidator(v.Account, v.Stake, v.IsBootstrapValidator)
		ledger.InitializeValidator(v.Account, 0, 0)
		decay.InitializeValidator(v.Account, 0)

		record, _ := ledger.Get(v.Account)
		credits = append(credits, store.CreditRecord{
			Validator:   v.Account,
			Vote:        record.VoteCredits,
			Uptime:      record.UptimeCredits,
			Arbitration: record.ArbitrationCredits,
			Seniority:   record.SeniorityCredits,
		})
	}

	stateRoot := state.ComputeStateRoot(0, ChainID, credits)

	header := kratos.BlockHeader{
		Number:           0,
		ParentHash:       common.ZeroHash,
		TransactionsRoot: common.ZeroHash,
		StateRoot:        stateRoot,
		Timestamp:        spec.Timestamp,
		Epoch:            0,
		Slot:             0,
		Author:           common.ZeroAccount,
		Signature:        common.ZeroSignature,
	}

	return &kratos.Block{Header: header, Transactions: nil}, nil
}
