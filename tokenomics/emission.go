// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package tokenomics implements KRAT's supply curve: exponential emission
// and burn rates, the integer mint formula, and the validator/treasury/
// reserve distribution split.
package tokenomics

import (
	"math"

	"github.com/kratos-chain/kratos/common"
)

// Supply-curve constants. Emission periods are 30 days of blocks; the
// emission rate's excess over its floor halves every five years while the
// burn rate grows toward its ceiling.
const (
	InitialSupplyKRAT      uint64  = 1_000_000_000
	InitialEmissionRateBps uint64  = 500
	MinEmissionRateBps     uint64  = 50
	InitialBurnRateBps     uint64  = 100
	MaxBurnRateBps         uint64  = 350
	EmissionPeriodBlocks   uint64  = 432_000
	EmissionHalfLifeYears  float64 = 5.0
	burnRateGrowthSpeed    float64 = 0.25
	epochsPerQuarterYear   float64 = 365.25 / 30.0

	// ExistentialDepositUnits is 1 milli-KRAT expressed in base units.
	ExistentialDepositUnits uint64 = common.UnitsPerKRAT / 1000
)

// ExistentialDeposit returns the existential deposit, 1 milli-KRAT. It is
// a constant only; no code in this repository reaps or zeroes balances
// below it.
func ExistentialDeposit() common.Balance {
	return common.NewBalance(ExistentialDepositUnits)
}

// TokenomicsState is the chain's mutable supply-tracking state.
type TokenomicsState struct {
	TotalSupply       common.Balance
	TotalMinted       common.Balance
	TotalBurned       common.Balance
	CurrentPeriod     uint64
	LastEmissionBlock common.BlockNumber
}

// Genesis returns the initial tokenomics state: InitialSupplyKRAT total
// supply, nothing minted or burned yet.
func Genesis() TokenomicsState {
	return TokenomicsState{
		TotalSupply: common.KRAT(InitialSupplyKRAT),
	}
}

// yearsElapsed converts the state's current period count into elapsed
// years (one period per 30 days).
func (s *TokenomicsState) yearsElapsed() float64 {
	return float64(s.CurrentPeriod) / epochsPerQuarterYear
}

// CurrentEmissionRate computes the basis-point emission rate at the
// state's current period via exponential decay toward MinEmissionRateBps,
// clamped to [MinEmissionRateBps, InitialEmissionRateBps].
func (s *TokenomicsState) CurrentEmissionRate() uint64 {
	t := s.yearsElapsed()
	k := math.Ln2 / EmissionHalfLifeYears
	rate := float64(MinEmissionRateBps) + (float64(InitialEmissionRateBps)-float64(MinEmissionRateBps))*math.Exp(-k*t)
	return common.ClampBps(common.SafeFloatToUint64(math.Round(rate)), MinEmissionRateBps, InitialEmissionRateBps)
}

// CurrentBurnRate computes the basis-point burn rate at the state's
// current period via exponential growth toward MaxBurnRateBps, clamped to
// [InitialBurnRateBps, MaxBurnRateBps].
func (s *TokenomicsState) CurrentBurnRate() uint64 {
	t := s.yearsElapsed()
	rate := float64(MaxBurnRateBps) - (float64(MaxBurnRateBps)-float64(InitialBurnRateBps))*math.Exp(-burnRateGrowthSpeed*t)
	return common.ClampBps(common.SafeFloatToUint64(math.Round(rate)), InitialBurnRateBps, MaxBurnRateBps)
}

// ShouldEmit reports whether currentBlock has reached the next emission
// boundary.
func (s *TokenomicsState) ShouldEmit(currentBlock common.BlockNumber) bool {
	return uint64(currentBlock) >= uint64(s.LastEmissionBlock)+EmissionPeriodBlocks
}

// CalculateEmission computes the amount to mint this period:
// total_supply * rate_bps * 30 / (10_000 * 365), using saturating integer
// arithmetic throughout. No floating point enters the mint formula
// itself, only the derivation of rate_bps above.
func (s *TokenomicsState) CalculateEmission() common.Balance {
	rateBps := s.CurrentEmissionRate()
	numerator := s.TotalSupply.MulUint64(rateBps).MulUint64(30)
	return numerator.DivUint64(10_000 * 365)
}

// Mint applies a computed emission amount to the state, advancing the
// period and the last-emission-block marker.
func (s *TokenomicsState) Mint(amount common.Balance, block common.BlockNumber) {
	s.TotalSupply = s.TotalSupply.Add(amount)
	s.TotalMinted = s.TotalMinted.Add(amount)
	s.LastEmissionBlock = block
	s.CurrentPeriod++
}

// Burn removes amount from circulating supply.
func (s *TokenomicsState) Burn(amount common.Balance) {
	s.TotalSupply = s.TotalSupply.Sub(amount)
	s.TotalBurned = s.TotalBurned.Add(amount)
}

// EmissionDistribution is the 70/20/10 validator/treasury/reserve split of
// a minted amount.
type EmissionDistribution struct {
	ToValidators common.Balance
	ToTreasury   common.Balance
	ToReserve    common.Balance
}

// DistributeEmission splits minted into validator/treasury/reserve shares.
// Validators and treasury each take an independently floor-divided share
// (70% and 20%); reserve takes the exact residual, guaranteeing the three
// shares always sum to minted with no dust loss.
func DistributeEmission(minted common.Balance) EmissionDistribution {
	toValidators := minted.MulUint64(70).DivUint64(100)
	toTreasury := minted.MulUint64(20).DivUint64(100)
	toReserve := minted.Sub(toValidators).Sub(toTreasury)
	return EmissionDistribution{
		ToValidators: toValidators,
		ToTreasury:   toTreasury,
		ToReserve:    toReserve,
	}
}
