// Package idhash computes deterministic identifiers for pricing runs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"

	"trs-pricer/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(ticker|notional|initial_price|dividend_yield|benchmark_rate|
// funding_spread|tenor|payment_frequency|num_simulations|volatility|seed|execution_id)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(params domain.TradeParameters, seed uint64, executionID string) string {
	hash := sha256.Sum256([]byte(inputKey(params, seed) + "|" + executionID))
	return hex.EncodeToString(hash[:])
}

// ComputeInputHash hashes the run inputs alone. Two runs with equal input
// hashes must produce identical results.
func ComputeInputHash(params domain.TradeParameters, seed uint64) string {
	hash := sha256.Sum256([]byte(inputKey(params, seed)))
	return hex.EncodeToString(hash[:])
}

// ShortID returns a compact base58 form of the first 8 bytes of a hex id,
// for logs and report headers. Invalid hex is returned unchanged.
func ShortID(hexID string) string {
	raw, err := hex.DecodeString(hexID)
	if err != nil || len(raw) < 8 {
		return hexID
	}
	return base58.Encode(raw[:8])
}

func inputKey(p domain.TradeParameters, seed uint64) string {
	return fmt.Sprintf("%s|%v|%v|%v|%v|%v|%v|%d|%d|%v|%d",
		p.Ticker,
		p.Notional,
		p.InitialPrice,
		p.DividendYield,
		p.BenchmarkRate,
		p.FundingSpread,
		p.Tenor,
		p.PaymentFrequency,
		p.NumSimulations,
		p.Volatility,
		seed,
	)
}
