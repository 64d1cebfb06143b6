/*

Pool configuration as enumerated by the sweep orchestrator. One PoolConfig
describes one point of the sweep grid; every run builds its own pool instance
from it, so runs share no mutable state.

*/

package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// PoolConfig fixes a pool's parameters for the duration of a run.
type PoolConfig struct {
	// Amp is the effective amplification coefficient, already multiplied by
	// n**(n-1) as the invariant requires.
	Amp uint64 `json:"amp"`

	// Fee is the swap fee with 10 decimals of precision (4e6 == 0.04%).
	Fee int64 `json:"fee"`

	// AdminFee is the share of each collected fee withheld from the pool,
	// also at 10 decimals of precision.
	AdminFee int64 `json:"admin_fee"`

	// InitialBalances seeds the pool, in 18-decimal internal units.
	InitialBalances []sdkmath.Int `json:"initial_balances"`

	// Rates optionally scales each balance to internal precision (defaults
	// to 1e18, i.e. balances already at internal precision).
	Rates []sdkmath.Int `json:"rates,omitempty"`
}

// Key returns the configuration's unambiguous sweep key.
func (c PoolConfig) Key() string {
	return fmt.Sprintf("A=%d,fee=%d", c.Amp, c.Fee)
}

// RunKey keys a (configuration x series) pair within a sweep result.
func RunKey(c PoolConfig, seriesID string) string {
	return fmt.Sprintf("%s|%s", seriesID, c.Key())
}
