/*

Result types produced by the simulation runner and collected by the sweep
orchestrator. sdkmath.Int fields marshal as decimal strings, so records can be
stored as JSONB or served over the web API without precision loss.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// RunStatus tracks the simulation runner's state machine.
type RunStatus string

const (
	RunStatusInitialized RunStatus = "initialized"
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
)

// TradeKind distinguishes volume-implied trades from arbitrage trades.
type TradeKind string

const (
	TradeKindVolume    TradeKind = "volume"
	TradeKindArbitrage TradeKind = "arbitrage"
)

// TradeReceipt records one executed trade. Amounts are in 18-decimal internal
// units; Profit is the arbitrageur's net profit valued in the quote coin
// (zero for volume trades).
type TradeReceipt struct {
	Kind      TradeKind   `json:"kind"`
	In        int         `json:"in"`
	Out       int         `json:"out"`
	AmountIn  sdkmath.Int `json:"amount_in"`
	AmountOut sdkmath.Int `json:"amount_out"`
	Fee       sdkmath.Int `json:"fee"`
	Profit    float64     `json:"profit,omitempty"`
}

// StepRecord is the pool state recorded after all of a step's trades.
type StepRecord struct {
	Step         int            `json:"step"`
	Timestamp    time.Time      `json:"timestamp"`
	Balances     []sdkmath.Int  `json:"balances"`
	Invariant    sdkmath.Int    `json:"invariant"`
	VirtualPrice sdkmath.Int    `json:"virtual_price"`
	Trades       []TradeReceipt `json:"trades,omitempty"`

	// Fees accrued during this step, per coin, in internal units.
	Fees []sdkmath.Int `json:"fees"`

	// PoolValue is the pool's holdings priced at this step's reference
	// prices, in whole units of coin 0.
	PoolValue float64 `json:"pool_value"`
}

// FeesNonZero reports whether any coin accrued fees during the step.
func (r StepRecord) FeesNonZero() bool {
	for _, f := range r.Fees {
		if f.IsPositive() {
			return true
		}
	}
	return false
}

// RunResult is the full recorded series for one (configuration x series) run.
type RunResult struct {
	Key      string     `json:"key"`
	Config   PoolConfig `json:"config"`
	SeriesID string     `json:"series_id"`
	Status   RunStatus  `json:"status"`
	Steps    []StepRecord `json:"steps"`

	// Incomplete is set when the run failed partway; Steps then holds the
	// records up to, but not including, the failing step.
	Incomplete bool   `json:"incomplete"`
	Err        string `json:"error,omitempty"`
}
