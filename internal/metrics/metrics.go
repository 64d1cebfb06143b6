/*

Metrics aggregation over a completed (or partial) run.

Pure post-processing: the recorded pool-value series is reduced to an
annualized log return, the annualized volatility of log returns, and an
impermanent-loss style comparison against holding the initial balances. The
annualization factor should match the data frequency (8760 for hourly series,
365 for daily).

*/

package metrics

import (
	"errors"
	"math"

	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/simulator"
	"github.com/convex-community/curvesim/internal/types"
)

// ErrInsufficientData indicates that not enough recorded steps were provided
// to calculate returns (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient steps to calculate metrics")

// Summary holds the per-run statistics reported by a sweep.
type Summary struct {
	Key   string `json:"key"`
	Steps int    `json:"steps"`

	// InitialValue and FinalValue are the pool's holdings priced at the
	// first and last recorded step, in whole units of coin 0.
	InitialValue float64 `json:"initial_value"`
	FinalValue   float64 `json:"final_value"`

	// HoldValue is the buy-and-hold baseline: the initial balances priced at
	// the last recorded step.
	HoldValue float64 `json:"hold_value"`

	// AnnualizedReturn is the mean per-step log return scaled by the
	// annualization factor.
	AnnualizedReturn float64 `json:"annualized_return"`

	// AnnualizedVolatility is the standard deviation of per-step log returns
	// scaled by the square root of the annualization factor.
	AnnualizedVolatility float64 `json:"annualized_volatility"`

	// ImpermanentLoss is pool value relative to the hold baseline minus one;
	// negative values mean providing liquidity underperformed holding.
	ImpermanentLoss float64 `json:"impermanent_loss"`

	// TotalFees is all fee accrual over the run, valued one-to-one in whole
	// coin units (fees on correlated assets are near parity by construction).
	TotalFees float64 `json:"total_fees"`

	Incomplete bool `json:"incomplete"`
}

// Summarize reduces a run's recorded series to summary statistics. The series
// the run was produced from supplies the reference prices for the hold
// baseline. Deterministic for identical inputs.
func Summarize(run *types.RunResult, series types.Series, annualizationFactor float64) (Summary, error) {
	n := len(run.Steps)
	if n < 2 {
		return Summary{}, ErrInsufficientData
	}

	first := run.Steps[0]
	last := run.Steps[n-1]

	// --- Log returns of the recorded pool value ---
	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev := run.Steps[i-1].PoolValue
		curr := run.Steps[i].PoolValue
		if prev <= 0 || curr <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(curr/prev))
	}
	if len(logReturns) == 0 {
		return Summary{}, ErrInsufficientData
	}

	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(len(logReturns))

	var sumSqDiff float64
	for _, r := range logReturns {
		sumSqDiff += math.Pow(r-mean, 2)
	}
	variance := sumSqDiff / float64(len(logReturns))

	// --- Buy-and-hold baseline at the final recorded step's prices ---
	finalSnap := series.Snapshots[last.Step]
	holdValue, err := simulator.PoolValue(run.Config.InitialBalances, finalSnap)
	if err != nil {
		return Summary{}, err
	}

	totalFees := 0.0
	for _, step := range run.Steps {
		for _, f := range step.Fees {
			v, err := fixedpoint.IntToFloat(f, fixedpoint.BalanceDecimals)
			if err != nil {
				return Summary{}, err
			}
			totalFees += v
		}
	}

	s := Summary{
		Key:                  run.Key,
		Steps:                n,
		InitialValue:         first.PoolValue,
		FinalValue:           last.PoolValue,
		HoldValue:            holdValue,
		AnnualizedReturn:     mean * annualizationFactor,
		AnnualizedVolatility: math.Sqrt(variance) * math.Sqrt(annualizationFactor),
		TotalFees:            totalFees,
		Incomplete:           run.Incomplete,
	}
	if holdValue > 0 {
		s.ImpermanentLoss = last.PoolValue/holdValue - 1
	}
	return s, nil
}
