package metrics

import (
	"math"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convex-community/curvesim/internal/types"
)

func parity(steps int) types.Series {
	series := types.Series{ID: "parity"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for s := 0; s < steps; s++ {
		series.Snapshots = append(series.Snapshots, types.Snapshot{
			Timestamp: start.Add(time.Duration(s) * time.Hour),
			Prices:    map[types.Pair]float64{{I: 0, J: 1}: 1.0},
		})
	}
	return series
}

func balancedRun(key string, values []float64) *types.RunResult {
	run := &types.RunResult{
		Key: key,
		Config: types.PoolConfig{
			Amp: 100,
			Fee: 4e6,
			InitialBalances: []sdkmath.Int{
				sdkmath.NewIntWithDecimal(50, 18),
				sdkmath.NewIntWithDecimal(50, 18),
			},
		},
		SeriesID: "parity",
		Status:   types.RunStatusCompleted,
	}
	for i, v := range values {
		run.Steps = append(run.Steps, types.StepRecord{
			Step:      i,
			PoolValue: v,
		})
	}
	return run
}

func TestSummarizeSingleReturn(t *testing.T) {
	series := parity(2)
	run := balancedRun("single", []float64{100, 110})

	summary, err := Summarize(run, series, 1.0)
	require.NoError(t, err)

	assert.Equal(t, "single", summary.Key)
	assert.Equal(t, 2, summary.Steps)
	assert.Equal(t, 100.0, summary.InitialValue)
	assert.Equal(t, 110.0, summary.FinalValue)
	assert.InDelta(t, math.Log(1.1), summary.AnnualizedReturn, 1e-12)
	assert.Equal(t, 0.0, summary.AnnualizedVolatility)

	// 50 + 50 at parity.
	assert.InDelta(t, 100.0, summary.HoldValue, 1e-9)
	assert.InDelta(t, 0.10, summary.ImpermanentLoss, 1e-9)
	assert.False(t, summary.Incomplete)
}

func TestSummarizeAnnualization(t *testing.T) {
	series := parity(3)
	run := balancedRun("scaled", []float64{100, 110, 100})

	base, err := Summarize(run, series, 1.0)
	require.NoError(t, err)
	scaled, err := Summarize(run, series, 8760.0)
	require.NoError(t, err)

	assert.InDelta(t, base.AnnualizedReturn*8760.0, scaled.AnnualizedReturn, 1e-9)
	assert.InDelta(t, base.AnnualizedVolatility*math.Sqrt(8760.0), scaled.AnnualizedVolatility, 1e-9)
}

func TestSummarizeVolatilityOfKnownReturns(t *testing.T) {
	series := parity(3)
	// Log returns ln(2) and -ln(2): mean 0, population stddev ln(2).
	run := balancedRun("vol", []float64{100, 200, 100})

	summary, err := Summarize(run, series, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, summary.AnnualizedReturn, 1e-12)
	assert.InDelta(t, math.Log(2), summary.AnnualizedVolatility, 1e-12)
}

func TestSummarizeImpermanentLossAgainstMovedPrices(t *testing.T) {
	series := parity(2)
	// Coin 1 doubles externally; the hold baseline is repriced, the pool
	// value is whatever was recorded.
	series.Snapshots[1].Prices = map[types.Pair]float64{{I: 0, J: 1}: 0.5}

	run := balancedRun("il", []float64{100, 140})

	summary, err := Summarize(run, series, 1.0)
	require.NoError(t, err)

	// Hold: 50 coin0 + 50 coin1 at 2.0 coin0 each.
	assert.InDelta(t, 150.0, summary.HoldValue, 1e-9)
	assert.InDelta(t, 140.0/150.0-1, summary.ImpermanentLoss, 1e-9)
	assert.Less(t, summary.ImpermanentLoss, 0.0)
}

func TestSummarizeTotalFees(t *testing.T) {
	series := parity(2)
	run := balancedRun("fees", []float64{100, 100})
	run.Steps[1].Fees = []sdkmath.Int{
		sdkmath.NewIntWithDecimal(3, 18),
		sdkmath.NewIntWithDecimal(1, 17),
	}

	summary, err := Summarize(run, series, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 3.1, summary.TotalFees, 1e-9)
}

func TestSummarizePartialRun(t *testing.T) {
	series := parity(10)
	run := balancedRun("partial", []float64{100, 101, 102})
	run.Status = types.RunStatusFailed
	run.Incomplete = true

	summary, err := Summarize(run, series, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Steps)
	assert.Equal(t, 102.0, summary.FinalValue)
	assert.True(t, summary.Incomplete)
}

func TestSummarizeInsufficientData(t *testing.T) {
	series := parity(2)

	_, err := Summarize(balancedRun("short", []float64{100}), series, 1.0)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Summarize(balancedRun("empty", nil), series, 1.0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
