/*

Arbitrage policy that trades a simulated pool toward external reference
prices.

For each coin pair whose realized pool price (net of fee) exceeds the external
price, the trade size that closes the gap is found by bisection on the
post-trade price error. Pairs are evaluated in a fixed order and each
profitable trade executes against the live pool before the next pair is
considered, so later pairs see the updated state. This sequential re-read is a
deliberate approximation of real arbitrageur behavior rather than a jointly
optimal solution across all pairs.

*/

package arbitrage

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/invariant"
	"github.com/convex-community/curvesim/internal/logger"
	"github.com/convex-community/curvesim/internal/pool"
	"github.com/convex-community/curvesim/internal/types"
)

var ErrMissingPrice = errors.New("snapshot is missing a reference price")

// Parameters tunes the profitable-trade search. Defaults are documented in
// config; all three are sweep-configurable.
type Parameters struct {
	// MinTrade is the smallest trade size considered, in internal units.
	MinTrade sdkmath.Int

	// Tolerance is the bracket width, in internal units, at which the
	// bisection stops refining.
	Tolerance sdkmath.Int

	// MaxIterations caps the bisection steps per pair.
	MaxIterations int
}

// DefaultParameters returns the documented search defaults: trades no smaller
// than the price probe, a bracket resolved to probe size, 64 halvings.
func DefaultParameters() Parameters {
	return Parameters{
		MinTrade:      sdkmath.NewInt(1e12),
		Tolerance:     sdkmath.NewInt(1e12),
		MaxIterations: 64,
	}
}

func (p Parameters) validate() error {
	if p.MinTrade.IsNil() || !p.MinTrade.IsPositive() {
		return fmt.Errorf("minimum trade size must be positive")
	}
	if p.Tolerance.IsNil() || !p.Tolerance.IsPositive() {
		return fmt.Errorf("search tolerance must be positive")
	}
	if p.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive")
	}
	return nil
}

// Trader executes the arbitrage policy against one pool per step.
type Trader struct {
	params Parameters
	logger zerolog.Logger
}

// NewTrader builds a trader with the given search parameters.
func NewTrader(params Parameters) (*Trader, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid arbitrage parameters: %w", err)
	}
	return &Trader{
		params: params,
		logger: logger.GetForComponent("arbitrage"),
	}, nil
}

// Step evaluates every coin pair against the snapshot's reference prices and
// executes each independently profitable trade. Returned receipts are in
// execution order. Solver failures inside the search exclude the candidate
// rather than failing the step.
func (t *Trader) Step(pl *pool.Pool, snap types.Snapshot) ([]types.TradeReceipt, error) {
	var receipts []types.TradeReceipt
	n := pl.N()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			price, ok := snap.Price(i, j)
			if !ok || price <= 0 {
				return receipts, fmt.Errorf("%w: pair (%d, %d)", ErrMissingPrice, i, j)
			}

			// At most one direction can be profitable; try i->j first.
			receipt, traded, err := t.tradePair(pl, i, j, price)
			if err != nil {
				return receipts, err
			}
			if !traded {
				receipt, traded, err = t.tradePair(pl, j, i, 1/price)
				if err != nil {
					return receipts, err
				}
			}
			if traded {
				receipts = append(receipts, receipt)
			}
		}
	}
	return receipts, nil
}

// tradePair searches for the trade of coin i into coin j that moves the
// pool's realized price down to the external price, and executes it when the
// net profit is positive.
func (t *Trader) tradePair(pl *pool.Pool, i, j int, price float64) (types.TradeReceipt, bool, error) {
	poolPrice, err := pl.SpotPriceWithFee(i, j)
	if err != nil {
		if errors.Is(err, invariant.ErrNonConvergence) {
			t.logger.Debug().Int("in", i).Int("out", j).Msg("price probe did not converge, skipping pair")
			return types.TradeReceipt{}, false, nil
		}
		return types.TradeReceipt{}, false, err
	}
	if poolPrice <= price {
		return types.TradeReceipt{}, false, nil
	}

	dx, ok := t.search(pl, i, j, price)
	if !ok {
		return types.TradeReceipt{}, false, nil
	}

	dyNet, fee, err := pl.CalcExchange(i, j, dx)
	if err != nil {
		return types.TradeReceipt{}, false, nil
	}

	// Net profit in internal units of coin j: output minus the input valued
	// at the external price.
	dyFloat, err := fixedpoint.IntToFloat(dyNet, 0)
	if err != nil {
		return types.TradeReceipt{}, false, err
	}
	dxFloat, err := fixedpoint.IntToFloat(dx, 0)
	if err != nil {
		return types.TradeReceipt{}, false, err
	}
	profit := dyFloat - dxFloat*price
	if profit <= 0 {
		return types.TradeReceipt{}, false, nil
	}

	if _, _, err := pl.Exchange(i, j, dx); err != nil {
		return types.TradeReceipt{}, false, err
	}

	t.logger.Debug().
		Int("in", i).
		Int("out", j).
		Str("dx", dx.String()).
		Float64("profit", profit/1e18).
		Msg("Executed arbitrage trade")

	return types.TradeReceipt{
		Kind:      types.TradeKindArbitrage,
		In:        i,
		Out:       j,
		AmountIn:  dx,
		AmountOut: dyNet,
		Fee:       fee,
		Profit:    profit / 1e18,
	}, true, nil
}

// search bisects on the post-trade realized price to find the largest trade
// that keeps the pool price at or above the external price. The upper bracket
// leaves one percent of the out-coin in the pool.
func (t *Trader) search(pl *pool.Pool, i, j int, price float64) (sdkmath.Int, bool) {
	hi, ok := t.upperBound(pl, i, j)
	if !ok {
		return sdkmath.Int{}, false
	}
	lo := t.params.MinTrade
	if hi.LTE(lo) {
		return sdkmath.Int{}, false
	}

	above, ok := t.priceAbove(pl, i, j, lo, price)
	if !ok || !above {
		return sdkmath.Int{}, false
	}
	if above, ok = t.priceAbove(pl, i, j, hi, price); ok && above {
		// Even the bracket-capping trade leaves the pool above the external
		// price; take the full bracket.
		return hi, true
	}

	for iter := 0; iter < t.params.MaxIterations; iter++ {
		if hi.Sub(lo).LTE(t.params.Tolerance) {
			break
		}
		mid := lo.Add(hi).QuoRaw(2)
		above, ok = t.priceAbove(pl, i, j, mid, price)
		if ok && above {
			lo = mid
		} else {
			// Non-executable candidates shrink the bracket from above.
			hi = mid
		}
	}
	return lo, true
}

// upperBound returns the amount of coin i that would leave one percent of
// coin j's balance in the pool.
func (t *Trader) upperBound(pl *pool.Pool, i, j int) (sdkmath.Int, bool) {
	xp := pl.Balances()
	target := xp[j].QuoRaw(100)
	yi, err := invariant.SolveY(j, i, target, xp, pl.Amp())
	if err != nil {
		return sdkmath.Int{}, false
	}
	hi := yi.Sub(xp[i])
	if !hi.IsPositive() {
		return sdkmath.Int{}, false
	}
	return hi, true
}

// priceAbove evaluates a candidate on a copy of the pool and reports whether
// the realized price after trading dx stays above the external price.
func (t *Trader) priceAbove(pl *pool.Pool, i, j int, dx sdkmath.Int, price float64) (bool, bool) {
	scratch := pl.Clone()
	if _, _, err := scratch.Exchange(i, j, dx); err != nil {
		return false, false
	}
	after, err := scratch.SpotPriceWithFee(i, j)
	if err != nil {
		return false, false
	}
	return after > price, true
}
