package pool

import (
	sdkmath "cosmossdk.io/math"

	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/invariant"
)

// DefaultProbe is the trade size used to approximate the pool's marginal
// price, small enough that the curve is locally linear at realistic pool
// depths (1e-6 of a whole coin).
var DefaultProbe = sdkmath.NewInt(1e12)

// SpotPrice approximates the marginal price dy/dx of coin i in units of
// coin j with a probe trade, before fees. State is not mutated.
func (p *Pool) SpotPrice(i, j int) (float64, error) {
	dy, _, err := p.quote(i, j, DefaultProbe)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Ratio(dy, DefaultProbe)
}

// SpotPriceWithFee approximates the marginal price net of the swap fee,
// i.e. (dy - fee)/dx for a probe-sized dx. This is the price an arbitrageur
// actually realizes.
func (p *Pool) SpotPriceWithFee(i, j int) (float64, error) {
	dy, fee, err := p.quote(i, j, DefaultProbe)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Ratio(dy.Sub(fee), DefaultProbe)
}

// CalcExchange quotes a swap of dx internal units of coin i for coin j
// without mutating state, returning the net output and fee.
func (p *Pool) CalcExchange(i, j int, dx sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	dy, fee, err := p.quote(i, j, dx)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if !dy.Sub(fee).IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroOutput
	}
	return dy.Sub(fee), fee, nil
}

func (p *Pool) quote(i, j int, dx sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	if i == j || i < 0 || j < 0 || i >= p.n || j >= p.n {
		return sdkmath.Int{}, sdkmath.Int{}, ErrInvalidIndex
	}
	if dx.IsNil() || !dx.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrInvalidAmount
	}
	xp := p.xp()
	y, err := invariant.SolveY(i, j, xp[i].Add(dx), xp, p.amp)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	dy := xp[j].Sub(y).SubRaw(1)
	return dy, fixedpoint.FeeCut(dy, p.fee), nil
}
