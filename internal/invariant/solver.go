/*
This file contains the stableswap invariant solver.

The invariant for n coins with effective amplification A (already scaled by
n^(n-1)) is:

	A * n**n * sum(x_i) + D = A * n**n * D + D**(n+1) / (n**n * prod(x_i))

D is found with the standard converging iteration

	D[k+1] = (Ann * S + n * D_P) * D[k] / ((Ann - 1) * D[k] + (n + 1) * D_P)

where Ann = A * n and D_P = D**(n+1) / (n**n * prod(x_i)) accumulated one
coin at a time to avoid overflow. Solving a single balance against a fixed D
reduces to the quadratic iteration y = (y**2 + c) / (2*y + b - D).

Both iterations are hard-capped; hitting the cap surfaces ErrNonConvergence
instead of returning a half-converged value, because a silently wrong D would
corrupt every downstream trade price.
*/

package invariant

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/convex-community/curvesim/internal/fixedpoint"
)

// MaxIterations caps both Newton-style iterations, matching the on-chain cap.
const MaxIterations = 255

var (
	ErrNonConvergence  = errors.New("invariant iteration did not converge")
	ErrInvalidBalances = errors.New("balances must be positive")
	ErrInvalidIndex    = errors.New("coin index out of range")
	ErrTooFewCoins     = errors.New("pool needs at least two coins")
)

// SolveD computes the invariant D for the given 18-decimal balances and
// effective amplification. A pool with all-zero balances has D = 0; a pool
// with some but not all balances zero cannot be solved.
func SolveD(xp []sdkmath.Int, amp uint64) (sdkmath.Int, error) {
	n := len(xp)
	if n < 2 {
		return sdkmath.Int{}, ErrTooFewCoins
	}

	s := fixedpoint.Sum(xp)
	if s.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	for _, x := range xp {
		if !x.IsPositive() {
			return sdkmath.Int{}, ErrInvalidBalances
		}
	}

	nInt := sdkmath.NewInt(int64(n))
	ann := sdkmath.NewIntFromUint64(amp).Mul(nInt)

	d := s
	for iter := 0; iter < MaxIterations; iter++ {
		dp := d
		for _, x := range xp {
			dp = dp.Mul(d).Quo(x.Mul(nInt))
		}
		dPrev := d
		numer := ann.Mul(s).Add(dp.Mul(nInt)).Mul(d)
		denom := ann.Sub(sdkmath.OneInt()).Mul(d).Add(nInt.AddRaw(1).Mul(dp))
		d = numer.Quo(denom)
		if fixedpoint.WithinOne(d, dPrev) {
			return d, nil
		}
	}
	return sdkmath.Int{}, ErrNonConvergence
}

// SolveY returns the balance of coin j after coin i's balance is set to x,
// holding the invariant at the value implied by the current balances xp.
func SolveY(i, j int, x sdkmath.Int, xp []sdkmath.Int, amp uint64) (sdkmath.Int, error) {
	n := len(xp)
	if i == j || i < 0 || j < 0 || i >= n || j >= n {
		return sdkmath.Int{}, ErrInvalidIndex
	}

	d, err := SolveD(xp, amp)
	if err != nil {
		return sdkmath.Int{}, err
	}

	reduced := make([]sdkmath.Int, 0, n-1)
	for k := 0; k < n; k++ {
		if k == j {
			continue
		}
		if k == i {
			reduced = append(reduced, x)
		} else {
			reduced = append(reduced, xp[k])
		}
	}
	return solveQuadratic(reduced, n, d, amp)
}

// SolveYFromD returns the balance of coin i consistent with a target
// invariant d, given the other coins' current balances.
func SolveYFromD(i int, xp []sdkmath.Int, amp uint64, d sdkmath.Int) (sdkmath.Int, error) {
	n := len(xp)
	if i < 0 || i >= n {
		return sdkmath.Int{}, ErrInvalidIndex
	}

	reduced := make([]sdkmath.Int, 0, n-1)
	for k := 0; k < n; k++ {
		if k != i {
			reduced = append(reduced, xp[k])
		}
	}
	return solveQuadratic(reduced, n, d, amp)
}

// solveQuadratic iterates y = (y**2 + c) / (2*y + b - D) where the running
// sum and product exclude the coin being solved for.
func solveQuadratic(reduced []sdkmath.Int, n int, d sdkmath.Int, amp uint64) (sdkmath.Int, error) {
	nInt := sdkmath.NewInt(int64(n))
	ann := sdkmath.NewIntFromUint64(amp).Mul(nInt)

	c := d
	s := sdkmath.ZeroInt()
	for _, xk := range reduced {
		if !xk.IsPositive() {
			return sdkmath.Int{}, ErrInvalidBalances
		}
		s = s.Add(xk)
		c = c.Mul(d).Quo(xk.Mul(nInt))
	}
	c = c.Mul(d).Quo(ann.Mul(nInt))
	b := s.Add(d.Quo(ann))

	y := d
	for iter := 0; iter < MaxIterations; iter++ {
		yPrev := y
		y = y.Mul(y).Add(c).Quo(y.MulRaw(2).Add(b).Sub(d))
		if fixedpoint.WithinOne(y, yPrev) {
			return y, nil
		}
	}
	return sdkmath.Int{}, ErrNonConvergence
}
