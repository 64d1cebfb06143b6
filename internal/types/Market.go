/*

Market data contract consumed by the simulation runner.

Snapshots are produced by an external collaborator (file loader, API fetcher,
synthetic generator) and are read-only once a series is built. A series must
be strictly time ordered; the runner never interpolates across gaps.

*/

package types

import (
	"errors"
	"time"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrSeriesEmpty     = errors.New("market series contains no snapshots")
	ErrSeriesUnordered = errors.New("market series is not strictly time ordered")
)

// Pair identifies an ordered coin pair within a pool. Prices for Pair{I, J}
// quote one unit of coin I in units of coin J.
type Pair struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Reversed returns the pair with base and quote swapped.
func (p Pair) Reversed() Pair {
	return Pair{I: p.J, J: p.I}
}

// Snapshot is the external market state at one simulation step.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Prices holds the reference price for each coin pair (base I, quote J).
	// Every pair (i, j) with i < j must be present; all prices are positive.
	Prices map[Pair]float64 `json:"-"`

	// Volumes optionally holds observed trade volume per pair, denominated in
	// 18-decimal units of the base coin. A positive volume trades I into J, a
	// negative volume trades J into I. Steps without observed volume simply
	// omit the pair.
	Volumes map[Pair]sdkmath.Int `json:"-"`
}

// Price returns the reference price for base i quoted in j, deriving the
// reciprocal when only the opposite orientation was recorded.
func (s Snapshot) Price(i, j int) (float64, bool) {
	if p, ok := s.Prices[Pair{I: i, J: j}]; ok {
		return p, true
	}
	if p, ok := s.Prices[Pair{I: j, J: i}]; ok && p > 0 {
		return 1 / p, true
	}
	return 0, false
}

// Series is an ordered sequence of market snapshots identified by a name.
type Series struct {
	ID        string
	Snapshots []Snapshot
}

// Validate checks the ordering contract. Gaps are permitted, reordering is not.
func (s Series) Validate() error {
	if len(s.Snapshots) == 0 {
		return ErrSeriesEmpty
	}
	for i := 1; i < len(s.Snapshots); i++ {
		if !s.Snapshots[i].Timestamp.After(s.Snapshots[i-1].Timestamp) {
			return ErrSeriesUnordered
		}
	}
	return nil
}
