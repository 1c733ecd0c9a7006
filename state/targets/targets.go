package targets

import (
	"math"

	"golang.org/x/exp/slices"
)

// Target is one row of the wallet's split table.
type Target struct {
	Wallet  string `json:"wallet"`
	Alias   string `json:"alias"`
	Percent int    `json:"percent"`
}

// Candidate is a wallet competing for a slice of the allocation, weighted by
// its accumulated payouts.
type Candidate struct {
	Wallet  string
	Alias   string
	Payouts float64
}

// Table is the external split table the computed allocation is written to.
type Table interface {
	ReplaceTargets([]Target) error
}

// Engine computes the percentage table. MaxAllocation is the number of
// points available to candidates; the default wallet always absorbs whatever
// is left of the 100.
type Engine struct {
	DefaultWallet string
	DefaultAlias  string
	MaxAllocation int
	MinPercent    int
}

// MaxWallets is the hard ceiling on the number of non-default targets.
func (e Engine) MaxWallets() int {
	if e.MinPercent <= 0 {
		return e.MaxAllocation
	}
	return e.MaxAllocation / e.MinPercent
}

// Calculate turns the candidate list into a split table that sums to exactly
// 100. Candidates beyond the wallet ceiling are dropped outright, highest
// payouts first, ties keeping their original order. Every surviving
// candidate gets the minimum percent, the remainder is spread proportionally
// to payout weight with floor rounding, and leftover points go out one at a
// time by largest fractional remainder, wrapping around if needed. The
// default wallet's percent is 100 minus everything else, which is the only
// subtraction from 100 in the whole calculation.
func (e Engine) Calculate(candidates []Candidate) []Target {
	combined := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Wallet == e.DefaultWallet {
			continue
		}
		if c.Alias == "" {
			c.Alias = "Unknown"
		}
		combined = append(combined, c)
	}
	if len(combined) == 0 {
		return []Target{{Wallet: e.DefaultWallet, Alias: e.DefaultAlias, Percent: 100}}
	}
	if max := e.MaxWallets(); len(combined) > max {
		slices.SortStableFunc(combined, func(a, b Candidate) bool {
			return a.Payouts > b.Payouts
		})
		combined = combined[:max]
	}

	var totalPayouts float64
	for _, c := range combined {
		totalPayouts += c.Payouts
	}
	if totalPayouts == 0 {
		totalPayouts = 1
	}

	percents := make([]int, len(combined))
	for i := range percents {
		percents[i] = e.MinPercent
	}
	remaining := e.MaxAllocation - e.MinPercent*len(combined)

	fractions := make([]float64, len(combined))
	for i, c := range combined {
		additional := c.Payouts / totalPayouts * float64(remaining)
		floored := math.Floor(additional)
		percents[i] += int(floored)
		fractions[i] = additional - floored
	}

	allocated := 0
	for _, p := range percents {
		allocated += p
	}
	if leftover := e.MaxAllocation - allocated; leftover > 0 {
		order := make([]int, len(combined))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) bool {
			return fractions[a] > fractions[b]
		})
		for i := 0; i < leftover; i++ {
			percents[order[i%len(order)]]++
		}
	}

	out := make([]Target, 0, len(combined)+1)
	sum := 0
	for i, c := range combined {
		out = append(out, Target{Wallet: c.Wallet, Alias: c.Alias, Percent: percents[i]})
		sum += percents[i]
	}
	return append([]Target{{Wallet: e.DefaultWallet, Alias: e.DefaultAlias, Percent: 100 - sum}}, out...)
}
