// Package parimutuel implements pari-mutuel pool accounting and odds for
// the essay competition wager engine.
//
// Under the pari-mutuel rule all stakes form a single pool and the odds
// for a candidate are the ratio of the total pool to that candidate's
// share:
//
//	odds[c] = totalPool / pool[c]
//
// A backer of the winning candidate is paid stake × odds, so the whole
// pool flows to the winner's backers and losing stakes fund the payout.
//
// All token amounts use shopspring/decimal — never float64 for money.
// Every function here is pure: identical inputs yield identical outputs.
package parimutuel

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/model"
)

var (
	// ErrUnbackedWinner is returned when the winning candidate has no
	// recorded stakes, which makes its odds undefined.
	ErrUnbackedWinner = errors.New("parimutuel: winning candidate has no recorded stakes")

	// OddsScale is the number of decimal places odds are rounded to.
	OddsScale int32 = 8
)

// Book is a snapshot of all pools and odds, rebuilt from the full set of
// current stakes at settlement time.
type Book struct {
	Pools     map[string]decimal.Decimal
	TotalPool decimal.Decimal
	Odds      map[string]decimal.Decimal
}

// Compile builds the Book from every participant's current stakes.
//
// Candidates with zero total backing are excluded from the odds map:
// their odds would require dividing by zero. They still appear in Pools
// with a zero entry only if some participant recorded a zero stake,
// which bet placement forbids, so in practice unbacked candidates are
// simply absent.
func Compile(participants []model.Participant) *Book {
	pools := make(map[string]decimal.Decimal)
	total := decimal.Zero

	for _, p := range participants {
		for candidateID, stake := range p.Bets {
			pools[candidateID] = pools[candidateID].Add(stake)
			total = total.Add(stake)
		}
	}

	odds := make(map[string]decimal.Decimal, len(pools))
	for candidateID, pool := range pools {
		if pool.IsPositive() {
			odds[candidateID] = total.Div(pool).Round(OddsScale)
		}
	}

	return &Book{Pools: pools, TotalPool: total, Odds: odds}
}

// WinnerOdds returns the odds for the winning candidate, or
// ErrUnbackedWinner when nobody staked on it.
func (b *Book) WinnerOdds(winnerID string) (decimal.Decimal, error) {
	odds, ok := b.Odds[winnerID]
	if !ok {
		return decimal.Decimal{}, ErrUnbackedWinner
	}
	return odds, nil
}

// Payout returns the pari-mutuel payout for one winning stake:
// stake × totalPool / pool[winner]. The multiplication happens before
// the division so exactly divisible pools settle without rounding
// drift. Returns zero when the winner has no backing.
func (b *Book) Payout(winnerID string, stake decimal.Decimal) decimal.Decimal {
	pool := b.Pools[winnerID]
	if !pool.IsPositive() {
		return decimal.Zero
	}
	return stake.Mul(b.TotalPool).Div(pool)
}
