// Package model defines the core domain types shared across the wager engine.
// All token amounts use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the competition's current stage. Phases advance strictly
// forward: PREMATCH → ONGOING → GRADING → CONCLUDING.
type Phase int

const (
	PhasePrematch Phase = iota + 1
	PhaseOngoing
	PhaseGrading
	PhaseConcluding
)

// String returns the lowercase phase name used on the wire and in logs.
func (p Phase) String() string {
	switch p {
	case PhasePrematch:
		return "prematch"
	case PhaseOngoing:
		return "ongoing"
	case PhaseGrading:
		return "grading"
	case PhaseConcluding:
		return "concluding"
	default:
		return "unknown"
	}
}

// ParsePhase maps a wire name back to a Phase. Returns false for
// unrecognized names.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "prematch":
		return PhasePrematch, true
	case "ongoing":
		return PhaseOngoing, true
	case "grading":
		return PhaseGrading, true
	case "concluding":
		return PhaseConcluding, true
	}
	return 0, false
}

// Participant is one ledger account. Identity is the immutable ID
// assigned at first contact; equality is identifier-based only.
type Participant struct {
	ID              string          `json:"id" db:"id"`
	Balance         decimal.Decimal `json:"balance" db:"balance"`
	IsArticleAuthor bool            `json:"is_article_author" db:"is_article_author"`
	HasReceivedUBI  bool            `json:"has_received_ubi" db:"has_received_ubi"`

	// Bets maps candidate ID → current stake. One entry per candidate;
	// a later bet on the same candidate replaces the earlier stake.
	Bets map[string]decimal.Decimal `json:"bets"`
}

// NewParticipant creates a zero-balance participant for the given ID.
func NewParticipant(id string) *Participant {
	return &Participant{
		ID:      id,
		Balance: decimal.Zero,
		Bets:    make(map[string]decimal.Decimal),
	}
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing internal state to mutation.
func (p *Participant) Clone() *Participant {
	cp := *p
	cp.Bets = make(map[string]decimal.Decimal, len(p.Bets))
	for k, v := range p.Bets {
		cp.Bets[k] = v
	}
	return &cp
}

// Candidate is a contestant post registered into the competition.
type Candidate struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	Title         string    `json:"title"`
	ContentLength int       `json:"content_length"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// BalanceLine is one row of the final settlement report.
type BalanceLine struct {
	ParticipantID string          `json:"participant_id"`
	Balance       decimal.Decimal `json:"balance"`
	Payout        decimal.Decimal `json:"payout"` // zero unless backing the winner
}

// SettlementReport is produced exactly once, on the transition to
// CONCLUDING.
type SettlementReport struct {
	WinnerID  string                     `json:"winner_id"`
	Odds      map[string]decimal.Decimal `json:"odds"`
	Pools     map[string]decimal.Decimal `json:"pools"`
	TotalPool decimal.Decimal            `json:"total_pool"`
	Balances  []BalanceLine              `json:"balances"`
	SettledAt time.Time                  `json:"settled_at"`
}
