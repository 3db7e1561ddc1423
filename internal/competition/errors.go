package competition

import "errors"

var (
	// ErrInvalidAmount is returned when a bet amount is not a positive
	// integer number of tokens.
	ErrInvalidAmount = errors.New("competition: bet amount must be a positive integer")

	// ErrInsufficientFunds is returned when a bet exceeds the
	// participant's available balance.
	ErrInsufficientFunds = errors.New("competition: insufficient balance for bet")

	// ErrParticipantNotFound is returned when an action references a
	// participant with no ledger record. A participant with zero
	// interactions cannot bet; they must first claim UBI or receive an
	// author grant.
	ErrParticipantNotFound = errors.New("competition: participant not found")

	// ErrUnknownCandidate is returned when a bet or settlement references
	// a candidate that is not registered, or a winner with no recorded
	// stakes.
	ErrUnknownCandidate = errors.New("competition: unknown candidate")

	// ErrIllegalPhaseTransition is returned when an action is attempted
	// outside its legal phase, or a phase change would regress or skip.
	ErrIllegalPhaseTransition = errors.New("competition: illegal phase transition")

	// ErrCompetitionSettled is returned when a state-changing action
	// arrives after settlement has run.
	ErrCompetitionSettled = errors.New("competition: already settled")

	// ErrCompetitionActive is returned when setup is requested while an
	// unsettled competition exists.
	ErrCompetitionActive = errors.New("competition: a competition is already active")

	// ErrBelowThreshold is returned when a candidate post does not meet
	// the article validity threshold.
	ErrBelowThreshold = errors.New("competition: post content below validity threshold")
)
