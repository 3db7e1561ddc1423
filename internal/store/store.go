// Package store defines participant persistence for the wager engine.
// Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/ogas/wager-engine/internal/model"
)

// ErrParticipantNotFound is returned by GetParticipant when no record
// exists for the given ID.
var ErrParticipantNotFound = errors.New("store: participant not found")

// Store is the participant ledger persistence interface. The ledger is
// keyed by immutable participant ID; no two records may share an ID.
type Store interface {
	// GetParticipant retrieves a participant by ID. Returns
	// ErrParticipantNotFound when absent.
	GetParticipant(ctx context.Context, id string) (*model.Participant, error)

	// UpsertParticipant inserts or fully replaces the record for the
	// participant's ID. The store never merges fields; callers decide
	// overwrite rules.
	UpsertParticipant(ctx context.Context, p *model.Participant) error

	// ListParticipants returns all participants. Order is not
	// contractually meaningful.
	ListParticipants(ctx context.Context) ([]model.Participant, error)
}
