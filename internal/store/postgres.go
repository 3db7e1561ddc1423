package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Token amounts are stored as NUMERIC for exact decimal precision.
//
// Schema:
//
//	participants (id TEXT PRIMARY KEY, balance NUMERIC,
//	              is_article_author BOOLEAN, has_received_ubi BOOLEAN)
//	stakes       (participant_id TEXT REFERENCES participants(id),
//	              candidate_id TEXT, amount NUMERIC,
//	              PRIMARY KEY (participant_id, candidate_id))
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	var p model.Participant
	var balance string

	err := s.pool.QueryRow(ctx,
		`SELECT id, balance::TEXT, is_article_author, has_received_ubi
		 FROM participants WHERE id = $1`, id).
		Scan(&p.ID, &balance, &p.IsArticleAuthor, &p.HasReceivedUBI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %s: %w", id, err)
	}
	p.Balance, _ = decimal.NewFromString(balance)

	p.Bets, err = s.loadStakes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) loadStakes(ctx context.Context, participantID string) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT candidate_id, amount::TEXT
		 FROM stakes WHERE participant_id = $1`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bets := make(map[string]decimal.Decimal)
	for rows.Next() {
		var candidateID, amountS string
		if err := rows.Scan(&candidateID, &amountS); err != nil {
			return nil, err
		}
		bets[candidateID], _ = decimal.NewFromString(amountS)
	}
	return bets, rows.Err()
}

// UpsertParticipant replaces the participant row and its stake rows in
// one transaction. Last write wins; no field merging.
func (s *PostgresStore) UpsertParticipant(ctx context.Context, p *model.Participant) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO participants (id, balance, is_article_author, has_received_ubi)
		 VALUES ($1, $2::NUMERIC, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET balance = EXCLUDED.balance,
		     is_article_author = EXCLUDED.is_article_author,
		     has_received_ubi = EXCLUDED.has_received_ubi`,
		p.ID, p.Balance.String(), p.IsArticleAuthor, p.HasReceivedUBI,
	)
	if err != nil {
		return fmt.Errorf("upsert participant %s: %w", p.ID, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM stakes WHERE participant_id = $1`, p.ID); err != nil {
		return err
	}
	for candidateID, amount := range p.Bets {
		if _, err := tx.Exec(ctx,
			`INSERT INTO stakes (participant_id, candidate_id, amount)
			 VALUES ($1, $2, $3::NUMERIC)`,
			p.ID, candidateID, amount.String()); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, balance::TEXT, is_article_author, has_received_ubi
		 FROM participants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		var balance string
		if err := rows.Scan(&p.ID, &balance, &p.IsArticleAuthor, &p.HasReceivedUBI); err != nil {
			return nil, err
		}
		p.Balance, _ = decimal.NewFromString(balance)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range participants {
		bets, err := s.loadStakes(ctx, participants[i].ID)
		if err != nil {
			return nil, err
		}
		participants[i].Bets = bets
	}
	return participants, nil
}
