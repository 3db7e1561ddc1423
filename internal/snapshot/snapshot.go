// Package snapshot reads and writes the flat balance file: a UTF-8 JSON
// object mapping participant ID → balance. The file is rewritten in full
// after every balance-affecting operation (last write wins); key order
// is not contractually meaningful.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/model"
	"github.com/ogas/wager-engine/internal/store"
)

// Writer persists balance snapshots to one file path.
type Writer struct {
	path string
}

// NewWriter creates a snapshot writer for the given file path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Save serializes the participants' balances and replaces the file.
// The write goes through a temp file and rename so a crash mid-write
// never leaves a truncated snapshot.
func (w *Writer) Save(participants []model.Participant) error {
	balances := make(map[string]decimal.Decimal, len(participants))
	for _, p := range participants {
		balances[p.ID] = p.Balance
	}

	data, err := json.MarshalIndent(balances, "", "    ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal balances: %w", err)
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot: create dir: %w", err)
		}
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("snapshot: replace snapshot: %w", err)
	}
	return nil
}

// Load reads the balance file back into an ID → balance map. A missing
// file is not an error: it yields an empty map for a fresh run.
func (w *Writer) Load() (map[string]decimal.Decimal, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]decimal.Decimal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read file: %w", err)
	}

	balances := make(map[string]decimal.Decimal)
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("snapshot: parse file: %w", err)
	}
	return balances, nil
}

// Restore seeds the store with one participant per persisted balance.
// The file only carries balances, so restored participants come back
// with no grant flags and no open stakes. Returns the number restored.
func (w *Writer) Restore(ctx context.Context, st store.Store) (int, error) {
	balances, err := w.Load()
	if err != nil {
		return 0, err
	}
	for id, balance := range balances {
		p := model.NewParticipant(id)
		p.Balance = balance
		if err := st.UpsertParticipant(ctx, p); err != nil {
			return 0, fmt.Errorf("snapshot: restore %s: %w", id, err)
		}
	}
	return len(balances), nil
}
