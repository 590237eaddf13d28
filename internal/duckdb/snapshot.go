package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tinytelemetry/rsvexclude/internal/model"
)

// Snapshot is one run's reduced state plus its counters.
type Snapshot struct {
	RunAt       time.Time
	ProfilePath string
	LineCount   int
	ParseErrors int
	Entities    *model.EntitySet
	// Excluded reports whether an NPC made it into the directive.
	Excluded func(*model.NPC) bool
}

// StoredNPC is one row of npc_state.
type StoredNPC struct {
	model.NPC
	Seq      int
	Excluded bool
}

// SaveSnapshot replaces npc_state with the snapshot's entities and appends
// a row to runs, in a single transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("duckdb: begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM npc_state"); err != nil {
		return fmt.Errorf("duckdb: clear npc_state: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO npc_state (seq, id, master, default_plugin, face_plugin, face_mod, excluded) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("duckdb: prepare npc insert: %w", err)
	}
	defer stmt.Close()

	seq, matched := 0, 0
	var insertErr error
	snap.Entities.Each(func(npc *model.NPC) bool {
		excluded := snap.Excluded != nil && snap.Excluded(npc)
		if excluded {
			matched++
		}
		if _, err := stmt.ExecContext(ctx, seq, npc.ID, npc.Master,
			nullable(npc.DefaultPlugin), nullable(npc.FacePlugin), nullable(npc.FaceMod), excluded); err != nil {
			insertErr = fmt.Errorf("duckdb: insert npc %s: %w", npc.ID, err)
			return false
		}
		seq++
		return true
	})
	if insertErr != nil {
		return insertErr
	}

	runAt := snap.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_at, profile_path, line_count, parse_errors, npc_count, matched) VALUES (?, ?, ?, ?, ?, ?)`,
		runAt.UTC(), snap.ProfilePath, snap.LineCount, snap.ParseErrors, seq, matched); err != nil {
		return fmt.Errorf("duckdb: insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("duckdb: commit snapshot: %w", err)
	}
	return nil
}

// LoadState returns the stored NPCs in first-seen order.
func (s *Store) LoadState(ctx context.Context) ([]StoredNPC, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, master, default_plugin, face_plugin, face_mod, excluded FROM npc_state ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: query npc_state: %w", err)
	}
	defer rows.Close()

	var out []StoredNPC
	for rows.Next() {
		var n StoredNPC
		var def, face, faceMod sql.NullString
		if err := rows.Scan(&n.Seq, &n.ID, &n.Master, &def, &face, &faceMod, &n.Excluded); err != nil {
			return nil, fmt.Errorf("duckdb: scan npc_state: %w", err)
		}
		n.DefaultPlugin = slot(def)
		n.FacePlugin = slot(face)
		n.FaceMod = slot(faceMod)
		out = append(out, n)
	}
	return out, rows.Err()
}

// RunCount returns how many runs have been recorded.
func (s *Store) RunCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("duckdb: count runs: %w", err)
	}
	return n, nil
}

func nullable(s model.Slot) sql.NullString {
	return sql.NullString{String: s.Value, Valid: s.Set}
}

func slot(ns sql.NullString) model.Slot {
	return model.Slot{Value: ns.String, Set: ns.Valid}
}
