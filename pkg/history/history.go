// Package history persists rule-run results to an embedded database so
// operators can inspect what the daemon did after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/audiolink/audiolinkd/pkg/linker"
)

// RunRecord is one persisted rule reconciliation.
type RunRecord struct {
	ID        int64            `json:"id"`
	Rule      string           `json:"rule"`
	RuleIndex int              `json:"rule_index"`
	StartedAt time.Time        `json:"started_at"`
	Created   int              `json:"links_created"`
	Failed    int              `json:"links_failed"`
	Error     string           `json:"error,omitempty"`
	Outcomes  []linker.Outcome `json:"outcomes,omitempty"`
}

// Store is a SQLite-backed run log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the run log at path. ":memory:" gives an ephemeral
// store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rule_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rule TEXT NOT NULL,
		rule_index INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		links_created INTEGER NOT NULL,
		links_failed INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		outcomes JSON NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_rule_runs_rule ON rule_runs(rule);
	CREATE INDEX IF NOT EXISTS idx_rule_runs_started ON rule_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRun appends one run to the log.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) (int64, error) {
	outcomes, err := json.Marshal(rec.Outcomes)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal outcomes: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_runs (rule, rule_index, started_at, links_created, links_failed, error, outcomes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Rule, rec.RuleIndex, rec.StartedAt.UTC(), rec.Created, rec.Failed, rec.Error, string(outcomes))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	return s.query(ctx, `
		SELECT id, rule, rule_index, started_at, links_created, links_failed, error, outcomes
		FROM rule_runs ORDER BY id DESC LIMIT ?
	`, limit)
}

// ByRule returns the newest runs for one rule, most recent first.
func (s *Store) ByRule(ctx context.Context, rule string, limit int) ([]RunRecord, error) {
	return s.query(ctx, `
		SELECT id, rule, rule_index, started_at, links_created, links_failed, error, outcomes
		FROM rule_runs WHERE rule = ? ORDER BY id DESC LIMIT ?
	`, rule, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var outcomes []byte
		if err := rows.Scan(&rec.ID, &rec.Rule, &rec.RuleIndex, &rec.StartedAt,
			&rec.Created, &rec.Failed, &rec.Error, &outcomes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if len(outcomes) > 0 {
			if err := json.Unmarshal(outcomes, &rec.Outcomes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune removes runs older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC()
	res, err := s.db.ExecContext(ctx, `DELETE FROM rule_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
