// Package history persists decision cycle results to SQLite for audit and
// for the API's decision endpoints.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/database"
	"github.com/kyrou/warden/internal/orchestrator"
)

// ErrNotFound is returned when no decision matches the query.
var ErrNotFound = errors.New("decision not found")

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	approved    INTEGER NOT NULL,
	risk_level  TEXT NOT NULL,
	veto_count  INTEGER NOT NULL,
	confidence  REAL NOT NULL,
	signal_count INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at DESC);
`

// Repository is the decision trail. Full results are stored as JSON with a
// few indexed columns broken out for querying.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates the repository and applies the schema.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply decisions schema: %w", err)
	}
	return &Repository{
		db:  db,
		log: log.With().Str("component", "history").Logger(),
	}, nil
}

// Save appends one decision to the trail.
func (r *Repository) Save(ctx context.Context, result *orchestrator.ConsensusResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal decision %s: %w", result.ID, err)
	}

	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO decisions (id, created_at, approved, risk_level, veto_count, confidence, signal_count, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID,
			result.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			boolToInt(result.Approved),
			result.RiskLevel,
			result.VetoCount,
			result.Confidence,
			len(result.Signals),
			string(payload),
		)
		return err
	})
}

// Latest returns the most recent decision, or ErrNotFound on an empty
// trail.
func (r *Repository) Latest(ctx context.Context) (*orchestrator.ConsensusResult, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload FROM decisions ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanDecision(row)
}

// Get returns one decision by ID, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*orchestrator.ConsensusResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT payload FROM decisions WHERE id = ?`, id)
	return scanDecision(row)
}

// List returns up to limit decisions, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]*orchestrator.ConsensusResult, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM decisions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var out []*orchestrator.ConsensusResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		var result orchestrator.ConsensusResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decision payload: %w", err)
		}
		out = append(out, &result)
	}
	return out, rows.Err()
}

// Count returns the number of stored decisions.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n)
	return n, err
}

// Prune deletes everything but the newest keep decisions.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM decisions WHERE id NOT IN (
			SELECT id FROM decisions ORDER BY created_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune decisions: %w", err)
	}
	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Int("kept", keep).Msg("pruned decision history")
	}
	return deleted, nil
}

func scanDecision(row *sql.Row) (*orchestrator.ConsensusResult, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}
	var result orchestrator.ConsensusResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision payload: %w", err)
	}
	return &result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
