package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/election-manager/internal/persistence"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ResultRepository implements persistence.ResultRepository using SQLite
type ResultRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewResultRepository creates a new SQLite result repository
func NewResultRepository(pool *ConnectionPool) *ResultRepository {
	return &ResultRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// ResultRows returns every approved candidate of the session with its vote
// count, grouped by position order and in candidate submission order.
func (r *ResultRepository) ResultRows(ctx context.Context, sessionID string) ([]persistence.ResultRow, error) {
	rows, err := queryResultRows(ctx, r.pool.DB(), sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rows, nil
}

// GetResultSnapshot returns the results frozen when the session was published
func (r *ResultRepository) GetResultSnapshot(ctx context.Context, sessionID string) (persistence.ResultSnapshot, error) {
	var snapshot persistence.ResultSnapshot
	var computedAt, payload string

	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, session_id, computed_at, payload FROM result_snapshots WHERE session_id = ?
	`, sessionID).Scan(&snapshot.ID, &snapshot.SessionID, &computedAt, &payload)
	if err != nil {
		return persistence.ResultSnapshot{}, r.mapper.MapError(err)
	}

	if snapshot.ComputedAt, err = parseTime(computedAt); err != nil {
		return persistence.ResultSnapshot{}, err
	}
	if err := json.Unmarshal([]byte(payload), &snapshot.Rows); err != nil {
		return persistence.ResultSnapshot{}, fmt.Errorf("failed to decode result snapshot: %w", err)
	}
	return snapshot, nil
}

func queryResultRows(ctx context.Context, q queryer, sessionID string) ([]persistence.ResultRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.name, p.ord, n.id, n.full_name, COUNT(v.id)
		FROM positions p
		JOIN nominations n
			ON n.desired_position_id = p.id AND n.session_id = ? AND n.approved = 1
		LEFT JOIN votes v
			ON v.nominee_id = n.id AND v.position_id = p.id AND v.session_id = n.session_id
		GROUP BY p.id, n.id
		ORDER BY p.ord ASC, p.id ASC, n.created_at ASC, n.rowid ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []persistence.ResultRow{}
	for rows.Next() {
		var row persistence.ResultRow
		if err := rows.Scan(
			&row.PositionID,
			&row.PositionName,
			&row.PositionOrder,
			&row.NomineeID,
			&row.NomineeName,
			&row.Votes,
		); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
