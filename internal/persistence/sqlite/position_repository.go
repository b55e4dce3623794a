package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/election-manager/internal/persistence"
)

// PositionRepository implements persistence.PositionRepository using SQLite
type PositionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPositionRepository creates a new SQLite position repository
func NewPositionRepository(pool *ConnectionPool) *PositionRepository {
	return &PositionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreatePosition inserts a new position
func (r *PositionRepository) CreatePosition(ctx context.Context, position persistence.Position) error {
	if position.ID == "" || strings.TrimSpace(position.Name) == "" || position.Order < 0 {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO positions (id, name, ord, created_at)
		VALUES (?, ?, ?, ?)
	`, position.ID, position.Name, position.Order, formatTime(position.CreatedAt))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetPosition retrieves a position by ID
func (r *PositionRepository) GetPosition(ctx context.Context, id string) (persistence.Position, error) {
	if id == "" {
		return persistence.Position{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, ord, created_at FROM positions WHERE id = ?
	`, id)
	position, err := scanPosition(row)
	if err != nil {
		return persistence.Position{}, r.mapper.MapError(err)
	}
	return position, nil
}

// ListPositions returns all positions by ballot order
func (r *PositionRepository) ListPositions(ctx context.Context) ([]persistence.Position, error) {
	return r.queryPositions(ctx, `
		SELECT id, name, ord, created_at FROM positions ORDER BY ord ASC, id ASC
	`)
}

// ListBallotPositions returns, by ballot order, the positions that have at
// least one approved candidate in the session.
func (r *PositionRepository) ListBallotPositions(ctx context.Context, sessionID string) ([]persistence.Position, error) {
	return r.queryPositions(ctx, `
		SELECT p.id, p.name, p.ord, p.created_at
		FROM positions p
		WHERE EXISTS (
			SELECT 1 FROM nominations n
			WHERE n.desired_position_id = p.id AND n.session_id = ? AND n.approved = 1
		)
		ORDER BY p.ord ASC, p.id ASC
	`, sessionID)
}

// DeletePosition removes a position. Nominations keep their row with no desired
// position and votes for the position are removed by cascade.
func (r *PositionRepository) DeletePosition(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE nominations SET desired_position_id = NULL WHERE desired_position_id = ?
		`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func (r *PositionRepository) queryPositions(ctx context.Context, query string, args ...any) ([]persistence.Position, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var positions []persistence.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return positions, nil
}

func scanPosition(row rowScanner) (persistence.Position, error) {
	var position persistence.Position
	var createdAt string
	if err := row.Scan(&position.ID, &position.Name, &position.Order, &createdAt); err != nil {
		return persistence.Position{}, err
	}
	var err error
	if position.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Position{}, err
	}
	return position, nil
}
