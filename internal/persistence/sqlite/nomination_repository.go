package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/election-manager/internal/persistence"
)

const nominationColumns = `
	id, session_id, full_name, email, phone_number, gender, designation,
	workplace_address, last_training_date, interested, desired_position_id,
	approved, photo_path, created_at, updated_at`

// NominationRepository implements persistence.NominationRepository using SQLite
type NominationRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewNominationRepository creates a new SQLite nomination repository
func NewNominationRepository(pool *ConnectionPool) *NominationRepository {
	return &NominationRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateNomination inserts a nomination. A second nomination with the same
// session and email fails with persistence.ErrDuplicate.
func (r *NominationRepository) CreateNomination(ctx context.Context, nomination persistence.Nomination) error {
	if nomination.ID == "" || nomination.SessionID == "" || nomination.Email == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO nominations (`+nominationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nomination.ID,
		nomination.SessionID,
		nomination.FullName,
		nomination.Email,
		nomination.PhoneNumber,
		nomination.Gender,
		nomination.Designation,
		nomination.WorkplaceAddress,
		formatOptionalTime(nomination.LastTrainingDate),
		nomination.Interested,
		nomination.DesiredPositionID,
		nomination.Approved,
		nomination.PhotoPath,
		formatTime(nomination.CreatedAt),
		formatTime(nomination.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetNomination retrieves a nomination by ID
func (r *NominationRepository) GetNomination(ctx context.Context, id string) (persistence.Nomination, error) {
	if id == "" {
		return persistence.Nomination{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+nominationColumns+` FROM nominations WHERE id = ?`, id)
	nomination, err := scanNomination(row)
	if err != nil {
		return persistence.Nomination{}, r.mapper.MapError(err)
	}
	return nomination, nil
}

// ListNominations returns a session's nominations in submission order
func (r *NominationRepository) ListNominations(ctx context.Context, sessionID string) ([]persistence.Nomination, error) {
	return r.queryNominations(ctx, `
		SELECT `+nominationColumns+` FROM nominations
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, sessionID)
}

// ListCandidates returns the approved nominations for a position in submission order
func (r *NominationRepository) ListCandidates(ctx context.Context, sessionID, positionID string) ([]persistence.Nomination, error) {
	return r.queryNominations(ctx, `
		SELECT `+nominationColumns+` FROM nominations
		WHERE session_id = ? AND desired_position_id = ? AND approved = 1
		ORDER BY created_at ASC, rowid ASC
	`, sessionID, positionID)
}

// SetApproval marks the given nominations approved or rejected and reports how many rows changed
func (r *NominationRepository) SetApproval(ctx context.Context, ids []string, approved bool, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, approved, formatTime(at))
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE nominations SET approved = ?, updated_at = ?
		WHERE id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *NominationRepository) queryNominations(ctx context.Context, query string, args ...any) ([]persistence.Nomination, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var nominations []persistence.Nomination
	for rows.Next() {
		nomination, err := scanNomination(rows)
		if err != nil {
			return nil, err
		}
		nominations = append(nominations, nomination)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return nominations, nil
}

func scanNomination(row rowScanner) (persistence.Nomination, error) {
	var n persistence.Nomination
	var lastTraining, desiredPosition, photoPath sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&n.ID,
		&n.SessionID,
		&n.FullName,
		&n.Email,
		&n.PhoneNumber,
		&n.Gender,
		&n.Designation,
		&n.WorkplaceAddress,
		&lastTraining,
		&n.Interested,
		&desiredPosition,
		&n.Approved,
		&photoPath,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Nomination{}, err
	}

	if n.LastTrainingDate, err = parseOptionalTime(lastTraining); err != nil {
		return persistence.Nomination{}, err
	}
	n.DesiredPositionID = optionalString(desiredPosition)
	n.PhotoPath = optionalString(photoPath)
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Nomination{}, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Nomination{}, err
	}
	return n, nil
}
