package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/election-manager/internal/persistence"
)

const sessionColumns = `
	id, name, nomination_start, nomination_end, voting_start, voting_end,
	phase, nomination_open, voting_open, created_at, updated_at`

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateSession inserts a session and optionally claims the active election slot.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session, activate bool) error {
	if session.ID == "" || strings.TrimSpace(session.Name) == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if activate {
				if err := ensureSlotFree(ctx, tx, session.ID); err != nil {
					return err
				}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO sessions (`+sessionColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				session.ID,
				session.Name,
				formatOptionalTime(session.NominationStart),
				formatOptionalTime(session.NominationEnd),
				formatOptionalTime(session.VotingStart),
				formatOptionalTime(session.VotingEnd),
				session.Phase,
				session.NominationOpen,
				session.VotingOpen,
				formatTime(session.CreatedAt),
				formatTime(session.UpdatedAt),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}

			if activate {
				return claimSlot(ctx, tx, session.ID, session.Phase, session.UpdatedAt)
			}
			return nil
		})
	})
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// ListSessions returns every session, newest first
func (r *SessionRepository) ListSessions(ctx context.Context) ([]persistence.Session, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// LatestSession returns the newest session whose phase is one of phases.
// With no phases it returns the newest session overall.
func (r *SessionRepository) LatestSession(ctx context.Context, phases ...string) (persistence.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := make([]any, 0, len(phases))
	if len(phases) > 0 {
		query += ` WHERE phase IN (` + placeholders(len(phases)) + `)`
		for _, phase := range phases {
			args = append(args, phase)
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT 1`

	session, err := scanSession(r.pool.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// GetActiveElection returns the session holding the active election slot
func (r *SessionRepository) GetActiveElection(ctx context.Context) (persistence.ActiveElection, error) {
	var active persistence.ActiveElection
	var updatedAt string
	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT session_id, phase, updated_at FROM active_election WHERE slot = 1
	`).Scan(&active.SessionID, &active.Phase, &updatedAt)
	if err != nil {
		return persistence.ActiveElection{}, r.mapper.MapError(err)
	}
	if active.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.ActiveElection{}, err
	}
	return active, nil
}

// TransitionSession moves a session from transition.From to transition.To.
// The phase check, the active election slot, and the optional result snapshot
// are applied in a single transaction.
func (r *SessionRepository) TransitionSession(ctx context.Context, transition persistence.SessionTransition) (persistence.Session, error) {
	var updated persistence.Session
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			current, err := scanSession(tx.QueryRowContext(ctx,
				`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, transition.SessionID))
			if err != nil {
				return r.mapper.MapError(err)
			}
			if current.Phase != transition.From {
				return fmt.Errorf("%w: session %s is %q, expected %q",
					persistence.ErrPhaseMismatch, current.ID, current.Phase, transition.From)
			}

			if transition.Activate {
				if err := ensureSlotFree(ctx, tx, current.ID); err != nil {
					return err
				}
			}

			_, err = tx.ExecContext(ctx, `
				UPDATE sessions
				SET phase = ?, nomination_open = ?, voting_open = ?, updated_at = ?
				WHERE id = ?
			`, transition.To, transition.NominationOpen, transition.VotingOpen, formatTime(transition.At), current.ID)
			if err != nil {
				return r.mapper.MapError(err)
			}

			if transition.Activate {
				err = claimSlot(ctx, tx, current.ID, transition.To, transition.At)
			} else {
				_, err = tx.ExecContext(ctx, `DELETE FROM active_election WHERE session_id = ?`, current.ID)
			}
			if err != nil {
				return r.mapper.MapError(err)
			}

			if transition.Snapshot != nil {
				if err := writeSnapshot(ctx, tx, current.ID, *transition.Snapshot); err != nil {
					return r.mapper.MapError(err)
				}
			}

			updated = current
			updated.Phase = transition.To
			updated.NominationOpen = transition.NominationOpen
			updated.VotingOpen = transition.VotingOpen
			updated.UpdatedAt = transition.At.UTC()
			return nil
		})
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return updated, nil
}

func ensureSlotFree(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var holder string
	err := tx.QueryRowContext(ctx, `SELECT session_id FROM active_election WHERE slot = 1`).Scan(&holder)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	case holder != sessionID:
		return fmt.Errorf("%w: held by %s", persistence.ErrActiveElectionTaken, holder)
	}
	return nil
}

func claimSlot(ctx context.Context, tx *sql.Tx, sessionID, phase string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO active_election (slot, session_id, phase, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			session_id = excluded.session_id,
			phase = excluded.phase,
			updated_at = excluded.updated_at
	`, sessionID, phase, formatTime(at))
	return err
}

func writeSnapshot(ctx context.Context, tx *sql.Tx, sessionID string, snapshot persistence.ResultSnapshot) error {
	rows, err := queryResultRows(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode result snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO result_snapshots (id, session_id, computed_at, payload)
		VALUES (?, ?, ?, ?)
	`, snapshot.ID, sessionID, formatTime(snapshot.ComputedAt), string(payload))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var nominationStart, nominationEnd, votingStart, votingEnd sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&session.ID,
		&session.Name,
		&nominationStart,
		&nominationEnd,
		&votingStart,
		&votingEnd,
		&session.Phase,
		&session.NominationOpen,
		&session.VotingOpen,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	for _, field := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&session.NominationStart, nominationStart},
		{&session.NominationEnd, nominationEnd},
		{&session.VotingStart, votingStart},
		{&session.VotingEnd, votingEnd},
	} {
		if *field.dst, err = parseOptionalTime(field.src); err != nil {
			return persistence.Session{}, err
		}
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
