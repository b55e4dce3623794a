package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/election-manager/internal/persistence"
)

// BallotRepository implements persistence.BallotRepository using SQLite
type BallotRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBallotRepository creates a new SQLite ballot repository
func NewBallotRepository(pool *ConnectionPool) *BallotRepository {
	return &BallotRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// GetVoterByEmail resolves a voter by session and normalized email
func (r *BallotRepository) GetVoterByEmail(ctx context.Context, sessionID, email string) (persistence.Voter, error) {
	var v persistence.Voter
	var lastTraining, votedAt sql.NullString
	var createdAt string

	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, session_id, full_name, email, gender, designation, workplace_address,
			last_training_date, voted_at, created_at
		FROM voters
		WHERE session_id = ? AND email = ?
	`, sessionID, email).Scan(
		&v.ID,
		&v.SessionID,
		&v.FullName,
		&v.Email,
		&v.Gender,
		&v.Designation,
		&v.WorkplaceAddress,
		&lastTraining,
		&votedAt,
		&createdAt,
	)
	if err != nil {
		return persistence.Voter{}, r.mapper.MapError(err)
	}

	if v.LastTrainingDate, err = parseOptionalTime(lastTraining); err != nil {
		return persistence.Voter{}, err
	}
	if v.VotedAt, err = parseOptionalTime(votedAt); err != nil {
		return persistence.Voter{}, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Voter{}, err
	}
	return v, nil
}

// HasVoted reports whether the voter already has a vote for the position
func (r *BallotRepository) HasVoted(ctx context.Context, sessionID, voterID, positionID string) (bool, error) {
	var exists bool
	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM votes WHERE session_id = ? AND voter_id = ? AND position_id = ?
		)
	`, sessionID, voterID, positionID).Scan(&exists)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return exists, nil
}

// CountVotes tallies votes per nominee for one position. Nominees without
// votes are absent from the result.
func (r *BallotRepository) CountVotes(ctx context.Context, sessionID, positionID string) ([]persistence.VoteCount, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT nominee_id, COUNT(*)
		FROM votes
		WHERE session_id = ? AND position_id = ?
		GROUP BY nominee_id
		ORDER BY nominee_id ASC
	`, sessionID, positionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var counts []persistence.VoteCount
	for rows.Next() {
		var count persistence.VoteCount
		if err := rows.Scan(&count.NomineeID, &count.Count); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return counts, nil
}

// RecordVote commits a vote. Inside one transaction it checks the session is
// open for voting, re-validates the nominee, upserts the voter keyed by
// (session, email), and inserts the vote. When the voter already voted for the
// position the transaction is rolled back and persistence.ErrDuplicate returned.
func (r *BallotRepository) RecordVote(ctx context.Context, record persistence.VoteRecord) (persistence.VoteRecord, error) {
	voter, vote := record.Voter, record.Vote
	if voter.ID == "" || vote.ID == "" || voter.Email == "" {
		return persistence.VoteRecord{}, persistence.ErrConstraintViolation
	}

	var committed persistence.VoteRecord
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var phase string
			if err := tx.QueryRowContext(ctx, `SELECT phase FROM sessions WHERE id = ?`, vote.SessionID).Scan(&phase); err != nil {
				return r.mapper.MapError(err)
			}
			if phase != persistence.PhaseVotingOpen {
				return fmt.Errorf("%w: session %s is %q", persistence.ErrPhaseMismatch, vote.SessionID, phase)
			}

			var eligible int
			err := tx.QueryRowContext(ctx, `
				SELECT 1 FROM nominations
				WHERE id = ? AND session_id = ? AND desired_position_id = ? AND approved = 1
			`, vote.NomineeID, vote.SessionID, vote.PositionID).Scan(&eligible)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: nominee %s", persistence.ErrCandidateIneligible, vote.NomineeID)
			}
			if err != nil {
				return r.mapper.MapError(err)
			}

			var voterID, createdAt string
			err = tx.QueryRowContext(ctx, `
				INSERT INTO voters (
					id, session_id, full_name, email, gender, designation,
					workplace_address, last_training_date, voted_at, created_at
				)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (session_id, email) DO UPDATE SET
					full_name = excluded.full_name,
					gender = excluded.gender,
					designation = excluded.designation,
					workplace_address = excluded.workplace_address,
					last_training_date = excluded.last_training_date,
					voted_at = excluded.voted_at
				RETURNING id, created_at
			`,
				voter.ID,
				vote.SessionID,
				voter.FullName,
				voter.Email,
				voter.Gender,
				voter.Designation,
				voter.WorkplaceAddress,
				formatOptionalTime(voter.LastTrainingDate),
				formatOptionalTime(voter.VotedAt),
				formatTime(voter.CreatedAt),
			).Scan(&voterID, &createdAt)
			if err != nil {
				return r.mapper.MapError(err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO votes (id, session_id, voter_id, position_id, nominee_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, vote.ID, vote.SessionID, voterID, vote.PositionID, vote.NomineeID, formatTime(vote.CreatedAt))
			if err != nil {
				return r.mapper.MapError(err)
			}

			committed = record
			committed.Voter.ID = voterID
			committed.Voter.SessionID = vote.SessionID
			if committed.Voter.CreatedAt, err = parseTime(createdAt); err != nil {
				return err
			}
			committed.Vote.VoterID = voterID
			return nil
		})
	})
	if err != nil {
		return persistence.VoteRecord{}, err
	}
	return committed, nil
}
