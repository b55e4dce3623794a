package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/election-manager/internal/persistence"
)

func TestPositionRepository_ListBallotPositions(t *testing.T) {
	store := seedVoting(t)

	positions, err := store.positions.ListBallotPositions(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "p1", positions[0].ID)
	assert.Equal(t, "p3", positions[1].ID)
}

func TestPositionRepository_DuplicateOrder(t *testing.T) {
	store := setupStore(t)
	store.createPosition(t, "p1", 1)

	err := store.positions.CreatePosition(context.Background(), persistence.Position{
		ID: "p2", Name: "Treasurer", Order: 1, CreatedAt: baseTime,
	})
	require.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestPositionRepository_DeletePosition(t *testing.T) {
	store := seedVoting(t)
	ctx := context.Background()

	_, err := store.ballots.RecordVote(ctx, voteRecord("1", "s1", "v@example.org", "p1", "a"))
	require.NoError(t, err)

	require.NoError(t, store.positions.DeletePosition(ctx, "p1"))

	nomination, err := store.nominations.GetNomination(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, nomination.DesiredPositionID)

	counts, err := store.ballots.CountVotes(ctx, "s1", "p1")
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.ErrorIs(t, store.positions.DeletePosition(ctx, "p1"), persistence.ErrNotFound)
}

func TestNominationRepository_DuplicateEmail(t *testing.T) {
	store := setupStore(t)
	store.createSession(t, "s1", "2025", persistence.PhaseNominationsOpen, true)
	store.createPosition(t, "p1", 1)
	store.createCandidate(t, "a", "s1", "p1", false, 0)

	duplicate := persistence.Nomination{
		ID:               "a2",
		SessionID:        "s1",
		FullName:         "Someone Else",
		Email:            "a@example.org",
		PhoneNumber:      "010",
		Gender:           "Male",
		Designation:      "Nurse",
		WorkplaceAddress: "Incheon",
		CreatedAt:        baseTime,
		UpdatedAt:        baseTime,
	}
	err := store.nominations.CreateNomination(context.Background(), duplicate)
	require.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestNominationRepository_SetApproval(t *testing.T) {
	store := seedVoting(t)
	ctx := context.Background()

	changed, err := store.nominations.SetApproval(ctx, []string{"d", "missing"}, true, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	candidates, err := store.nominations.ListCandidates(ctx, "s1", "p3")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "c", candidates[0].ID)
	assert.Equal(t, "d", candidates[1].ID)

	changed, err = store.nominations.SetApproval(ctx, []string{"c"}, false, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	all, err := store.nominations.ListNominations(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestResultRepository_ResultRows(t *testing.T) {
	store := seedVoting(t)
	ctx := context.Background()

	_, err := store.ballots.RecordVote(ctx, voteRecord("1", "s1", "v1@example.org", "p1", "b"))
	require.NoError(t, err)
	_, err = store.ballots.RecordVote(ctx, voteRecord("2", "s1", "v2@example.org", "p1", "b"))
	require.NoError(t, err)
	_, err = store.ballots.RecordVote(ctx, voteRecord("3", "s1", "v2@example.org", "p3", "c"))
	require.NoError(t, err)

	rows, err := store.results.ResultRows(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, persistence.ResultRow{PositionID: "p1", PositionName: "Position p1", PositionOrder: 1, NomineeID: "a", NomineeName: "Candidate a", Votes: 0}, rows[0])
	assert.Equal(t, "b", rows[1].NomineeID)
	assert.Equal(t, 2, rows[1].Votes)
	assert.Equal(t, "c", rows[2].NomineeID)
	assert.Equal(t, 1, rows[2].Votes)
}

func TestFormLabelRepository_Upsert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	label := persistence.FormLabel{FormType: "nominee", FieldName: "email", LabelText: "E-mail", UpdatedAt: baseTime}
	require.NoError(t, store.labels.UpsertFormLabel(ctx, label))

	label.LabelText = "Contact e-mail"
	require.NoError(t, store.labels.UpsertFormLabel(ctx, label))

	labels, err := store.labels.ListFormLabels(ctx, "nominee")
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "Contact e-mail", labels[0].LabelText)

	err = store.labels.UpsertFormLabel(ctx, persistence.FormLabel{FormType: "other", FieldName: "x", LabelText: "X", UpdatedAt: baseTime})
	require.ErrorIs(t, err, persistence.ErrConstraintViolation)
}
