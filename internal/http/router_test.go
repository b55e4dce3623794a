package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/election-manager/internal/application"
	"github.com/example/election-manager/internal/testfixtures"
)

const testAdminKey = "let-me-in"

type keyAuthenticator string

func (k keyAuthenticator) Authenticate(key string) error {
	if key != string(k) {
		return application.ErrUnauthorized
	}
	return nil
}

type apiHarness struct {
	*testfixtures.ElectionHarness
	handler http.Handler
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	h := testfixtures.NewElectionHarness(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s := h.Services

	handler := NewRouter(RouterConfig{
		Voting:      NewVotingHandler(s.Voting, s.Tally, logger),
		Nominations: NewNominationHandler(s.Nominations, logger),
		Results:     NewResultsHandler(s.Results, logger),
		Sessions:    NewSessionHandler(s.Lifecycle, logger),
		Catalog:     NewCatalogHandler(s.Catalog, logger),
		Admin:       RequireAdmin(keyAuthenticator(testAdminKey), logger),
		Health:      func() error { return nil },
		Logger:      logger,
		Middleware:  []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
	return &apiHarness{ElectionHarness: h, handler: handler}
}

func (a *apiHarness) do(t *testing.T, method, target string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if admin {
		req.Header.Set(AdminKeyHeader, testAdminKey)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func voterBody(email string) map[string]string {
	return map[string]string{
		"full_name":         "Lee Voter",
		"email":             email,
		"gender":            application.GenderFemale,
		"designation":       "Nurse",
		"workplace_address": "Incheon",
	}
}

func TestHealth(t *testing.T) {
	api := newAPIHarness(t)

	rec := api.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/health", nil, false)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestAdminRoutesRequireKey(t *testing.T) {
	api := newAPIHarness(t)

	rec := api.do(t, http.MethodGet, "/admin/sessions", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
	req.Header.Set(AdminKeyHeader, "wrong")
	wrong := httptest.NewRecorder()
	api.handler.ServeHTTP(wrong, req)
	assert.Equal(t, http.StatusForbidden, wrong.Code)

	rec = api.do(t, http.MethodGet, "/admin/sessions", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminWithoutAuthenticatorForbids(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	handler := RequireAdmin(nil, nil)(next)

	req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
	req.Header.Set(AdminKeyHeader, "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestAdminRoutesNotMountedWithoutGuard(t *testing.T) {
	h := testfixtures.NewElectionHarness(t)
	handler := NewRouter(RouterConfig{Sessions: NewSessionHandler(h.Services.Lifecycle, nil)})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestElectionOverHTTP(t *testing.T) {
	api := newAPIHarness(t)

	rec := api.do(t, http.MethodPost, "/admin/sessions", map[string]string{"name": "2025"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeBody[sessionResponse](t, rec).Session
	assert.Equal(t, string(application.PhaseNominationsOpen), session.Phase)

	positions := map[string]string{}
	for i, name := range []string{"President", "Vice President", "Treasurer"} {
		rec = api.do(t, http.MethodPost, "/admin/positions", map[string]any{"name": name, "order": i + 1}, true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		positions[name] = decodeBody[positionResponse](t, rec).Position.ID
	}

	nominate := func(name, email, position string) *httptest.ResponseRecorder {
		body := map[string]any{
			"full_name":           name,
			"email":               email,
			"gender":              application.GenderMale,
			"designation":         "Engineer",
			"workplace_address":   "Seoul",
			"phone_number":        "010-2222-3333",
			"interested":          true,
			"desired_position_id": position,
		}
		return api.do(t, http.MethodPost, "/nominations", body, false)
	}
	var approved []string
	for _, n := range []struct{ name, email, position string }{
		{"Candidate A", "a@example.com", positions["President"]},
		{"Candidate B", "b@example.com", positions["President"]},
		{"Candidate C", "c@example.com", positions["Treasurer"]},
	} {
		rec = nominate(n.name, n.email, n.position)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		approved = append(approved, decodeBody[nominationResponse](t, rec).Nomination.ID)
	}
	candidateA := approved[0]

	rec = nominate("Again A", "A@example.com", positions["President"])
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_SUBMISSION", decodeBody[errorResponse](t, rec).ErrorCode)

	rec = api.do(t, http.MethodPost, "/admin/nominations/approval", map[string]any{"ids": approved, "approved": true}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decodeBody[approvalResponse](t, rec).Updated)

	rec = api.do(t, http.MethodGet, "/voting", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(application.StateNoActiveSession), decodeBody[ballotDTO](t, rec).State)

	rec = api.do(t, http.MethodPost, "/admin/sessions/"+session.ID+"/transition", map[string]string{"phase": string(application.PhaseVotingOpen)}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/voting", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	ballot := decodeBody[ballotDTO](t, rec)
	require.NotNil(t, ballot.Position)
	assert.Equal(t, positions["President"], ballot.Position.ID)
	assert.Len(t, ballot.Candidates, 2)

	vote := map[string]any{
		"token":        ballot.Token,
		"position_id":  positions["President"],
		"candidate_id": candidateA,
		"voter":        voterBody("voter@example.com"),
	}
	rec = api.do(t, http.MethodPost, "/voting", vote, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[voteResponse](t, rec)
	assert.False(t, result.Duplicate)
	require.NotNil(t, result.Next.Position)
	assert.Equal(t, positions["Treasurer"], result.Next.Position.ID)

	rec = api.do(t, http.MethodPost, "/voting", vote, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	duplicate := decodeBody[voteResponse](t, rec)
	assert.True(t, duplicate.Duplicate)
	assert.Equal(t, application.DuplicateVoteWarning, duplicate.Warning)
	assert.Equal(t, positions["Treasurer"], duplicate.Next.Position.ID)

	rec = api.do(t, http.MethodGet, "/api/vote_counts/"+positions["President"], nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []voteCountDTO{{CandidateID: candidateA, Count: 1}}, decodeBody[[]voteCountDTO](t, rec))

	rec = api.do(t, http.MethodGet, "/api/vote_counts/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/results", nil, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/admin/sessions/"+session.ID+"/publish", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := decodeBody[resultsDTO](t, rec)
	assert.True(t, published.Frozen)
	require.Len(t, published.Positions, 2)
	assert.Equal(t, candidateA, published.Positions[0].Candidates[0].CandidateID)

	rec = api.do(t, http.MethodGet, "/results", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, published.Positions, decodeBody[resultsDTO](t, rec).Positions)

	rec = api.do(t, http.MethodGet, "/api/vote_counts/"+positions["President"], nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/voting", nil, false)
	closed := decodeBody[ballotDTO](t, rec)
	assert.Equal(t, string(application.StateNoActiveSession), closed.State)
	assert.True(t, closed.ResultsPublished)

	rec = api.do(t, http.MethodPost, "/admin/sessions/"+session.ID+"/transition", map[string]string{"phase": string(application.PhaseVotingOpen)}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeBody[errorResponse](t, rec).ErrorCode)
}

func TestVoteValidationErrors(t *testing.T) {
	api := newAPIHarness(t)
	e := api.SeedElection2025(t)

	rec := api.do(t, http.MethodPost, "/voting", map[string]any{
		"position_id": e.P1.ID,
		"voter":       map[string]string{"email": "not-an-email"},
	}, false)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body.ErrorCode)
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "candidate_id")
	require.NotNil(t, body.Ballot, "the ballot is redisplayed with the errors")
	assert.Equal(t, string(application.StatePresentingBallot), body.Ballot.State)
	require.NotNil(t, body.Ballot.Position)
	assert.Equal(t, e.P1.ID, body.Ballot.Position.ID)
	assert.Len(t, body.Ballot.Candidates, 2)

	rec = api.do(t, http.MethodPost, "/voting", map[string]any{
		"position_id": e.P1.ID,
		"voter":       map[string]string{"last_training_date": "yesterday"},
	}, false)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Errors, "last_training_date")
	assert.NotNil(t, body.Ballot)

	req := httptest.NewRequest(http.MethodPost, "/voting", bytes.NewBufferString(`{"unexpected":true}`))
	bad := httptest.NewRecorder()
	api.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	rec = api.do(t, http.MethodGet, "/voting?token=forged.token", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BALLOT_TOKEN", decodeBody[errorResponse](t, rec).ErrorCode)

	rec = api.do(t, http.MethodGet, "/voting?position=unknown", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLabels(t *testing.T) {
	api := newAPIHarness(t)

	rec := api.do(t, http.MethodPut, "/admin/labels/voter/full_name", map[string]string{"label": "Your name"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/labels/voter", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	labels := decodeBody[labelsResponse](t, rec)
	assert.Equal(t, "Your name", labels.Labels["full_name"])

	rec = api.do(t, http.MethodGet, "/labels/unknown", nil, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{application.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
		{application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{application.ErrDuplicateSubmission, http.StatusConflict, "DUPLICATE_SUBMISSION"},
		{application.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{application.ErrPhaseViolation, http.StatusConflict, "PHASE_VIOLATION"},
		{application.ErrActiveElectionConflict, http.StatusConflict, "ACTIVE_ELECTION_CONFLICT"},
		{application.ErrInvalidBallotToken, http.StatusBadRequest, "INVALID_BALLOT_TOKEN"},
		{&application.ValidationError{FieldErrors: map[string]string{"name": "required"}}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	r := newResponder(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.handleServiceError(httptest.NewRequest(http.MethodGet, "/", nil).Context(), rec, tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		body := decodeBody[errorResponse](t, rec)
		assert.Equal(t, tc.code, body.ErrorCode, tc.err.Error())
		assert.NotContains(t, body.Message, "disk on fire")
	}
}
