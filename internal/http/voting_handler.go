package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/election-manager/internal/application"
)

type votingService interface {
	Ballot(ctx context.Context, params application.BallotParams) (application.BallotView, error)
	Submit(ctx context.Context, params application.SubmitVoteParams) (application.SubmitResult, error)
}

type tallyService interface {
	VoteCounts(ctx context.Context, positionID string) ([]application.CandidateCount, error)
}

// VotingHandler serves the public ballot and live vote counts.
type VotingHandler struct {
	voting    votingService
	tally     tallyService
	responder responder
	logger    *slog.Logger
}

func NewVotingHandler(voting votingService, tally tallyService, logger *slog.Logger) *VotingHandler {
	base := defaultLogger(logger)
	return &VotingHandler{voting: voting, tally: tally, responder: newResponder(base), logger: base}
}

func (h *VotingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "VotingHandler", operation, attrs...)
}

// Ballot handles GET /voting?token=&position=.
func (h *VotingHandler) Ballot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.voting == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	view, err := h.voting.Ballot(r.Context(), application.BallotParams{
		Token:      query.Get("token"),
		PositionID: query.Get("position"),
	})
	if err != nil {
		h.log(r.Context(), "Ballot").WarnContext(r.Context(), "ballot unavailable", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBallotDTO(view))
}

// Submit handles POST /voting.
func (h *VotingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.voting == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Submit", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode vote", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	voter, err := req.Voter.toInput()
	if err != nil {
		h.rejectVote(r.Context(), w, req, err)
		return
	}

	logger := h.log(r.Context(), "Submit", "position_id", req.PositionID)
	result, err := h.voting.Submit(r.Context(), application.SubmitVoteParams{
		Token:       req.Token,
		PositionID:  req.PositionID,
		CandidateID: req.CandidateID,
		Voter:       voter,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "vote rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.rejectVote(r.Context(), w, req, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, voteResponse{
		Duplicate:          result.Duplicate,
		Warning:            result.Warning,
		RecordedPositionID: result.RecordedPositionID,
		Next:               toBallotDTO(result.Next),
	})
}

// rejectVote answers a failed submission. Validation failures carry the
// ballot the vote was cast on so the client can redisplay it with the field
// errors.
func (h *VotingHandler) rejectVote(ctx context.Context, w http.ResponseWriter, req voteRequest, err error) {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	resp := errorResponse{
		ErrorCode: "VALIDATION_FAILED",
		Message:   "the submitted data is invalid",
		Errors:    vErr.FieldErrors,
	}
	view, ballotErr := h.voting.Ballot(ctx, application.BallotParams{Token: req.Token, PositionID: req.PositionID})
	if ballotErr == nil {
		ballot := toBallotDTO(view)
		resp.Ballot = &ballot
	} else {
		h.log(ctx, "Submit").DebugContext(ctx, "ballot not redisplayed", "error", ballotErr)
	}
	h.responder.writeJSON(ctx, w, http.StatusUnprocessableEntity, resp)
}

// VoteCounts handles GET /api/vote_counts/{position_id}.
func (h *VotingHandler) VoteCounts(w http.ResponseWriter, r *http.Request, positionID string) {
	if h == nil || h.tally == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	counts, err := h.tally.VoteCounts(r.Context(), positionID)
	if err != nil {
		h.log(r.Context(), "VoteCounts", "position_id", positionID).WarnContext(r.Context(), "vote counts failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]voteCountDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, voteCountDTO{CandidateID: c.CandidateID, Count: c.Count})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

const dateLayout = "2006-01-02"

type personRequest struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Gender           string `json:"gender"`
	Designation      string `json:"designation"`
	WorkplaceAddress string `json:"workplace_address"`
	LastTrainingDate string `json:"last_training_date"`
}

func (p personRequest) toInput() (application.VoterInput, error) {
	trained, err := parseOptionalDate("last_training_date", p.LastTrainingDate)
	if err != nil {
		return application.VoterInput{}, err
	}
	return application.VoterInput{
		FullName:         p.FullName,
		Email:            p.Email,
		Gender:           p.Gender,
		Designation:      p.Designation,
		WorkplaceAddress: p.WorkplaceAddress,
		LastTrainingDate: trained,
	}, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, &application.ValidationError{FieldErrors: map[string]string{field: "date must be YYYY-MM-DD"}}
	}
	return &parsed, nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

type voteRequest struct {
	Token       string        `json:"token"`
	PositionID  string        `json:"position_id"`
	CandidateID string        `json:"candidate_id"`
	Voter       personRequest `json:"voter"`
}

type voteResponse struct {
	Duplicate          bool      `json:"duplicate"`
	Warning            string    `json:"warning,omitempty"`
	RecordedPositionID string    `json:"recorded_position_id,omitempty"`
	Next               ballotDTO `json:"next"`
}

type voteCountDTO struct {
	CandidateID string `json:"candidate_id"`
	Count       int    `json:"count"`
}

type ballotDTO struct {
	State            string          `json:"state"`
	ResultsPublished bool            `json:"results_published"`
	SessionID        string          `json:"session_id,omitempty"`
	SessionName      string          `json:"session_name,omitempty"`
	Position         *positionDTO    `json:"position,omitempty"`
	Candidates       []candidateDTO  `json:"candidates,omitempty"`
	Tally            map[string]int  `json:"tally,omitempty"`
	AlreadyVoted     bool            `json:"already_voted"`
	Voter            *ballotVoterDTO `json:"voter,omitempty"`
	Email            string          `json:"email,omitempty"`
	Token            string          `json:"token,omitempty"`
}

type candidateDTO struct {
	ID               string  `json:"id"`
	FullName         string  `json:"full_name"`
	Designation      string  `json:"designation"`
	WorkplaceAddress string  `json:"workplace_address"`
	PhotoPath        *string `json:"photo_path,omitempty"`
}

type ballotVoterDTO struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Gender           string `json:"gender"`
	Designation      string `json:"designation"`
	WorkplaceAddress string `json:"workplace_address"`
	LastTrainingDate string `json:"last_training_date,omitempty"`
}

func toBallotDTO(view application.BallotView) ballotDTO {
	dto := ballotDTO{
		State:            string(view.State),
		ResultsPublished: view.ResultsPublished,
		SessionID:        view.SessionID,
		SessionName:      view.SessionName,
		Tally:            view.Tally,
		AlreadyVoted:     view.AlreadyVoted,
		Email:            view.Email,
		Token:            view.Token,
	}
	if view.Position != nil {
		p := toPositionDTO(*view.Position)
		dto.Position = &p
	}
	for _, c := range view.Candidates {
		dto.Candidates = append(dto.Candidates, candidateDTO{
			ID:               c.ID,
			FullName:         c.FullName,
			Designation:      c.Designation,
			WorkplaceAddress: c.WorkplaceAddress,
			PhotoPath:        c.PhotoPath,
		})
	}
	if view.Voter != nil {
		dto.Voter = &ballotVoterDTO{
			FullName:         view.Voter.FullName,
			Email:            view.Voter.Email,
			Gender:           view.Voter.Gender,
			Designation:      view.Voter.Designation,
			WorkplaceAddress: view.Voter.WorkplaceAddress,
			LastTrainingDate: formatOptionalDate(view.Voter.LastTrainingDate),
		}
	}
	return dto
}
