package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/election-manager/internal/application"
)

type nominationService interface {
	Submit(ctx context.Context, input application.NominationInput) (application.Nomination, error)
	ListNominations(ctx context.Context, sessionID string) ([]application.Nomination, error)
	SetApproval(ctx context.Context, ids []string, approved bool) (int, error)
}

// NominationHandler accepts public nominations and admin approval commands.
type NominationHandler struct {
	service   nominationService
	responder responder
	logger    *slog.Logger
}

func NewNominationHandler(service nominationService, logger *slog.Logger) *NominationHandler {
	base := defaultLogger(logger)
	return &NominationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NominationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "NominationHandler", operation, attrs...)
}

func (h *NominationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req nominationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Submit", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode nomination", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	nomination, err := h.service.Submit(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, nominationResponse{Nomination: toNominationDTO(nomination)})
}

// List handles GET /admin/nominations?session_id=.
func (h *NominationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	nominations, err := h.service.ListNominations(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "nomination list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]nominationDTO, 0, len(nominations))
	for _, n := range nominations {
		out = append(out, toNominationDTO(n))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNominationsResponse{Nominations: out})
}

// Approval handles POST /admin/nominations/approval with {"ids","approved"}.
func (h *NominationHandler) Approval(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req approvalRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Approval", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode approval", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, err := h.service.SetApproval(r.Context(), req.IDs, req.Approved)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, approvalResponse{Updated: updated})
}

type nominationRequest struct {
	personRequest
	PhoneNumber       string  `json:"phone_number"`
	Interested        *bool   `json:"interested"`
	DesiredPositionID *string `json:"desired_position_id"`
	PhotoPath         *string `json:"photo_path"`
}

func (r nominationRequest) toInput() (application.NominationInput, error) {
	trained, err := parseOptionalDate("last_training_date", r.LastTrainingDate)
	if err != nil {
		return application.NominationInput{}, err
	}
	return application.NominationInput{
		FullName:          r.FullName,
		Email:             r.Email,
		PhoneNumber:       r.PhoneNumber,
		Gender:            r.Gender,
		Designation:       r.Designation,
		WorkplaceAddress:  r.WorkplaceAddress,
		LastTrainingDate:  trained,
		Interested:        r.Interested,
		DesiredPositionID: r.DesiredPositionID,
		PhotoPath:         r.PhotoPath,
	}, nil
}

type approvalRequest struct {
	IDs      []string `json:"ids"`
	Approved bool     `json:"approved"`
}

type approvalResponse struct {
	Updated int `json:"updated"`
}

type nominationResponse struct {
	Nomination nominationDTO `json:"nomination"`
}

type listNominationsResponse struct {
	Nominations []nominationDTO `json:"nominations"`
}

type nominationDTO struct {
	ID                string  `json:"id"`
	SessionID         string  `json:"session_id"`
	FullName          string  `json:"full_name"`
	Email             string  `json:"email"`
	PhoneNumber       string  `json:"phone_number"`
	Gender            string  `json:"gender"`
	Designation       string  `json:"designation"`
	WorkplaceAddress  string  `json:"workplace_address"`
	LastTrainingDate  string  `json:"last_training_date,omitempty"`
	Interested        bool    `json:"interested"`
	DesiredPositionID *string `json:"desired_position_id,omitempty"`
	Approved          bool    `json:"approved"`
	PhotoPath         *string `json:"photo_path,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func toNominationDTO(n application.Nomination) nominationDTO {
	return nominationDTO{
		ID:                n.ID,
		SessionID:         n.SessionID,
		FullName:          n.FullName,
		Email:             n.Email,
		PhoneNumber:       n.PhoneNumber,
		Gender:            n.Gender,
		Designation:       n.Designation,
		WorkplaceAddress:  n.WorkplaceAddress,
		LastTrainingDate:  formatOptionalDate(n.LastTrainingDate),
		Interested:        n.Interested,
		DesiredPositionID: n.DesiredPositionID,
		Approved:          n.Approved,
		PhotoPath:         n.PhotoPath,
		CreatedAt:         n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
