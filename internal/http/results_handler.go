package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/election-manager/internal/application"
)

type resultsService interface {
	PublishedResults(ctx context.Context) (application.SessionResults, error)
	AdminResults(ctx context.Context, sessionID string) (application.SessionResults, error)
	Publish(ctx context.Context, sessionID string) (application.SessionResults, error)
}

// ResultsHandler serves published and live results.
type ResultsHandler struct {
	service   resultsService
	responder responder
	logger    *slog.Logger
}

func NewResultsHandler(service resultsService, logger *slog.Logger) *ResultsHandler {
	base := defaultLogger(logger)
	return &ResultsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResultsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ResultsHandler", operation, attrs...)
}

// Published handles GET /results.
func (h *ResultsHandler) Published(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	results, err := h.service.PublishedResults(r.Context())
	if err != nil {
		h.log(r.Context(), "Published").InfoContext(r.Context(), "results unavailable", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResultsDTO(results))
}

// Admin handles GET /admin/results?session_id=.
func (h *ResultsHandler) Admin(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	results, err := h.service.AdminResults(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResultsDTO(results))
}

// Publish handles POST /admin/sessions/{id}/publish.
func (h *ResultsHandler) Publish(w http.ResponseWriter, r *http.Request, sessionID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	results, err := h.service.Publish(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Publish", "session_id", sessionID).InfoContext(r.Context(), "results published")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResultsDTO(results))
}

type resultsDTO struct {
	Session    sessionDTO          `json:"session"`
	Positions  []positionResultDTO `json:"positions"`
	ComputedAt string              `json:"computed_at"`
	Frozen     bool                `json:"frozen"`
}

type positionResultDTO struct {
	PositionID string               `json:"position_id"`
	Name       string               `json:"name"`
	Order      int                  `json:"order"`
	Candidates []candidateResultDTO `json:"candidates"`
}

type candidateResultDTO struct {
	CandidateID string `json:"candidate_id"`
	FullName    string `json:"full_name"`
	Votes       int    `json:"votes"`
}

func toResultsDTO(results application.SessionResults) resultsDTO {
	dto := resultsDTO{
		Session:    toSessionDTO(results.Session),
		Positions:  make([]positionResultDTO, 0, len(results.Positions)),
		ComputedAt: results.ComputedAt.UTC().Format(time.RFC3339Nano),
		Frozen:     results.Frozen,
	}
	for _, p := range results.Positions {
		out := positionResultDTO{
			PositionID: p.PositionID,
			Name:       p.Name,
			Order:      p.Order,
			Candidates: make([]candidateResultDTO, 0, len(p.Candidates)),
		}
		for _, c := range p.Candidates {
			out.Candidates = append(out.Candidates, candidateResultDTO{CandidateID: c.CandidateID, FullName: c.FullName, Votes: c.Votes})
		}
		dto.Positions = append(dto.Positions, out)
	}
	return dto
}
