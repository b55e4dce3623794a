package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/election-manager/internal/application"
)

type catalogService interface {
	ListPositions(ctx context.Context) ([]application.Position, error)
	CreatePosition(ctx context.Context, input application.PositionInput) (application.Position, error)
	DeletePosition(ctx context.Context, id string) error
	Labels(ctx context.Context, formType string) (map[string]string, error)
	SetLabel(ctx context.Context, formType, field, text string) (application.FormLabel, error)
}

// CatalogHandler manages positions and intake form labels.
type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "CatalogHandler", operation, attrs...)
}

func (h *CatalogHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	positions, err := h.service.ListPositions(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]positionDTO, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPositionsResponse{Positions: out})
}

func (h *CatalogHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CreatePosition", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode position", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	position, err := h.service.CreatePosition(r.Context(), application.PositionInput{Name: req.Name, Order: req.Order})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, positionResponse{Position: toPositionDTO(position)})
}

func (h *CatalogHandler) DeletePosition(w http.ResponseWriter, r *http.Request, positionID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := h.service.DeletePosition(r.Context(), positionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Labels handles GET /labels/{form_type}.
func (h *CatalogHandler) Labels(w http.ResponseWriter, r *http.Request, formType string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	labels, err := h.service.Labels(r.Context(), formType)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, labelsResponse{FormType: formType, Labels: labels})
}

// SetLabel handles PUT /admin/labels/{form_type}/{field} with {"label"}.
func (h *CatalogHandler) SetLabel(w http.ResponseWriter, r *http.Request, formType, field string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req labelRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "SetLabel", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode label", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	label, err := h.service.SetLabel(r.Context(), formType, field, req.Label)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, labelDTO{
		FormType:  label.FormType,
		FieldName: label.FieldName,
		Label:     label.LabelText,
		UpdatedAt: label.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

type positionRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type positionResponse struct {
	Position positionDTO `json:"position"`
}

type listPositionsResponse struct {
	Positions []positionDTO `json:"positions"`
}

type positionDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

func toPositionDTO(p application.Position) positionDTO {
	return positionDTO{ID: p.ID, Name: p.Name, Order: p.Order}
}

type labelRequest struct {
	Label string `json:"label"`
}

type labelsResponse struct {
	FormType string            `json:"form_type"`
	Labels   map[string]string `json:"labels"`
}

type labelDTO struct {
	FormType  string `json:"form_type"`
	FieldName string `json:"field_name"`
	Label     string `json:"label"`
	UpdatedAt string `json:"updated_at"`
}
