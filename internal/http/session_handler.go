package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/election-manager/internal/application"
)

type sessionService interface {
	ListSessions(ctx context.Context) ([]application.Session, error)
	CreateSession(ctx context.Context, input application.SessionInput) (application.Session, error)
	Transition(ctx context.Context, sessionID string, target application.Phase) (application.Session, error)
}

// SessionHandler exposes the administrator session commands.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "session list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionDTO(s))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: out})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	session, err := h.service.CreateSession(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Create", "session_id", session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

// Transition handles POST /admin/sessions/{id}/transition with {"phase"}.
func (h *SessionHandler) Transition(w http.ResponseWriter, r *http.Request, sessionID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Transition", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode transition", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.Transition(r.Context(), sessionID, application.Phase(strings.TrimSpace(req.Phase)))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

type sessionRequest struct {
	Name            string `json:"name"`
	NominationStart string `json:"nomination_start"`
	NominationEnd   string `json:"nomination_end"`
	VotingStart     string `json:"voting_start"`
	VotingEnd       string `json:"voting_end"`
}

func (r sessionRequest) toInput() (application.SessionInput, error) {
	input := application.SessionInput{Name: r.Name}
	fields := []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"nomination_start", r.NominationStart, &input.NominationStart},
		{"nomination_end", r.NominationEnd, &input.NominationEnd},
		{"voting_start", r.VotingStart, &input.VotingStart},
		{"voting_end", r.VotingEnd, &input.VotingEnd},
	}
	vErr := &application.ValidationError{}
	for _, f := range fields {
		value := strings.TrimSpace(f.value)
		if value == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			if vErr.FieldErrors == nil {
				vErr.FieldErrors = make(map[string]string)
			}
			vErr.FieldErrors[f.name] = "must be an RFC 3339 timestamp"
			continue
		}
		*f.dst = &parsed
	}
	if vErr.HasErrors() {
		return application.SessionInput{}, vErr
	}
	return input, nil
}

type transitionRequest struct {
	Phase string `json:"phase"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Phase           string  `json:"phase"`
	NominationOpen  bool    `json:"nomination_open"`
	VotingOpen      bool    `json:"voting_open"`
	NominationStart *string `json:"nomination_start,omitempty"`
	NominationEnd   *string `json:"nomination_end,omitempty"`
	VotingStart     *string `json:"voting_start,omitempty"`
	VotingEnd       *string `json:"voting_end,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toSessionDTO(s application.Session) sessionDTO {
	return sessionDTO{
		ID:              s.ID,
		Name:            s.Name,
		Phase:           string(s.Phase),
		NominationOpen:  s.NominationOpen,
		VotingOpen:      s.VotingOpen,
		NominationStart: formatOptionalTimestamp(s.NominationStart),
		NominationEnd:   formatOptionalTimestamp(s.NominationEnd),
		VotingStart:     formatOptionalTimestamp(s.VotingStart),
		VotingEnd:       formatOptionalTimestamp(s.VotingEnd),
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
