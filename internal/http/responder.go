package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/election-manager/internal/application"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingID      = errors.New("resource id is required")
	errMissingAdmin   = errors.New("admin key is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

type serviceErrorMapping struct {
	target  error
	status  int
	code    string
	message string // empty means err.Error()
}

var serviceErrors = []serviceErrorMapping{
	{application.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN", "you are not allowed to perform this operation"},
	{application.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "the requested resource was not found"},
	{application.ErrDuplicateSubmission, http.StatusConflict, "DUPLICATE_SUBMISSION", "this submission was already recorded"},
	{application.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "a resource with the same identity already exists"},
	{application.ErrPhaseViolation, http.StatusConflict, "PHASE_VIOLATION", "this is closed in the current election phase"},
	{application.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", ""},
	{application.ErrActiveElectionConflict, http.StatusConflict, "ACTIVE_ELECTION_CONFLICT", "another session is accepting nominations or votes"},
	{application.ErrInvalidBallotToken, http.StatusBadRequest, "INVALID_BALLOT_TOKEN", "the ballot has expired or is invalid, start again"},
}

// handleServiceError maps application errors to status codes. Raw store
// errors fall through to 500 without their text.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	for _, m := range serviceErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if message == "" {
			message = err.Error()
		}
		r.writeJSON(ctx, w, m.status, errorResponse{ErrorCode: m.code, Message: message})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the submitted data is invalid",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: http.StatusText(http.StatusInternalServerError)})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// decodeJSON rejects unknown fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return errBadRequestBody
	}
	return nil
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Ballot    *ballotDTO        `json:"ballot,omitempty"`
}
