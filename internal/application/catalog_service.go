package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// PositionRepository captures the persistence operations for positions.
type PositionRepository interface {
	CreatePosition(ctx context.Context, position Position) error
	GetPosition(ctx context.Context, id string) (Position, error)
	ListPositions(ctx context.Context) ([]Position, error)
	DeletePosition(ctx context.Context, id string) error
}

// FormLabelRepository stores label overrides.
type FormLabelRepository interface {
	ListFormLabels(ctx context.Context, formType string) ([]FormLabel, error)
	UpsertFormLabel(ctx context.Context, label FormLabel) error
}

// Intake form types.
const (
	FormNominee = "nominee"
	FormVoter   = "voter"
)

var defaultLabels = map[string]map[string]string{
	FormNominee: {
		"full_name":          "Full Name",
		"email":              "Email Address",
		"phone_number":       "Phone Number",
		"gender":             "Select Gender",
		"designation":        "Present Designation / Retired Designation",
		"workplace_address":  "Present Organization & Department / Last Organization & Department",
		"last_training_date": "Last KOICA Training Date",
		"photo":              "Candidate Photo (Please Upload Passport Size)",
		"interested":         "Are You Interested In Becoming A Candidate For The KBAA Executive Committee Election 2025?",
		"desired_position":   "Desired Position In The KBAA Executive Committee",
	},
	FormVoter: {
		"full_name":          "Full Name",
		"email":              "Email Address",
		"gender":             "Select Gender",
		"designation":        "Present Designation / Retired Designation",
		"workplace_address":  "Present Organization & Department / Last Organization & Department",
		"last_training_date": "Last KOICA Training Date",
	},
}

// CatalogServiceConfig wires the catalog service.
type CatalogServiceConfig struct {
	Positions   PositionRepository
	Labels      FormLabelRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// CatalogService manages the positions on the ballot and intake form labels.
type CatalogService struct {
	positions   PositionRepository
	labels      FormLabelRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service.
func NewCatalogService(cfg CatalogServiceConfig) *CatalogService {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CatalogService{
		positions:   cfg.Positions,
		labels:      cfg.Labels,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreatePosition adds a position. Names and orders are unique.
func (s *CatalogService) CreatePosition(ctx context.Context, input PositionInput) (position Position, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreatePosition", "name", input.Name, "order", input.Order)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create position", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("position_id", position.ID).InfoContext(ctx, "position created")
	}()

	vErr := &ValidationError{}
	requireText(vErr, "name", input.Name, "name is required")
	limitText(vErr, "name", input.Name, maxNameLength)
	if input.Order < 0 {
		vErr.add("order", "order must not be negative")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	position = Position{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Order:     input.Order,
		CreatedAt: s.now(),
	}
	if err = s.positions.CreatePosition(ctx, position); err != nil {
		err = mapRepoError(err, ErrAlreadyExists)
		position = Position{}
	}
	return
}

// GetPosition returns a position by id.
func (s *CatalogService) GetPosition(ctx context.Context, id string) (Position, error) {
	position, err := s.positions.GetPosition(ctx, id)
	if err != nil {
		return Position{}, mapRepoError(err, nil)
	}
	return position, nil
}

// ListPositions returns all positions in ballot order.
func (s *CatalogService) ListPositions(ctx context.Context) ([]Position, error) {
	positions, err := s.positions.ListPositions(ctx)
	if err != nil {
		return nil, mapRepoError(err, nil)
	}
	return positions, nil
}

// DeletePosition removes a position and the votes cast for it.
func (s *CatalogService) DeletePosition(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeletePosition", "position_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete position", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "position deleted")
	}()

	err = mapRepoError(s.positions.DeletePosition(ctx, id), nil)
	return
}

// Labels returns the labels of formType with stored overrides applied.
func (s *CatalogService) Labels(ctx context.Context, formType string) (map[string]string, error) {
	defaults, ok := defaultLabels[formType]
	if !ok {
		return nil, fieldError("form_type", "form type must be nominee or voter")
	}

	labels := make(map[string]string, len(defaults))
	for field, text := range defaults {
		labels[field] = text
	}

	overrides, err := s.labels.ListFormLabels(ctx, formType)
	if err != nil {
		return nil, mapRepoError(err, nil)
	}
	for _, o := range overrides {
		labels[o.FieldName] = o.LabelText
	}
	return labels, nil
}

// SetLabel overrides the label of a known form field.
func (s *CatalogService) SetLabel(ctx context.Context, formType, field, text string) (label FormLabel, err error) {
	logger := s.loggerWith(ctx, "SetLabel", "form_type", formType, "field_name", field)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to set label", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	vErr := &ValidationError{}
	defaults, ok := defaultLabels[formType]
	switch {
	case !ok:
		vErr.add("form_type", "form type must be nominee or voter")
	case defaults[field] == "":
		vErr.add("field_name", "unknown field")
	}
	requireText(vErr, "label_text", text, "label text is required")
	limitText(vErr, "label_text", text, maxLabelLength)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	label = FormLabel{
		FormType:  formType,
		FieldName: field,
		LabelText: strings.TrimSpace(text),
		UpdatedAt: s.now(),
	}
	if err = s.labels.UpsertFormLabel(ctx, label); err != nil {
		err = mapRepoError(err, nil)
		label = FormLabel{}
	}
	return
}
