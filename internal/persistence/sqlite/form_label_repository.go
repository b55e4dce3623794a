package sqlite

import (
	"context"

	"github.com/example/election-manager/internal/persistence"
)

// FormLabelRepository implements persistence.FormLabelRepository using SQLite
type FormLabelRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewFormLabelRepository creates a new SQLite form label repository
func NewFormLabelRepository(pool *ConnectionPool) *FormLabelRepository {
	return &FormLabelRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// ListFormLabels returns the stored label overrides for a form
func (r *FormLabelRepository) ListFormLabels(ctx context.Context, formType string) ([]persistence.FormLabel, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT form_type, field_name, label_text, updated_at
		FROM form_labels
		WHERE form_type = ?
		ORDER BY field_name ASC
	`, formType)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var labels []persistence.FormLabel
	for rows.Next() {
		var label persistence.FormLabel
		var updatedAt string
		if err := rows.Scan(&label.FormType, &label.FieldName, &label.LabelText, &updatedAt); err != nil {
			return nil, err
		}
		if label.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return labels, nil
}

// UpsertFormLabel stores or replaces a label override
func (r *FormLabelRepository) UpsertFormLabel(ctx context.Context, label persistence.FormLabel) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO form_labels (form_type, field_name, label_text, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (form_type, field_name) DO UPDATE SET
			label_text = excluded.label_text,
			updated_at = excluded.updated_at
	`, label.FormType, label.FieldName, label.LabelText, formatTime(label.UpdatedAt))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}
