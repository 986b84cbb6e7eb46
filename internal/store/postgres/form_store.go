package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

const templateColumns = `id, tenant_id, name, description, form_type, fields, settings,
	version, is_active, created_by, created_at, updated_at`

// FormTemplateStore implements store.FormTemplateStore using PostgreSQL.
type FormTemplateStore struct {
	pool *pgxpool.Pool
}

var _ store.FormTemplateStore = (*FormTemplateStore)(nil)

func NewFormTemplateStore(pool *pgxpool.Pool) *FormTemplateStore {
	return &FormTemplateStore{pool: pool}
}

func (s *FormTemplateStore) Create(ctx context.Context, t *models.FormTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO form_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		t.TemplateID,
		t.TenantID,
		t.Name,
		t.Description,
		string(t.FormType),
		t.Fields,
		t.Settings,
		t.Version,
		t.IsActive,
		t.CreatedBy,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create form template: %w", mapPostgresError(err))
	}
	return nil
}

func (s *FormTemplateStore) Get(ctx context.Context, templateID uuid.UUID) (*models.FormTemplate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM form_templates WHERE id = $1`, templateID)
	return scanTemplate(row)
}

func (s *FormTemplateStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.FormTemplate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+templateColumns+` FROM form_templates
		WHERE tenant_id = $1
		ORDER BY name, version DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list form templates: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var templates []*models.FormTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating form templates: %w", err)
	}

	return templates, nil
}

func scanTemplate(row pgx.Row) (*models.FormTemplate, error) {
	var (
		t        models.FormTemplate
		formType string
	)
	err := row.Scan(
		&t.TemplateID,
		&t.TenantID,
		&t.Name,
		&t.Description,
		&formType,
		&t.Fields,
		&t.Settings,
		&t.Version,
		&t.IsActive,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to scan form template: %w", err)
	}
	t.FormType = models.FormType(formType)
	return &t, nil
}
