package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

const applicationColumns = `id, tenant_id, carrier_name, carrier_email, user_id, status,
	current_stage, workflow, created_at, updated_at, completed_at`

// ApplicationStore implements store.ApplicationStore using PostgreSQL. The workflow
// is stored as a JSONB array.
type ApplicationStore struct {
	pool *pgxpool.Pool
}

var _ store.ApplicationStore = (*ApplicationStore)(nil)

func NewApplicationStore(pool *pgxpool.Pool) *ApplicationStore {
	return &ApplicationStore{pool: pool}
}

func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		app.ApplicationID,
		app.TenantID,
		app.CarrierName,
		app.CarrierEmail,
		app.UserID,
		string(app.Status),
		string(app.CurrentStage),
		app.Workflow,
		app.CreatedAt,
		app.UpdatedAt,
		app.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", mapPostgresError(err))
	}
	return nil
}

func (s *ApplicationStore) Get(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, applicationID)
	return scanApplication(row)
}

func (s *ApplicationStore) Update(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, `
		UPDATE applications SET
			carrier_name = $2,
			carrier_email = $3,
			user_id = $4,
			status = $5,
			current_stage = $6,
			workflow = $7,
			updated_at = $8,
			completed_at = $9
		WHERE id = $1
	`,
		app.ApplicationID,
		app.CarrierName,
		app.CarrierEmail,
		app.UserID,
		string(app.Status),
		string(app.CurrentStage),
		app.Workflow,
		app.UpdatedAt,
		app.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrApplicationNotFound
	}
	return nil
}

func (s *ApplicationStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Application, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var (
		app          models.Application
		status       string
		currentStage string
	)
	err := row.Scan(
		&app.ApplicationID,
		&app.TenantID,
		&app.CarrierName,
		&app.CarrierEmail,
		&app.UserID,
		&status,
		&currentStage,
		&app.Workflow,
		&app.CreatedAt,
		&app.UpdatedAt,
		&app.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	app.Status = models.ApplicationStatus(status)
	app.CurrentStage = models.FormType(currentStage)
	return &app, nil
}
