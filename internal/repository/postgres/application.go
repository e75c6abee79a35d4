package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/repository"
)

// ApplicationRepo persists purchase applications.
type ApplicationRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewApplicationRepo constructs an application repository.
func NewApplicationRepo(db *sqlx.DB) *ApplicationRepo {
	return &ApplicationRepo{db: db, now: time.Now}
}

// Create inserts a new application and fills its id and timestamps.
func (r *ApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	now := r.now()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = domain.StatusNew
	}
	query := `INSERT INTO applications (user_id, status, car_model, phone, comments, bitrix_lead_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		app.UserID, app.Status, app.CarModel, app.Phone, app.Comments, app.BitrixLeadID, now,
	).Scan(&app.ID)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// Update persists mutable application fields.
func (r *ApplicationRepo) Update(ctx context.Context, app *domain.Application) error {
	app.UpdatedAt = r.now()
	query := `UPDATE applications SET status = $2, car_model = $3, phone = $4, comments = $5,
		bitrix_lead_id = $6, updated_at = $7
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		app.ID, app.Status, app.CarModel, app.Phone, app.Comments, app.BitrixLeadID, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrApplicationNotFound
	}
	return nil
}

// GetByID returns an application row or repository.ErrApplicationNotFound.
func (r *ApplicationRepo) GetByID(ctx context.Context, id int64) (*domain.Application, error) {
	var app domain.Application
	query := `SELECT id, user_id, status, COALESCE(car_model, '') AS car_model,
		COALESCE(phone, '') AS phone, COALESCE(comments, '') AS comments,
		bitrix_lead_id, created_at, updated_at
		FROM applications WHERE id = $1`
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}
