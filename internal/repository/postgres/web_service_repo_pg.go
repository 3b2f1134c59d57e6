package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

const webServiceColumns = `id, protocol, url, token, route, service_name, moodle_user, moodle_password, is_active, created_at, updated_at`

type WebServiceRepository struct {
	db *sqlx.DB
}

func NewWebServiceRepo(db *sqlx.DB) *WebServiceRepository {
	return &WebServiceRepository{db: db}
}

func (r *WebServiceRepository) Create(ctx context.Context, input ports.WebServiceInput) (*domain.WebService, error) {
	const query = `
        INSERT INTO web_service (protocol, url, token, route, service_name, moodle_user, moodle_password, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + webServiceColumns

	row := r.db.QueryRowxContext(ctx, query,
		input.Protocol, input.URL, input.Token, input.Route, input.ServiceName,
		input.MoodleUser, input.MoodlePassword, input.IsActive)
	var ws domain.WebService
	if err := row.StructScan(&ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *WebServiceRepository) Update(ctx context.Context, id uuid.UUID, patch ports.WebServiceUpdate) (*domain.WebService, error) {
	const query = `
        UPDATE web_service
        SET protocol = COALESCE($2, protocol),
            url = COALESCE($3, url),
            token = COALESCE($4, token),
            route = COALESCE($5, route),
            service_name = COALESCE($6, service_name),
            moodle_user = COALESCE($7, moodle_user),
            moodle_password = COALESCE($8, moodle_password),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + webServiceColumns

	row := r.db.QueryRowxContext(ctx, query, id,
		patch.Protocol, patch.URL, patch.Token, patch.Route, patch.ServiceName,
		patch.MoodleUser, patch.MoodlePassword)
	var ws domain.WebService
	if err := row.StructScan(&ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *WebServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.WebService, error) {
	const query = `SELECT ` + webServiceColumns + ` FROM web_service WHERE id = $1`

	var ws domain.WebService
	if err := r.db.GetContext(ctx, &ws, query, id); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *WebServiceRepository) FindActiveByURL(ctx context.Context, url string) (*domain.WebService, error) {
	const query = `SELECT ` + webServiceColumns + ` FROM web_service WHERE url = $1 AND is_active = TRUE`

	var ws domain.WebService
	if err := r.db.GetContext(ctx, &ws, query, url); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *WebServiceRepository) List(ctx context.Context, limit, offset int) ([]domain.WebService, int64, error) {
	const query = `
        SELECT ` + webServiceColumns + `
        FROM web_service
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	services := []domain.WebService{}
	if err := r.db.SelectContext(ctx, &services, query, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM web_service`); err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

func (r *WebServiceRepository) ListActive(ctx context.Context) ([]domain.WebService, error) {
	const query = `
        SELECT ` + webServiceColumns + `
        FROM web_service
        WHERE is_active = TRUE
        ORDER BY service_name ASC
    `
	services := []domain.WebService{}
	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, err
	}
	return services, nil
}

func (r *WebServiceRepository) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.WebService, error) {
	const query = `
        UPDATE web_service
        SET is_active = NOT is_active,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + webServiceColumns

	var ws domain.WebService
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *WebServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM web_service WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
