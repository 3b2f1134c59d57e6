package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

const auditingColumns = `id, moodle_user_id, username, email, webservice_id, token_user, token_used, email_sent, token_expires_at, status, description, created_at, updated_at`

type AuditingRepository struct {
	db *sqlx.DB
}

func NewAuditingRepo(db *sqlx.DB) *AuditingRepository {
	return &AuditingRepository{db: db}
}

func (r *AuditingRepository) Create(ctx context.Context, input ports.AuditingCreate) (*domain.Auditing, error) {
	const query = `
        INSERT INTO auditing (moodle_user_id, username, email, webservice_id, token_user, token_expires_at, status, description)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + auditingColumns

	row := r.db.QueryRowxContext(ctx, query,
		input.MoodleUserID, input.Username, input.Email, input.WebServiceID,
		input.Token, input.TokenExpiresAt, input.Status, input.Description)
	var record domain.Auditing
	if err := row.StructScan(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *AuditingRepository) Update(ctx context.Context, id uuid.UUID, patch domain.AuditingPatch) (*domain.Auditing, error) {
	const query = `
        UPDATE auditing
        SET status = COALESCE($2, status),
            description = COALESCE($3, description),
            email_sent = COALESCE($4, email_sent),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + auditingColumns

	row := r.db.QueryRowxContext(ctx, query, id, patch.Status, patch.Description, patch.EmailSent)
	var record domain.Auditing
	if err := row.StructScan(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *AuditingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Auditing, error) {
	const query = `SELECT ` + auditingColumns + ` FROM auditing WHERE id = $1`

	var record domain.Auditing
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *AuditingRepository) FindByToken(ctx context.Context, token string) (*domain.Auditing, error) {
	const query = `SELECT ` + auditingColumns + ` FROM auditing WHERE token_user = $1`

	var record domain.Auditing
	if err := r.db.GetContext(ctx, &record, query, token); err != nil {
		return nil, err
	}
	return &record, nil
}

// ConsumeToken is the only write path for token_used. The guard in the WHERE
// clause makes concurrent consumption of the same token yield exactly one
// winner.
func (r *AuditingRepository) ConsumeToken(ctx context.Context, token, description string) (bool, error) {
	const query = `
        UPDATE auditing
        SET token_used = TRUE,
            status = 'success',
            description = $2,
            updated_at = NOW()
        WHERE token_user = $1 AND token_used = FALSE
    `
	res, err := r.db.ExecContext(ctx, query, token, description)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *AuditingRepository) List(ctx context.Context, limit, offset int) ([]domain.Auditing, int64, error) {
	const query = `
        SELECT ` + auditingColumns + `
        FROM auditing
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	records := []domain.Auditing{}
	if err := r.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM auditing`); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *AuditingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auditing WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
