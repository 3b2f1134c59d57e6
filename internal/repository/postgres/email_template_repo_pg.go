package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

const emailTemplateColumns = `id, name, description, subject, content, type, is_active, is_default, created_at, updated_at`

type EmailTemplateRepository struct {
	db *sqlx.DB
}

func NewEmailTemplateRepo(db *sqlx.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

func (r *EmailTemplateRepository) Create(ctx context.Context, input ports.EmailTemplateInput) (*domain.EmailTemplate, error) {
	if input.IsDefault {
		return r.createDefault(ctx, input)
	}

	const query = `
        INSERT INTO email_template (name, description, subject, content, type, is_active, is_default)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE)
        RETURNING ` + emailTemplateColumns

	row := r.db.QueryRowxContext(ctx, query,
		input.Name, input.Description, input.Subject, input.Content, input.Type, input.IsActive)
	var tpl domain.EmailTemplate
	if err := row.StructScan(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// createDefault clears existing default flags and inserts the new template as
// default inside one transaction, so there is never more than one default.
func (r *EmailTemplateRepository) createDefault(ctx context.Context, input ports.EmailTemplateInput) (*domain.EmailTemplate, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE email_template SET is_default = FALSE, updated_at = NOW() WHERE is_default = TRUE`); err != nil {
		return nil, err
	}

	const query = `
        INSERT INTO email_template (name, description, subject, content, type, is_active, is_default)
        VALUES ($1, $2, $3, $4, $5, $6, TRUE)
        RETURNING ` + emailTemplateColumns

	row := tx.QueryRowxContext(ctx, query,
		input.Name, input.Description, input.Subject, input.Content, input.Type, input.IsActive)
	var tpl domain.EmailTemplate
	if err := row.StructScan(&tpl); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *EmailTemplateRepository) Update(ctx context.Context, id uuid.UUID, patch ports.EmailTemplateUpdate) (*domain.EmailTemplate, error) {
	const query = `
        UPDATE email_template
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            subject = COALESCE($4, subject),
            content = COALESCE($5, content),
            type = COALESCE($6, type),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + emailTemplateColumns

	row := r.db.QueryRowxContext(ctx, query, id,
		patch.Name, patch.Description, patch.Subject, patch.Content, patch.Type)
	var tpl domain.EmailTemplate
	if err := row.StructScan(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *EmailTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	const query = `SELECT ` + emailTemplateColumns + ` FROM email_template WHERE id = $1`

	var tpl domain.EmailTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *EmailTemplateRepository) FindDefault(ctx context.Context) (*domain.EmailTemplate, error) {
	const query = `SELECT ` + emailTemplateColumns + ` FROM email_template WHERE is_default = TRUE AND is_active = TRUE LIMIT 1`

	var tpl domain.EmailTemplate
	if err := r.db.GetContext(ctx, &tpl, query); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *EmailTemplateRepository) List(ctx context.Context, limit, offset int) ([]domain.EmailTemplate, int64, error) {
	const query = `
        SELECT ` + emailTemplateColumns + `
        FROM email_template
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	templates := []domain.EmailTemplate{}
	if err := r.db.SelectContext(ctx, &templates, query, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM email_template`); err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

// SetDefault runs the clear-then-set pair inside one transaction rather than
// relying on write hooks, so a failure leaves the flags untouched.
func (r *EmailTemplateRepository) SetDefault(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE email_template SET is_default = FALSE, updated_at = NOW() WHERE is_default = TRUE`); err != nil {
		return nil, err
	}

	const query = `
        UPDATE email_template
        SET is_default = TRUE,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + emailTemplateColumns

	var tpl domain.EmailTemplate
	if err := tx.QueryRowxContext(ctx, query, id).StructScan(&tpl); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *EmailTemplateRepository) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	const query = `
        UPDATE email_template
        SET is_active = NOT is_active,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + emailTemplateColumns

	var tpl domain.EmailTemplate
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *EmailTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_template WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
