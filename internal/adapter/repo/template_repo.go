package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imagebot/internal/domain"
)

// TemplateRepositoryPG implements domain.TemplateRepository.
type TemplateRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository backed by PostgreSQL.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepositoryPG {
	return &TemplateRepositoryPG{pool: pool}
}

const templateColumns = `id, name, description, prompt, cost_multiplier, is_active, created_at`

// GetByID fetches a template by its identifier. Inactive templates are not
// returned.
func (r *TemplateRepositoryPG) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1 AND is_active;`
	return scanTemplate(r.pool.QueryRow(ctx, query, id))
}

// ListActive returns all active templates ordered by name.
func (r *TemplateRepositoryPG) ListActive(ctx context.Context) ([]domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE is_active ORDER BY name;`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var tpl domain.Template
	if err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.Prompt,
		&tpl.CostMultiplier,
		&tpl.IsActive,
		&tpl.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}
