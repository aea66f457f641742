package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventroster/internal/domain"
)

type templateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{
		DB: db,
	}
}

func (r *templateRepository) Create(ctx context.Context, tpl *domain.Template) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO templates (id, community_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query, tpl.ID, tpl.CommunityID, tpl.Name, tpl.Description, tpl.CreatedAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.ErrDuplicateTemplate
		}
		return err
	}
	for i, rs := range tpl.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_roles (template_id, position, role, capacity) VALUES ($1, $2, $3, $4)`,
			tpl.ID, i, rs.Role, rs.Capacity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *templateRepository) GetByName(ctx context.Context, communityID, name string) (*domain.Template, error) {
	query := `
		SELECT id, community_id, name, description, created_at
		FROM templates
		WHERE community_id = $1 AND name = $2
	`
	tpl := &domain.Template{}
	err := r.DB.QueryRowContext(ctx, query, communityID, name).
		Scan(&tpl.ID, &tpl.CommunityID, &tpl.Name, &tpl.Description, &tpl.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}

	tpl.Roles, err = r.rolesFor(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (r *templateRepository) ListByCommunity(ctx context.Context, communityID string) ([]*domain.Template, error) {
	query := `
		SELECT id, community_id, name, description, created_at
		FROM templates
		WHERE community_id = $1
		ORDER BY seq
	`
	rows, err := r.DB.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tpls := make([]*domain.Template, 0)
	for rows.Next() {
		tpl := &domain.Template{}
		if err := rows.Scan(&tpl.ID, &tpl.CommunityID, &tpl.Name, &tpl.Description, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		tpls = append(tpls, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, tpl := range tpls {
		if tpl.Roles, err = r.rolesFor(ctx, tpl.ID); err != nil {
			return nil, err
		}
	}
	return tpls, nil
}

func (r *templateRepository) rolesFor(ctx context.Context, templateID string) ([]domain.RoleSlot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT role, capacity FROM template_roles WHERE template_id = $1 ORDER BY position`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.RoleSlot, 0)
	for rows.Next() {
		var rs domain.RoleSlot
		if err := rows.Scan(&rs.Role, &rs.Capacity); err != nil {
			return nil, err
		}
		roles = append(roles, rs)
	}
	return roles, rows.Err()
}
