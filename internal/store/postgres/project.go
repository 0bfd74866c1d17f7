package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

const projectColumns = `id::text, user_id::text, name, description, created_at, updated_at`

func scanProject(row pgx.Row) (model.Project, error) {
	var p model.Project
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Project{}, mapPgErr(err)
	}
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return model.Project{}, errors.New("name_required")
	}
	return scanProject(s.pool.QueryRow(ctx, `
		insert into public.projects (user_id, name, description)
		values ($1::uuid, $2, $3)
		returning `+projectColumns,
		p.UserID, name, p.Description,
	))
}

func (s *Store) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx, `
		select `+projectColumns+`
		from public.projects
		where user_id = $1::uuid
		order by created_at desc
	`, userID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapPgErr(rows.Err())
}

func (s *Store) GetProject(ctx context.Context, userID, id string) (model.Project, error) {
	return scanProject(s.pool.QueryRow(ctx, `
		select `+projectColumns+`
		from public.projects
		where id = $1::uuid and user_id = $2::uuid
	`, id, userID))
}

func (s *Store) UpdateProject(ctx context.Context, userID, id string, upd store.ProjectUpdate) (model.Project, error) {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return model.Project{}, errors.New("name_required")
		}
		upd.Name = &trimmed
	}
	return scanProject(s.pool.QueryRow(ctx, `
		update public.projects
		set name = coalesce($3, name),
		    description = coalesce($4, description),
		    updated_at = now()
		where id = $1::uuid and user_id = $2::uuid
		returning `+projectColumns,
		id, userID, upd.Name, upd.Description,
	))
}

func (s *Store) DeleteProject(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from public.projects where id = $1::uuid and user_id = $2::uuid`, id, userID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
