package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

const scanColumns = `id::text, user_id::text, coalesce(project_id::text, ''), tool, provider, region, status, summary, findings, created_at, updated_at`

func scanScan(row pgx.Row) (model.Scan, error) {
	var (
		sc           model.Scan
		summaryJSON  []byte
		findingsJSON []byte
	)
	err := row.Scan(
		&sc.ID,
		&sc.UserID,
		&sc.ProjectID,
		&sc.Tool,
		&sc.Provider,
		&sc.Region,
		&sc.Status,
		&summaryJSON,
		&findingsJSON,
		&sc.CreatedAt,
		&sc.UpdatedAt,
	)
	if err != nil {
		return model.Scan{}, mapPgErr(err)
	}
	if err := json.Unmarshal(summaryJSON, &sc.Summary); err != nil {
		return model.Scan{}, fmt.Errorf("decode scan summary: %w", err)
	}
	if err := json.Unmarshal(findingsJSON, &sc.Findings); err != nil {
		return model.Scan{}, fmt.Errorf("decode scan findings: %w", err)
	}
	if sc.Findings == nil {
		sc.Findings = []model.Finding{}
	}
	return sc, nil
}

func (s *Store) CreateScan(ctx context.Context, sc model.Scan) (model.Scan, error) {
	summaryJSON, err := json.Marshal(sc.Summary)
	if err != nil {
		return model.Scan{}, err
	}
	findings := sc.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return model.Scan{}, err
	}

	if sc.ProjectID != "" {
		if _, err := s.GetProject(ctx, sc.UserID, sc.ProjectID); err != nil {
			return model.Scan{}, err
		}
	}

	return scanScan(s.pool.QueryRow(ctx, `
		insert into public.scans (user_id, project_id, tool, provider, region, status, summary, findings, created_at)
		values ($1::uuid, nullif($2, '')::uuid, $3, $4, $5, $6, $7::jsonb, $8::jsonb, coalesce($9, now()))
		returning `+scanColumns,
		sc.UserID, sc.ProjectID, string(sc.Tool), sc.Provider, sc.Region, string(sc.Status),
		string(summaryJSON), string(findingsJSON), createdAtArg(sc),
	))
}

func createdAtArg(sc model.Scan) any {
	if sc.CreatedAt.IsZero() {
		return nil
	}
	return sc.CreatedAt
}

func (s *Store) ListScans(ctx context.Context, f store.ScanFilter) ([]model.Scan, int, error) {
	args := []any{f.UserID}
	where := []string{"user_id = $1::uuid"}

	if f.Tool != "" {
		args = append(args, string(f.Tool))
		where = append(where, fmt.Sprintf("tool = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	cond := " where " + strings.Join(where, " and ")

	var total int
	if err := s.pool.QueryRow(ctx, `select count(*) from public.scans`+cond, args...).Scan(&total); err != nil {
		return nil, 0, mapPgErr(err)
	}

	query := `select ` + scanColumns + ` from public.scans` + cond + ` order by created_at desc, id desc`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" offset $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapPgErr(err)
	}
	defer rows.Close()

	out := make([]model.Scan, 0)
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapPgErr(err)
	}
	return out, total, nil
}

func (s *Store) GetScan(ctx context.Context, userID, id string) (model.Scan, error) {
	return scanScan(s.pool.QueryRow(ctx, `
		select `+scanColumns+`
		from public.scans
		where id = $1::uuid and user_id = $2::uuid
	`, id, userID))
}

func (s *Store) DeleteScan(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from public.scans where id = $1::uuid and user_id = $2::uuid`, id, userID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
