package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"infraiq/platform/internal/model"
)

const userColumns = `id::text, session_id, email, name, api_key, tier, trial_started_at, trial_ends_at, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.SessionID,
		&u.Email,
		&u.Name,
		&u.APIKey,
		&u.Tier,
		&u.TrialStartedAt,
		&u.TrialEndsAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return model.User{}, mapPgErr(err)
	}
	return u, nil
}

func (s *Store) UpsertUser(ctx context.Context, u model.User) (model.User, error) {
	sessionID := strings.TrimSpace(u.SessionID)
	if sessionID == "" {
		return model.User{}, errors.New("session_id_required")
	}
	tier := u.Tier
	if tier == "" {
		tier = model.TierTrial
	}

	return scanUser(s.pool.QueryRow(ctx, `
		insert into public.users (session_id, email, name, api_key, tier, trial_started_at, trial_ends_at)
		values ($1, $2, $3, nullif($4, ''), $5, $6, $7)
		on conflict (session_id) do update
		set email = excluded.email,
		    name = excluded.name,
		    updated_at = case
		        when users.email is distinct from excluded.email or users.name is distinct from excluded.name then now()
		        else users.updated_at
		    end
		returning `+userColumns,
		sessionID, u.Email, u.Name, u.APIKey, string(tier), u.TrialStartedAt, u.TrialEndsAt,
	))
}

func (s *Store) GetUserBySessionID(ctx context.Context, sessionID string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `select `+userColumns+` from public.users where session_id = $1`, sessionID))
}

func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `select `+userColumns+` from public.users where api_key = $1`, apiKey))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		select `+userColumns+`
		from public.users
		where lower(email) = lower($1)
		order by created_at asc
		limit 1
	`, email))
}

func (s *Store) SetUserTier(ctx context.Context, userID string, tier model.Tier) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		update public.users
		set tier = $2, trial_started_at = null, trial_ends_at = null, updated_at = now()
		where id = $1::uuid
		returning `+userColumns,
		userID, string(tier),
	))
}
