package database

import (
	"context"
	"errors"
	"time"

	"menedzer-sesji/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrInvalidOwner = errors.New("login session owner does not exist")
var ErrSessionNotFound = errors.New("login session not found")

type CreateLoginSessionParams struct {
	ID         uuid.UUID
	OwnerID    int64
	Persistent bool
	IPAddress  string
	UserAgent  string
}

func (q *Queries) CreateLoginSession(ctx context.Context, arg CreateLoginSessionParams) (*models.LoginSession, error) {
	query := `
		INSERT INTO login_sessions (id, owner_id, persistent, ip_address, user_agent, created_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, owner_id, persistent, ip_address, user_agent, created_at, last_accessed_at
	`
	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.Persistent,
		arg.IPAddress,
		arg.UserAgent,
		now,
	)

	var session models.LoginSession
	err := row.Scan(
		&session.ID,
		&session.OwnerID,
		&session.Persistent,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastAccessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrInvalidOwner
		}
		return nil, err
	}

	return &session, nil
}

func (q *Queries) GetLoginSessionByID(ctx context.Context, id uuid.UUID) (*models.LoginSession, error) {
	query := `
		SELECT id, owner_id, persistent, ip_address, user_agent, created_at, last_accessed_at
		FROM login_sessions
		WHERE id = $1
	`
	var session models.LoginSession
	err := q.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.OwnerID,
		&session.Persistent,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastAccessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// FindPersistentLoginSession returns the most recently active persistent
// session matching the owner, source IP and user-agent string, or nil.
// Multiple rows can match when the same browser logs in twice; the newest
// activity wins.
func (q *Queries) FindPersistentLoginSession(ctx context.Context, ownerID int64, ipAddress, userAgent string) (*models.LoginSession, error) {
	query := `
		SELECT id, owner_id, persistent, ip_address, user_agent, created_at, last_accessed_at
		FROM login_sessions
		WHERE owner_id = $1 AND ip_address = $2 AND user_agent = $3 AND persistent = TRUE
		ORDER BY last_accessed_at DESC
		LIMIT 1
	`
	var session models.LoginSession
	err := q.db.QueryRow(ctx, query, ownerID, ipAddress, userAgent).Scan(
		&session.ID,
		&session.OwnerID,
		&session.Persistent,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastAccessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ListActiveLoginSessions returns the owner's sessions that are persistent or
// were accessed after the cutoff, most recently active first.
func (q *Queries) ListActiveLoginSessions(ctx context.Context, ownerID int64, activeSince time.Time) ([]models.LoginSession, error) {
	query := `
		SELECT id, owner_id, persistent, ip_address, user_agent, created_at, last_accessed_at
		FROM login_sessions
		WHERE owner_id = $1 AND (persistent = TRUE OR last_accessed_at >= $2)
		ORDER BY last_accessed_at DESC
	`
	rows, err := q.db.Query(ctx, query, ownerID, activeSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.LoginSession
	for rows.Next() {
		var session models.LoginSession
		if err := rows.Scan(
			&session.ID,
			&session.OwnerID,
			&session.Persistent,
			&session.IPAddress,
			&session.UserAgent,
			&session.CreatedAt,
			&session.LastAccessedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if sessions == nil {
		return []models.LoginSession{}, nil
	}

	return sessions, nil
}

func (q *Queries) TouchLoginSession(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE login_sessions SET last_accessed_at = $1 WHERE id = $2`
	res, err := q.db.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) DeleteLoginSessionByID(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM login_sessions WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// DeleteOtherLoginSessionsForOwner removes every session of the owner except
// the given one. Used by "log out everywhere else".
func (q *Queries) DeleteOtherLoginSessionsForOwner(ctx context.Context, ownerID int64, keep uuid.UUID) (int64, error) {
	query := `DELETE FROM login_sessions WHERE owner_id = $1 AND id <> $2`
	res, err := q.db.Exec(ctx, query, ownerID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (q *Queries) DeleteAllLoginSessionsForOwner(ctx context.Context, ownerID int64) error {
	query := `DELETE FROM login_sessions WHERE owner_id = $1`
	_, err := q.db.Exec(ctx, query, ownerID)
	return err
}
