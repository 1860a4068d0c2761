package database

import (
	"context"
	"errors"

	"menedzer-sesji/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUsernameTaken = errors.New("username is already taken")

type CreateUserParams struct {
	Username     string
	PasswordHash string
	DisplayName  *string
	Capabilities []string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash, display_name, capabilities)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, password_hash, display_name, capabilities, created_at
	`
	if arg.Capabilities == nil {
		arg.Capabilities = []string{}
	}

	row := q.db.QueryRow(ctx, query, arg.Username, arg.PasswordHash, arg.DisplayName, arg.Capabilities)

	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Capabilities,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, capabilities, created_at
		FROM users
		WHERE username = $1
	`
	var user models.User

	err := q.db.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Capabilities,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, capabilities, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Capabilities,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user; the login_sessions FK cascades, so the user's
// sessions go with it.
func (q *Queries) DeleteUser(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM users WHERE id = $1`
	res, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
