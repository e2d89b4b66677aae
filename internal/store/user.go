package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogger/internal/models"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user with an already-hashed password. A taken
// username surfaces as ErrConflict.
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return nil, fmt.Errorf("%w: username", ErrValidation)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(username,password_hash,created_at) VALUES(?,?,?)`,
		username, passwordHash, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("%w: username %q taken", ErrConflict, username)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.ByID(ctx, id)
}

func (s *UserStore) ByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id,username,password_hash,created_at FROM users WHERE id = ?`, id))
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id,username,password_hash,created_at FROM users WHERE username = ?`, username))
}

func (s *UserStore) scanOne(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
