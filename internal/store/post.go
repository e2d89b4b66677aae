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

var (
	ErrNotFound   = errors.New("store: not found")
	ErrValidation = errors.New("store: missing required field")
	ErrConflict   = errors.New("store: conflict")
)

// DefaultPageSize is how many posts a list page holds.
const DefaultPageSize = 10

// Page is one slice of the post list, newest first.
type Page struct {
	Items      []*models.Post
	Number     int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// PostStore owns the posts table. All other components only read
// through it.
type PostStore struct {
	db       *sql.DB
	pageSize int
}

func NewPostStore(db *sql.DB, pageSize int) *PostStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PostStore{db: db, pageSize: pageSize}
}

// Create inserts a post and returns it with its assigned id and
// timestamp. Every field is required, the image is stored as-is.
func (s *PostStore) Create(ctx context.Context, title, description, body string, image []byte) (*models.Post, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	body = strings.TrimSpace(body)
	if err := requireFields(title, description, body); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts(title,description,body,image,created_at) VALUES(?,?,?,?,?)`,
		title, description, body, image, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *PostStore) Get(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,body,image,created_at FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Description, &p.Body, &p.Image, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetImage returns only the stored image bytes, so the image route
// never hauls the text columns.
func (s *PostStore) GetImage(ctx context.Context, id int64) ([]byte, error) {
	var image []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT image FROM posts WHERE id = ?`, id).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return image, nil
}

// Update rewrites title, description and body. The id, timestamp and
// image are never touched.
func (s *PostStore) Update(ctx context.Context, id int64, title, description, body string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	body = strings.TrimSpace(body)
	if err := requireFields(title, description, body); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, description = ?, body = ? WHERE id = ?`,
		title, description, body, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// ListPage returns the requested page ordered newest first. A page
// number below 1 is treated as 1; a page past the end yields an empty
// page rather than an error. The image column is not selected.
func (s *PostStore) ListPage(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return nil, err
	}

	totalPages := (count + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,description,body,created_at FROM posts
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Number:     page,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

func requireFields(title, description, body string) error {
	switch {
	case title == "":
		return fmt.Errorf("%w: title", ErrValidation)
	case description == "":
		return fmt.Errorf("%w: description", ErrValidation)
	case body == "":
		return fmt.Errorf("%w: body", ErrValidation)
	}
	return nil
}
