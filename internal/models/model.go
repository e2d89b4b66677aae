package models

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Post struct {
	ID          int64
	Title       string
	Description string
	Body        string // raw markdown source, never rendered HTML
	Image       []byte
	CreatedAt   time.Time
}
