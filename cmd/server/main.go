package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"blogger/internal/auth"
	"blogger/internal/db"
	"blogger/internal/handlers"
	"blogger/internal/store"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	dbPath := getenv("BLOG_DB", "./data/blog.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		errorLog.Fatal(err)
	}

	dbc, err := db.Open(dbPath)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer dbc.Close()

	if err := db.Migrate(dbc); err != nil {
		errorLog.Fatal(err)
	}
	infoLog.Printf("database ready: %s", dbPath)

	sessionHours, err := strconv.Atoi(getenv("BLOG_SESSION_HOURS", "24"))
	if err != nil || sessionHours <= 0 {
		sessionHours = 24
	}
	sessions := auth.NewManager(dbc, time.Duration(sessionHours)*time.Hour)

	posts := store.NewPostStore(dbc, store.DefaultPageSize)
	users := store.NewUserStore(dbc)

	h := handlers.New(posts, users, sessions,
		getenv("BLOG_TEMPLATES", "./web/templates"), infoLog, errorLog)

	srv := &http.Server{
		Addr:    ":" + getenv("BLOG_PORT", "8080"),
		Handler: handlers.WithRecover(h.Routes(getenv("BLOG_STATIC", "./web/static")), errorLog),

		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	infoLog.Printf("listening on http://localhost%s", srv.Addr)
	errorLog.Fatal(srv.ListenAndServe())
}
