package auth_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogger/internal/auth"
	"blogger/internal/db"
	"blogger/internal/store"
)

func newTestUser(t *testing.T) (*sql.DB, int64) {
	t.Helper()
	dbc, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbc.Close() })
	if err := db.Migrate(dbc); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	u, err := store.NewUserStore(dbc).Create(context.Background(), "tester", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return dbc, u.ID
}

func sessionRequest(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie set")
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestSessionLifecycle(t *testing.T) {
	dbc, uid := newTestUser(t)
	m := auth.NewManager(dbc, time.Hour)

	rec := httptest.NewRecorder()
	if err := m.Create(rec, uid); err != nil {
		t.Fatalf("create session: %v", err)
	}

	r := sessionRequest(t, rec)
	got, ok := m.CurrentUserID(r)
	if !ok || got != uid {
		t.Fatalf("expected user %d, got %d ok=%v", uid, got, ok)
	}

	m.Destroy(httptest.NewRecorder(), r)
	if _, ok := m.CurrentUserID(r); ok {
		t.Fatalf("session survived destroy")
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	dbc, uid := newTestUser(t)
	m := auth.NewManager(dbc, -time.Minute)

	rec := httptest.NewRecorder()
	if err := m.Create(rec, uid); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, ok := m.CurrentUserID(sessionRequest(t, rec)); ok {
		t.Fatalf("expired session accepted")
	}
}

func TestNoCookieNoUser(t *testing.T) {
	dbc, _ := newTestUser(t)
	m := auth.NewManager(dbc, time.Hour)
	if _, ok := m.CurrentUserID(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Fatalf("anonymous request got a user")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !auth.CheckPassword("super-secret", hash) {
		t.Fatalf("correct password rejected")
	}
	if auth.CheckPassword("wrong", hash) {
		t.Fatalf("wrong password accepted")
	}
}
