package store_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"blogger/internal/db"
	"blogger/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbc, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbc.Close() })
	if err := db.Migrate(dbc); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbc
}

func newPostStore(t *testing.T) *store.PostStore {
	t.Helper()
	return store.NewPostStore(newTestDB(t), store.DefaultPageSize)
}

func TestCreateAndGet(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()

	image := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	created, err := s.Create(ctx, "First", "A first post", "## Hello", image)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "First" || got.Description != "A first post" || got.Body != "## Hello" {
		t.Fatalf("field mismatch: %+v", got)
	}
	if !bytes.Equal(got.Image, image) {
		t.Fatalf("image bytes changed in storage")
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("timestamp not assigned")
	}

	second, err := s.Create(ctx, "Second", "Another", "body", image)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID == created.ID {
		t.Fatalf("id %d reused", second.ID)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()
	image := []byte{1}

	cases := []struct {
		name                     string
		title, description, body string
		image                    []byte
	}{
		{"empty title", "", "d", "b", image},
		{"empty description", "t", "", "b", image},
		{"empty body", "t", "d", "", image},
		{"blank body", "t", "d", "   ", image},
		{"no image", "t", "d", "b", nil},
	}
	for _, c := range cases {
		if _, err := s.Create(ctx, c.title, c.description, c.body, c.image); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", c.name, err)
		}
	}

	pg, err := s.ListPage(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pg.Items) != 0 {
		t.Fatalf("rejected creates left %d rows behind", len(pg.Items))
	}
}

func TestGetNotFound(t *testing.T) {
	s := newPostStore(t)
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetImage(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for image, got %v", err)
	}
}

func TestListPageEmptyStore(t *testing.T) {
	s := newPostStore(t)
	pg, err := s.ListPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pg.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(pg.Items))
	}
	if pg.TotalPages != 1 {
		t.Fatalf("expected total pages 1, got %d", pg.TotalPages)
	}
	if pg.HasNext || pg.HasPrev {
		t.Fatalf("empty store should have no neighbours: %+v", pg)
	}
}

func TestListPageTwelvePosts(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 1; i <= 12; i++ {
		p, err := s.Create(ctx, fmt.Sprintf("post-%02d", i), "d", "b", []byte{byte(i)})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, p.ID)
	}

	page1, err := s.ListPage(ctx, 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	page2, err := s.ListPage(ctx, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	if len(page1.Items) != 10 || len(page2.Items) != 2 {
		t.Fatalf("expected 10+2 items, got %d+%d", len(page1.Items), len(page2.Items))
	}
	if page1.TotalPages != 2 || page2.TotalPages != 2 {
		t.Fatalf("expected 2 total pages, got %d and %d", page1.TotalPages, page2.TotalPages)
	}
	if !page1.HasNext || page1.HasPrev {
		t.Fatalf("page 1 neighbours wrong: %+v", page1)
	}
	if page2.HasNext || !page2.HasPrev {
		t.Fatalf("page 2 neighbours wrong: %+v", page2)
	}

	// concatenated pages reproduce the whole store, newest first,
	// with no overlap
	var all []int64
	seen := map[int64]bool{}
	for _, p := range append(page1.Items, page2.Items...) {
		if seen[p.ID] {
			t.Fatalf("post %d appears on both pages", p.ID)
		}
		seen[p.ID] = true
		all = append(all, p.ID)
	}
	for i, id := range all {
		want := ids[len(ids)-1-i]
		if id != want {
			t.Fatalf("position %d: got id %d, want %d", i, id, want)
		}
	}

	// the two oldest posts land on page 2
	if page2.Items[0].Title != "post-02" || page2.Items[1].Title != "post-01" {
		t.Fatalf("page 2 items wrong: %q, %q", page2.Items[0].Title, page2.Items[1].Title)
	}
}

func TestListPageBeyondEnd(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, "only", "d", "b", []byte{1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	pg, err := s.ListPage(ctx, 99)
	if err != nil {
		t.Fatalf("expected empty page, got error %v", err)
	}
	if len(pg.Items) != 0 {
		t.Fatalf("expected no items past the end, got %d", len(pg.Items))
	}
	if pg.HasNext {
		t.Fatalf("page past the end cannot have a next page")
	}
}

func TestListPageNormalizesPageNumber(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, "only", "d", "b", []byte{1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, page := range []int{0, -3} {
		pg, err := s.ListPage(ctx, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if pg.Number != 1 || len(pg.Items) != 1 {
			t.Fatalf("page %d not normalized to first page: %+v", page, pg)
		}
	}
}

func TestUpdate(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()

	image := []byte{9, 8, 7}
	created, err := s.Create(ctx, "old title", "old desc", "old body", image)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := s.Update(ctx, created.ID, "new title", "new desc", "new body")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "new title" || updated.Description != "new desc" || updated.Body != "new body" {
		t.Fatalf("fields not updated: %+v", updated)
	}
	if updated.ID != created.ID {
		t.Fatalf("id changed on update: %d -> %d", created.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("timestamp changed on update: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if !bytes.Equal(updated.Image, image) {
		t.Fatalf("image changed on update")
	}
}

func TestUpdateErrors(t *testing.T) {
	s := newPostStore(t)
	ctx := context.Background()

	if _, err := s.Update(ctx, 42, "t", "d", "b"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := s.Create(ctx, "t", "d", "b", []byte{1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(ctx, created.ID, "", "d", "b"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "t" {
		t.Fatalf("rejected update mutated the row: %+v", got)
	}
}

func TestSmallPageSize(t *testing.T) {
	s := store.NewPostStore(newTestDB(t), 2)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := s.Create(ctx, fmt.Sprintf("p%d", i), "d", "b", []byte{1}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	pg, err := s.ListPage(ctx, 3)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if pg.TotalPages != 3 || len(pg.Items) != 1 {
		t.Fatalf("ceil division wrong: total=%d items=%d", pg.TotalPages, len(pg.Items))
	}
}
