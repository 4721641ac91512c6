package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-thanks-backend/internal/domain"
)

func newHostDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t, &domain.User{}, &domain.Block{}, &domain.Page{}, &domain.Revision{}, &domain.LogEntry{})
	ptr := func(v int64) *int64 { return &v }
	now := time.Now().UTC()

	mustCreate := func(v any) {
		t.Helper()
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed %T: %v", v, err)
		}
	}
	mustCreate(&domain.User{ID: 1, ActorID: 100, Name: "Alice", Registered: true})
	mustCreate(&domain.Page{ID: 10, Title: "Main_Page"})
	mustCreate(&domain.Revision{ID: 2, PageID: 10, AuthorActorID: ptr(100), CreatedAt: now.Add(-time.Hour)})
	mustCreate(&domain.Revision{ID: 3, PageID: 10, AuthorActorID: ptr(100), CreatedAt: now})
	mustCreate(&domain.Revision{ID: 4, PageID: 10, ParentID: ptr(3), AuthorActorID: ptr(100), CreatedAt: now})
	mustCreate(&domain.LogEntry{ID: 50, Type: "move", Subtype: "move", PageTitle: "Old", PerformerActorID: 100})
	mustCreate(&domain.LogEntry{ID: 51, Type: "delete", Subtype: "restore", PageTitle: "X", PerformerActorID: 100})
	mustCreate(&domain.LogEntry{ID: 52, Type: "newusers", PageTitle: "User:Y", PerformerActorID: 100})
	mustCreate(&domain.LogEntry{ID: 53, Type: "move", PageTitle: "Z", PerformerActorID: 100, DeletedUser: true})
	return db
}

func TestGetUserByActor(t *testing.T) {
	db := newHostDB(t)
	u, err := GetUserByActor(context.Background(), db, 100)
	if err != nil || u.Name != "Alice" {
		t.Fatalf("GetUserByActor = %+v, %v", u, err)
	}
	if _, err := GetUserByActor(context.Background(), db, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRevision_PreloadsPage(t *testing.T) {
	db := newHostDB(t)
	r, err := GetRevision(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("GetRevision: %v", err)
	}
	if r.Page.Title != "Main_Page" {
		t.Fatalf("expected page preload, got %+v", r.Page)
	}
	if _, err := GetRevision(context.Background(), db, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHasPreviousRevision(t *testing.T) {
	db := newHostDB(t)
	ctx := context.Background()
	for id, want := range map[int64]bool{2: false, 3: true, 4: true} {
		r, err := GetRevision(ctx, db, id)
		if err != nil {
			t.Fatalf("GetRevision(%d): %v", id, err)
		}
		got, err := HasPreviousRevision(ctx, db, r)
		if err != nil || got != want {
			t.Fatalf("HasPreviousRevision(%d) = %v, %v; want %v", id, got, err, want)
		}
	}
}

func TestGetAllowedLogEntry(t *testing.T) {
	db := newHostDB(t)
	ctx := context.Background()
	allowed := []string{"move", "delete/restore"}

	if e, err := GetAllowedLogEntry(ctx, db, 50, allowed); err != nil || e.ID != 50 {
		t.Fatalf("type match: %+v, %v", e, err)
	}
	if e, err := GetAllowedLogEntry(ctx, db, 51, allowed); err != nil || e.ID != 51 {
		t.Fatalf("type/subtype match: %+v, %v", e, err)
	}

	_, err := GetAllowedLogEntry(ctx, db, 52, allowed)
	var lte *LogTypeError
	if !errors.Is(err, ErrLogTypeNotAllowed) || !errors.As(err, &lte) || lte.Type != "newusers" {
		t.Fatalf("expected LogTypeError(newusers), got %v", err)
	}

	if _, err := GetAllowedLogEntry(ctx, db, 53, allowed); !errors.Is(err, ErrLogPerformerDeleted) {
		t.Fatalf("expected ErrLogPerformerDeleted, got %v", err)
	}
	if _, err := GetAllowedLogEntry(ctx, db, 404, allowed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHostStore_Blocks(t *testing.T) {
	db := newHostDB(t)
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	store := &HostStore{DB: db, Now: func() time.Time { return now }}

	blocked, err := store.IsBlockedFromThanking(ctx, 100)
	if err != nil || blocked {
		t.Fatalf("no blocks yet: %v, %v", blocked, err)
	}

	// Expired sitewide block is ignored.
	if err := db.Create(&domain.Block{ActorID: 100, Sitewide: true, ExpiresAt: &past}).Error; err != nil {
		t.Fatalf("seed expired block: %v", err)
	}
	if blocked, _ := store.IsBlockedFromThanking(ctx, 100); blocked {
		t.Fatalf("expired block must not apply")
	}

	// Partial page block: title only.
	if err := db.Create(&domain.Block{ActorID: 100, Pages: "Main_Page"}).Error; err != nil {
		t.Fatalf("seed partial block: %v", err)
	}
	if blocked, _ := store.IsBlockedFromThanking(ctx, 100); blocked {
		t.Fatalf("page block must not block thanking")
	}
	if blocked, _ := store.IsBlockedFromTitle(ctx, 100, "Main_Page"); !blocked {
		t.Fatalf("page block must cover its title")
	}
	if blocked, _ := store.IsBlockedFromTitle(ctx, 100, "Other"); blocked {
		t.Fatalf("page block must not cover other titles")
	}

	// Partial action block on thanks.
	if err := db.Create(&domain.Block{ActorID: 100, Actions: "thanks"}).Error; err != nil {
		t.Fatalf("seed action block: %v", err)
	}
	if blocked, _ := store.IsBlockedFromThanking(ctx, 100); !blocked {
		t.Fatalf("thanks action block must apply")
	}
}

func TestHostStore_Lookups(t *testing.T) {
	db := newHostDB(t)
	ctx := context.Background()
	store := &HostStore{DB: db, AllowedLogTypes: []string{"move"}}

	if u, err := store.UserByActor(ctx, 100); err != nil || u.ID != 1 {
		t.Fatalf("UserByActor = %+v, %v", u, err)
	}
	if r, err := store.Revision(ctx, 2); err != nil || r.ID != 2 {
		t.Fatalf("Revision = %+v, %v", r, err)
	}
	if e, err := store.LogEntry(ctx, 50); err != nil || e.ID != 50 {
		t.Fatalf("LogEntry = %+v, %v", e, err)
	}
	if _, err := store.LogEntry(ctx, 51); !errors.Is(err, ErrLogTypeNotAllowed) {
		t.Fatalf("LogEntry(51) err = %v", err)
	}
}
