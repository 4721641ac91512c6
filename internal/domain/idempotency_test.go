package domain

import (
	"testing"
	"time"
)

func TestIdempotency_Schema(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasTable("idempotency") {
		t.Fatal("idempotency table missing")
	}
	if !m.HasIndex(&Idempotency{}, "ux_actor_scope_key") {
		t.Fatal("unique (actor_id, scope, key) index missing")
	}
	if !m.HasIndex(&Idempotency{}, "ExpiresAt") && !m.HasIndex(&Idempotency{}, "idx_idempotency_expires_at") {
		t.Fatal("expires_at index missing")
	}
}

func TestIdempotency_KeyUniquePerActorAndRoute(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Now().UTC()
	rec := func(id string, actor int64, scope string) *Idempotency {
		return &Idempotency{
			ID: id, ActorID: actor, Scope: scope, Key: "k1",
			Recipient: "Bob", Status: 200, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}
	}

	if err := db.Create(rec("a", 7, "/api/v1/thank")).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := db.Create(rec("b", 8, "/api/v1/thank")).Error; err != nil {
		t.Fatalf("same key, other actor: %v", err)
	}
	if err := db.Create(rec("c", 7, "/api/v2/thank")).Error; err != nil {
		t.Fatalf("same key, other route: %v", err)
	}
	if err := db.Create(rec("d", 7, "/api/v1/thank")).Error; err == nil {
		t.Fatal("duplicate (actor, scope, key) accepted")
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "a").Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Recipient != "Bob" || got.Status != 200 || !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("row = %+v", got)
	}
}

func TestIdempotency_RequiredColumns(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cols := []string{"actor_id", "scope", "key", "recipient", "status", "expires_at"}
	for _, col := range cols {
		t.Run(col, func(t *testing.T) {
			vals := map[string]any{
				"id": "null-" + col, "actor_id": 1, "scope": "/s", "key": "k-" + col,
				"recipient": "Bob", "status": 200, "created_at": time.Now(), "expires_at": time.Now(),
			}
			vals[col] = nil
			if err := db.Table("idempotency").Create(vals).Error; err == nil {
				t.Fatalf("NULL %s accepted", col)
			}
		})
	}
}
