package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Options{
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "dispatch.db")},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSettingsStore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetSetting(ctx, "downtime.until"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key: got %v, want ErrNotFound", err)
	}
	if got := db.GetSettingWithDefault(ctx, "downtime.until", "fallback"); got != "fallback" {
		t.Errorf("default = %q, want fallback", got)
	}

	if err := db.SetSetting(ctx, "downtime.until", "2026-08-29T12:00:00Z"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}
	value, err := db.GetSetting(ctx, "downtime.until")
	if err != nil {
		t.Fatalf("GetSetting() error: %v", err)
	}
	if value != "2026-08-29T12:00:00Z" {
		t.Errorf("value = %q", value)
	}

	// Overwrite, then delete. Deleting twice stays silent.
	if err := db.SetSetting(ctx, "downtime.until", "2026-08-30T12:00:00Z"); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	if err := db.DeleteSetting(ctx, "downtime.until"); err != nil {
		t.Fatalf("DeleteSetting() error: %v", err)
	}
	if err := db.DeleteSetting(ctx, "downtime.until"); err != nil {
		t.Errorf("second DeleteSetting() error: %v", err)
	}
	if _, err := db.GetSetting(ctx, "downtime.until"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted key: got %v, want ErrNotFound", err)
	}
}

func TestWebhookBindingStore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	bindings := []*models.WebhookBinding{
		{Path: "p1", Username: "alice", CreatedAt: time.Now().UTC()},
		{Path: "p2", Username: "alice", CreatedAt: time.Now().UTC().Add(time.Millisecond)},
		{Path: "p3", Username: "bob", CreatedAt: time.Now().UTC()},
	}
	for _, b := range bindings {
		if err := db.InsertWebhookBinding(ctx, b); err != nil {
			t.Fatalf("InsertWebhookBinding(%s) error: %v", b.Path, err)
		}
	}

	got, err := db.GetWebhookBinding(ctx, "p1")
	if err != nil {
		t.Fatalf("GetWebhookBinding() error: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("binding username = %q, want alice", got.Username)
	}

	list, err := db.ListWebhookBindings(ctx, "alice")
	if err != nil {
		t.Fatalf("ListWebhookBindings() error: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("alice has %d bindings, want 2", len(list))
	}

	if err := db.DeleteWebhookBinding(ctx, "p1"); err != nil {
		t.Fatalf("DeleteWebhookBinding() error: %v", err)
	}
	if err := db.DeleteWebhookBinding(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
	if _, err := db.GetWebhookBinding(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted binding lookup: got %v, want ErrNotFound", err)
	}
}

func TestPreferencesStore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetPreferencesJSON(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing preferences: got %v, want ErrNotFound", err)
	}

	if err := db.UpsertPreferencesJSON(ctx, "alice", `{"signal":3,"email":2,"ntfy":1}`); err != nil {
		t.Fatalf("UpsertPreferencesJSON() error: %v", err)
	}
	if err := db.UpsertPreferencesJSON(ctx, "alice", `{"signal":0,"email":9,"ntfy":1}`); err != nil {
		t.Fatalf("upsert overwrite error: %v", err)
	}

	stored, err := db.GetPreferencesJSON(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPreferencesJSON() error: %v", err)
	}
	if stored != `{"signal":0,"email":9,"ntfy":1}` {
		t.Errorf("stored json = %s", stored)
	}
}
