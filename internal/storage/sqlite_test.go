package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/config"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
)

func testStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "vernissage.db")
	st, err := NewStore(config.StorageConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return st
}

func TestInsertAndFindViewedStatus(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	rec := model.ViewedStatusRecord{ID: "p1", ReblogID: "orig1", AccountID: "u1", Date: now}
	if err := st.InsertViewedStatus(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, ok, err := st.FindViewedStatus(ctx, "u1", "orig1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !ok {
		t.Fatal("expected a match via reblog_id")
	}
	if got.ID != "p1" || got.ReblogID != "orig1" || got.AccountID != "u1" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.Date.UTC().Equal(now) {
		t.Fatalf("date round trip: want %s, got %s", now, got.Date.UTC())
	}

	got, ok, err = st.FindViewedStatus(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !ok {
		t.Fatal("expected a match via id")
	}
	if got.ID != "p1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFindViewedStatusScopedToAccount(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := st.InsertViewedStatus(ctx, model.ViewedStatusRecord{ID: "p1", AccountID: "u1", Date: now}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, ok, _ := st.FindViewedStatus(ctx, "u2", "p1"); ok {
		t.Fatal("record of u1 must not match for u2")
	}
}

func TestFindViewedStatusNullReblog(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	rec := model.ViewedStatusRecord{ID: "p1", AccountID: "u1", Date: time.Now().UTC()}
	if err := st.InsertViewedStatus(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, ok, err := st.FindViewedStatus(ctx, "u1", "p1")
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got.ReblogID != "" {
		t.Fatalf("NULL reblog_id should scan to empty string, got %q", got.ReblogID)
	}
}

func TestFindViewedStatusReturnsMostRecent(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	older := model.ViewedStatusRecord{ID: "p1", ReblogID: "orig1", AccountID: "u1", Date: base}
	newer := model.ViewedStatusRecord{ID: "p2", ReblogID: "orig1", AccountID: "u1", Date: base.Add(time.Hour)}
	for _, rec := range []model.ViewedStatusRecord{older, newer} {
		if err := st.InsertViewedStatus(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.ID, err)
		}
	}

	got, ok, err := st.FindViewedStatus(ctx, "u1", "orig1")
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got.ID != "p2" {
		t.Fatalf("expected most recent row p2, got %s", got.ID)
	}
}

func TestDeleteViewedStatusesBeforeIsExclusive(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	recs := []model.ViewedStatusRecord{
		{ID: "stale", AccountID: "u1", Date: cutoff.Add(-time.Second)},
		{ID: "boundary", AccountID: "u1", Date: cutoff},
		{ID: "fresh", AccountID: "u1", Date: cutoff.Add(time.Second)},
	}
	for _, rec := range recs {
		if err := st.InsertViewedStatus(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.ID, err)
		}
	}

	removed, err := st.DeleteViewedStatusesBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 row removed, got %d", removed)
	}
	n, err := st.CountViewedStatuses(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected boundary and fresh rows to survive, have %d", n)
	}
	if _, ok, _ := st.FindViewedStatus(ctx, "u1", "stale"); ok {
		t.Fatal("stale row should be gone")
	}
	if _, ok, _ := st.FindViewedStatus(ctx, "u1", "boundary"); !ok {
		t.Fatal("row exactly at the cutoff must survive")
	}
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := NewStore(config.StorageConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
