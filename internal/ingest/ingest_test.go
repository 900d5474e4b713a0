package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/config"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
	"github.com/PattaFeuFeu/Vernissage/internal/storage"
	"github.com/PattaFeuFeu/Vernissage/internal/tracker"
)

func testTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "vernissage.db")
	st, err := storage.NewStore(config.StorageConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return tracker.New(st, nil)
}

func TestRecorderPersistsSeenEvents(t *testing.T) {
	tr := testTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan model.SeenEvent, 10)
	StartRecorder(ctx, events, tr)

	events <- model.SeenEvent{AccountID: "u1", StatusID: "p1", ReblogID: "orig1"}

	incoming := model.Status{ID: "p2", ReblogID: "orig1"}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if tr.HasBeenSeen(ctx, "u1", incoming) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("seen event was not recorded in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendNonBlockingDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	events := make(chan model.SeenEvent, 1)
	ev := model.SeenEvent{AccountID: "u1", StatusID: "p1"}

	if !SendNonBlocking(ctx, events, ev, nil) {
		t.Fatal("send into empty channel should succeed")
	}
	if SendNonBlocking(ctx, events, ev, nil) {
		t.Fatal("send into full channel should drop")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if SendNonBlocking(cancelled, events, ev, nil) {
		t.Fatal("send with cancelled context should fail")
	}
}
