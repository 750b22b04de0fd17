package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xpol/FFcuesplitter/internal/history"
)

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, status := range []history.Status{history.StatusDone, history.StatusFailed} {
		_, err := store.Record(ctx, history.Entry{
			RunID:      "run-1",
			CueSheet:   "/music/album.cue",
			Track:      i + 1,
			Title:      "Song",
			OutputPath: "/out/01 - Song.flac",
			Status:     status,
			ExitCode:   i,
			LogPath:    "/out/ffcuesplitter.log",
			SizeBytes:  1024,
			StartedAt:  start,
			FinishedAt: start.Add(3 * time.Second),
		})
		if err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Track != 2 || entries[0].Status != history.StatusFailed {
		t.Fatalf("expected newest entry first, got %#v", entries[0])
	}
	if entries[1].Elapsed() != 3*time.Second {
		t.Fatalf("unexpected elapsed: %v", entries[1].Elapsed())
	}
	if entries[1].LogPath != "/out/ffcuesplitter.log" {
		t.Fatalf("unexpected log path: %q", entries[1].LogPath)
	}
}

func TestByRunFiltersAndOrders(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, e := range []history.Entry{
		{RunID: "a", CueSheet: "x.cue", Track: 2, Status: history.StatusDone},
		{RunID: "b", CueSheet: "y.cue", Track: 1, Status: history.StatusDone},
		{RunID: "a", CueSheet: "x.cue", Track: 1, Status: history.StatusSkipped},
	} {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}
	entries, err := store.ByRun(ctx, "a")
	if err != nil {
		t.Fatalf("ByRun returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for run a, got %d", len(entries))
	}
	if entries[0].Track != 1 || entries[1].Track != 2 {
		t.Fatalf("expected track order, got %d,%d", entries[0].Track, entries[1].Track)
	}
	if entries[0].Title != "" {
		t.Fatalf("expected empty title to round-trip as empty, got %q", entries[0].Title)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Entry{RunID: "r", CueSheet: "c", Track: 1, Status: history.StatusDone}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d", len(entries))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	_ = db.Close()

	store, err := history.Open(path)
	if err == nil {
		_ = store.Close()
		t.Fatal("expected schema mismatch")
	}
	if !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
