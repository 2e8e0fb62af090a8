package history_test

import (
	"context"
	"testing"
	"time"

	"packmill/internal/engine"
	"packmill/internal/history"
	"packmill/internal/testsupport"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.HistoryDB = "  "
	if _, err := history.Open(cfg); err == nil {
		t.Fatal("expected error for empty history_db path")
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []engine.OperationRecord{
		{
			OperationID:  "op-1",
			Class:        engine.ClassConvert,
			Status:       engine.StatusCompleted,
			SuccessCount: 3,
			TotalCount:   3,
			StartedAt:    started,
			FinishedAt:   started.Add(2 * time.Minute),
		},
		{
			OperationID:  "op-2",
			Class:        engine.ClassPatch,
			Status:       engine.StatusError,
			SuccessCount: 1,
			FailureCount: 2,
			TotalCount:   3,
			ErrorMessage: "patch target mismatch",
			StartedAt:    started.Add(5 * time.Minute),
			FinishedAt:   started.Add(6 * time.Minute),
		},
	}
	for _, record := range records {
		if err := store.RecordOperation(ctx, record); err != nil {
			t.Fatalf("record %s: %v", record.OperationID, err)
		}
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].OperationID != "op-2" {
		t.Errorf("expected newest entry first, got %s", entries[0].OperationID)
	}
	if entries[0].Status != string(engine.StatusError) {
		t.Errorf("status = %q, want %q", entries[0].Status, engine.StatusError)
	}
	if entries[0].ErrorMessage != "patch target mismatch" {
		t.Errorf("error message = %q", entries[0].ErrorMessage)
	}
	if entries[1].SuccessCount != 3 || entries[1].FailureCount != 0 {
		t.Errorf("counts = %d/%d, want 3/0", entries[1].SuccessCount, entries[1].FailureCount)
	}
	if !entries[1].FinishedAt.Equal(started.Add(2 * time.Minute)) {
		t.Errorf("finished_at round-trip mismatch: %v", entries[1].FinishedAt)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		record := engine.OperationRecord{
			OperationID: "op",
			Class:       engine.ClassPublish,
			Status:      engine.StatusCompleted,
			TotalCount:  1,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			FinishedAt:  base.Add(time.Duration(i+1) * time.Minute),
		}
		if err := store.RecordOperation(ctx, record); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestOpenIsReusable(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	record := engine.OperationRecord{
		OperationID: "op-1",
		Class:       engine.ClassConvert,
		Status:      engine.StatusTimedOut,
		TotalCount:  2,
		StartedAt:   time.Now().UTC(),
		FinishedAt:  time.Now().UTC(),
	}
	if err := first.RecordOperation(context.Background(), record); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	entries, err := second.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent after reopen: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != string(engine.StatusTimedOut) {
		t.Fatalf("unexpected entries after reopen: %+v", entries)
	}
}
