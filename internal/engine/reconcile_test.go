package engine_test

import (
	"testing"

	"packmill/internal/engine"
	"packmill/internal/worker"
)

func report(status string, progress int, stage string) worker.ItemReport {
	return worker.ItemReport{Status: status, Progress: progress, HasProgress: true, Stage: stage}
}

func TestReconcileCopiesNonTerminalFieldsVerbatim(t *testing.T) {
	items := engine.NewItems([]string{"a.mp4", "b.mp4"})
	changed := engine.Reconcile(items, map[int]worker.ItemReport{
		0: report("processing", 42, "encoding video"),
		1: report("starting", 0, ""),
	})
	if !changed {
		t.Fatal("expected change")
	}
	if items[0].Status != engine.ItemProcessing || items[0].Progress != 42 || items[0].Stage != "encoding video" {
		t.Fatalf("item 0 = %+v", *items[0])
	}
	if items[0].TerminalReached || items[1].TerminalReached {
		t.Fatal("non-terminal items must not latch the terminal flag")
	}
}

func TestReconcileCompletedForcesFullProgress(t *testing.T) {
	items := engine.NewItems([]string{"a.mp4"})
	engine.Reconcile(items, map[int]worker.ItemReport{0: report("processing", 60, "")})
	engine.Reconcile(items, map[int]worker.ItemReport{0: {Status: "completed"}})
	if items[0].Progress != 100 || items[0].Status != engine.ItemCompleted || !items[0].TerminalReached {
		t.Fatalf("item = %+v", *items[0])
	}
}

func TestReconcileErrorKeepsLastProgressUnlessExplicit(t *testing.T) {
	items := engine.NewItems([]string{"a.mp4", "b.mp4"})
	engine.Reconcile(items, map[int]worker.ItemReport{
		0: report("processing", 70, ""),
		1: report("processing", 55, ""),
	})

	// Item 0 errors with no explicit progress: last known value survives.
	// Item 1 errors with an explicit zero: the report wins.
	engine.Reconcile(items, map[int]worker.ItemReport{
		0: {Status: "error", Stage: "mux failed"},
		1: {Status: "error", Progress: 0, HasProgress: true},
	})
	if items[0].Progress != 70 || items[0].Status != engine.ItemError || items[0].Stage != "mux failed" {
		t.Fatalf("item 0 = %+v", *items[0])
	}
	if items[1].Progress != 0 {
		t.Fatalf("item 1 progress = %d, want explicit 0", items[1].Progress)
	}
}

func TestReconcileTerminalItemsAreImmutable(t *testing.T) {
	items := engine.NewItems([]string{"a.mp4"})
	engine.Reconcile(items, map[int]worker.ItemReport{0: {Status: "completed"}})

	// A stale out-of-order snapshot must not overwrite the finalized result.
	changed := engine.Reconcile(items, map[int]worker.ItemReport{0: report("processing", 10, "late")})
	if changed {
		t.Fatal("terminal item must not report change")
	}
	if items[0].Status != engine.ItemCompleted || items[0].Progress != 100 || items[0].Stage == "late" {
		t.Fatalf("item = %+v", *items[0])
	}
}

func TestReconcileSkipsUnknownIndexes(t *testing.T) {
	items := engine.NewItems([]string{"a.mp4"})
	changed := engine.Reconcile(items, map[int]worker.ItemReport{7: report("processing", 10, "")})
	if changed {
		t.Fatal("unknown index must be skipped silently")
	}
}

func TestReconcileQuietTickReportsNoChange(t *testing.T) {
	items := engine.NewItems([]string{"a.mp4"})
	snapshot := map[int]worker.ItemReport{0: report("processing", 25, "downscaling")}
	if !engine.Reconcile(items, snapshot) {
		t.Fatal("first apply should change")
	}
	if engine.Reconcile(items, snapshot) {
		t.Fatal("identical snapshot applied twice must report changed=false")
	}
	if items[0].Progress != 25 || items[0].Stage != "downscaling" {
		t.Fatalf("item drifted: %+v", *items[0])
	}
}

func TestSummarizeCountsOutcomes(t *testing.T) {
	items := engine.NewItems([]string{"a", "b", "c"})
	engine.Reconcile(items, map[int]worker.ItemReport{
		0: {Status: "completed"},
		1: {Status: "error"},
	})
	summary := engine.Summarize(items)
	if summary.SuccessCount != 1 || summary.FailureCount != 1 || summary.TotalCount != 3 {
		t.Fatalf("summary = %+v", summary)
	}
}
