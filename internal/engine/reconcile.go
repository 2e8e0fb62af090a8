package engine

import "packmill/internal/worker"

// Reconcile merges a polled snapshot's item reports into the authoritative
// item list and reports whether any observable field changed, so callers can
// skip redraws on quiet ticks.
//
// Merge policy, per item report:
//   - an index with no matching item is skipped silently (the file was
//     removed locally mid-flight)
//   - an item whose terminal state was already reached is immutable; stale
//     or out-of-order reports cannot overwrite a finalized result
//   - a completed report forces progress to 100 and latches the terminal flag
//   - an error report latches the terminal flag but keeps the last known
//     progress unless the worker explicitly reported a value
//   - anything else is copied verbatim
func Reconcile(items []*Item, reports map[int]worker.ItemReport) bool {
	if len(reports) == 0 {
		return false
	}

	byIndex := make(map[int]*Item, len(items))
	for _, item := range items {
		byIndex[item.Index] = item
	}

	changed := false
	for index, report := range reports {
		item, ok := byIndex[index]
		if !ok || item.TerminalReached {
			continue
		}
		status, ok := ParseItemStatus(report.Status)
		if !ok {
			continue
		}

		switch status {
		case ItemCompleted:
			if item.Status != ItemCompleted || item.Progress != 100 || !item.TerminalReached {
				changed = true
			}
			if report.Stage != "" && report.Stage != item.Stage {
				item.Stage = report.Stage
				changed = true
			}
			item.markCompleted()
		case ItemError:
			changed = true
			if report.HasProgress && report.Progress != item.Progress {
				item.Progress = report.Progress
			}
			item.markError(report.Stage)
		default:
			if item.Status != status {
				item.Status = status
				changed = true
			}
			if report.HasProgress && report.Progress != item.Progress {
				item.Progress = report.Progress
				changed = true
			}
			if report.Stage != "" && report.Stage != item.Stage {
				item.Stage = report.Stage
				changed = true
			}
		}
	}
	return changed
}

// Summary aggregates the outcome of a finished operation.
type Summary struct {
	SuccessCount int
	FailureCount int
	TotalCount   int
}

// Summarize counts terminal outcomes across the item list.
func Summarize(items []*Item) Summary {
	summary := Summary{TotalCount: len(items)}
	for _, item := range items {
		switch item.Status {
		case ItemCompleted:
			summary.SuccessCount++
		case ItemError:
			summary.FailureCount++
		}
	}
	return summary
}
