package engine

import "strings"

// ItemStatus is the lifecycle of a single unit of work inside an operation.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemStarting   ItemStatus = "starting"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemError      ItemStatus = "error"
)

var itemStatusSet = map[ItemStatus]struct{}{
	ItemPending:    {},
	ItemStarting:   {},
	ItemProcessing: {},
	ItemCompleted:  {},
	ItemError:      {},
}

// ParseItemStatus converts a worker-reported status string into a known
// ItemStatus.
func ParseItemStatus(value string) (ItemStatus, bool) {
	normalized := ItemStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := itemStatusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status permanently ends an item.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemCompleted || s == ItemError
}

// Item is one unit of work (one file) inside an operation. The engine is
// handed the caller's slice and mutates items in place; Index is the stable
// join key with worker snapshots and is never reassigned mid-operation.
type Item struct {
	Index           int
	Path            string
	Status          ItemStatus
	Progress        int
	Stage           string
	TerminalReached bool
}

// NewItems builds the initial pending item list for the given file paths.
func NewItems(paths []string) []*Item {
	items := make([]*Item, 0, len(paths))
	for i, path := range paths {
		items = append(items, &Item{Index: i, Path: path, Status: ItemPending})
	}
	return items
}

// markCompleted forces the item into its successful terminal state.
func (i *Item) markCompleted() {
	i.Status = ItemCompleted
	i.Progress = 100
	i.TerminalReached = true
}

// markError forces the item into its failed terminal state. Progress is kept
// at the last known value so callers can see how far the item got.
func (i *Item) markError(stage string) {
	i.Status = ItemError
	if stage != "" {
		i.Stage = stage
	}
	i.TerminalReached = true
}
