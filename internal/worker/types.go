package worker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OperationStatus is the worker's reported status for a whole operation.
type OperationStatus string

const (
	OperationRunning   OperationStatus = "running"
	OperationPaused    OperationStatus = "paused"
	OperationCompleted OperationStatus = "completed"
	OperationError     OperationStatus = "error"
)

// IsTerminal reports whether the status ends an operation.
func (s OperationStatus) IsTerminal() bool {
	return s == OperationCompleted || s == OperationError
}

// ItemReport is the worker's reported state for one item. HasProgress
// distinguishes an explicit progress value (including 0) from an omitted one.
type ItemReport struct {
	Status      string
	Progress    int
	HasProgress bool
	Stage       string
}

// ProgressSnapshot is the canonical progress poll result.
type ProgressSnapshot struct {
	Status         OperationStatus
	Paused         bool
	Progress       int
	ItemStatuses   map[int]ItemReport
	CompletedCount int
	FailedCount    int
	TotalCount     int
	ErrorMessage   string
}

// StartItem names one input file for a start request.
type StartItem struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
}

// ConvertParams carries conversion parameters.
type ConvertParams struct {
	OutputDir string `json:"outputDir"`
	Format    string `json:"format,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

// PatchParams carries binary metadata patch parameters.
type PatchParams struct {
	OutputDir string `json:"outputDir"`
	Loop      bool   `json:"loop,omitempty"`
}

// PublishParams carries pack publishing parameters.
type PublishParams struct {
	Title     string `json:"title"`
	ShortName string `json:"shortName"`
}

// Credentials identifies the remote account for the auth handshake.
type Credentials struct {
	Account string `json:"account"`
	APIKey  string `json:"apiKey,omitempty"`
}

// AuthResult is the canonical response of an auth handshake step.
type AuthResult struct {
	OK            bool
	NeedsCode     bool
	NeedsPassword bool
}

// envelope is the superset of fields the worker may emit; normalization
// probes it exactly once and hands out canonical shapes.
type envelope struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error"`
	ErrorCode     string          `json:"errorCode"`
	OperationID   string          `json:"operationId"`
	ID            string          `json:"id"`
	Result        *nestedResult   `json:"result"`
	Status        string          `json:"status"`
	Paused        bool            `json:"paused"`
	Progress      *int            `json:"progress"`
	ItemStatuses  json.RawMessage `json:"itemStatuses"`
	Completed     int             `json:"completedCount"`
	Failed        int             `json:"failedCount"`
	Total         int             `json:"totalCount"`
	ErrorMessage  string          `json:"errorMessage"`
	NeedsCode     bool            `json:"needsCode"`
	NeedsPassword bool            `json:"needsPassword"`
}

type nestedResult struct {
	ID          string `json:"id"`
	OperationID string `json:"operationId"`
}

type itemReportWire struct {
	Status   string `json:"status"`
	Progress *int   `json:"progress"`
	Stage    string `json:"stage"`
}

const lockedErrorCode = "resource-locked"

func (e *envelope) locked() bool {
	if strings.EqualFold(strings.TrimSpace(e.ErrorCode), lockedErrorCode) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(e.Error), lockedErrorCode)
}

func (e *envelope) failureMessage() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(e.ErrorMessage); msg != "" {
		return msg
	}
	return "request rejected"
}

// operationID probes the known id spellings and returns the first present.
func (e *envelope) operationID() string {
	if id := strings.TrimSpace(e.OperationID); id != "" {
		return id
	}
	if id := strings.TrimSpace(e.ID); id != "" {
		return id
	}
	if e.Result != nil {
		if id := strings.TrimSpace(e.Result.OperationID); id != "" {
			return id
		}
		return strings.TrimSpace(e.Result.ID)
	}
	return ""
}

func (e *envelope) snapshot() (ProgressSnapshot, error) {
	status, err := parseOperationStatus(e.Status)
	if err != nil {
		return ProgressSnapshot{}, err
	}
	snap := ProgressSnapshot{
		Status:         status,
		Paused:         e.Paused || status == OperationPaused,
		CompletedCount: e.Completed,
		FailedCount:    e.Failed,
		TotalCount:     e.Total,
		ErrorMessage:   strings.TrimSpace(e.ErrorMessage),
	}
	if e.Progress != nil {
		snap.Progress = clampProgress(*e.Progress)
	}
	items, err := parseItemStatuses(e.ItemStatuses)
	if err != nil {
		return ProgressSnapshot{}, err
	}
	snap.ItemStatuses = items
	return snap, nil
}

func parseOperationStatus(raw string) (OperationStatus, error) {
	switch OperationStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case OperationRunning:
		return OperationRunning, nil
	case OperationPaused:
		return OperationPaused, nil
	case OperationCompleted:
		return OperationCompleted, nil
	case OperationError:
		return OperationError, nil
	default:
		return "", fmt.Errorf("unknown operation status %q", raw)
	}
}

// parseItemStatuses folds the worker's string-keyed item map into integer
// indexes. Workers that report only aggregate counts omit the map entirely.
func parseItemStatuses(raw json.RawMessage) (map[int]ItemReport, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var wire map[string]itemReportWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("item statuses: %w", err)
	}
	items := make(map[int]ItemReport, len(wire))
	for key, report := range wire {
		index, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("item statuses: index %q is not a number", key)
		}
		normalized := ItemReport{
			Status: strings.ToLower(strings.TrimSpace(report.Status)),
			Stage:  strings.TrimSpace(report.Stage),
		}
		if report.Progress != nil {
			normalized.Progress = clampProgress(*report.Progress)
			normalized.HasProgress = true
		}
		items[index] = normalized
	}
	return items, nil
}

func clampProgress(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
