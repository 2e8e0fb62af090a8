package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// FakeItem is one item entry in a scripted progress frame.
type FakeItem struct {
	Status   string `json:"status"`
	Progress *int   `json:"progress,omitempty"`
	Stage    string `json:"stage,omitempty"`
}

// FakeFrame is one scripted progress response. Frames are served in order;
// the last frame repeats once the script is exhausted.
type FakeFrame struct {
	Status         string           `json:"status"`
	Paused         bool             `json:"paused,omitempty"`
	Progress       *int             `json:"progress,omitempty"`
	Items          map[int]FakeItem `json:"-"`
	CompletedCount int              `json:"completedCount"`
	FailedCount    int              `json:"failedCount"`
	TotalCount     int              `json:"totalCount"`
	ErrorMessage   string           `json:"errorMessage,omitempty"`
}

// FakeWorker is an httptest-backed worker that answers start, progress,
// pause, resume, and status requests from a scripted frame sequence.
type FakeWorker struct {
	Server *httptest.Server

	mu          sync.Mutex
	frames      []FakeFrame
	frameIndex  int
	operationID string
	startCalls  int
	pauseCalls  int
	resumeCalls int
}

// NewFakeWorker starts a fake worker that hands out operationID on any start
// endpoint and then serves frames in order on /progress.
func NewFakeWorker(t testing.TB, operationID string, frames ...FakeFrame) *FakeWorker {
	t.Helper()
	fw := &FakeWorker{operationID: operationID, frames: frames}
	mux := http.NewServeMux()
	mux.HandleFunc("/start-convert", fw.handleStart)
	mux.HandleFunc("/start-patch", fw.handleStart)
	mux.HandleFunc("/start-publish", fw.handleStart)
	mux.HandleFunc("/progress", fw.handleProgress)
	mux.HandleFunc("/pause", fw.handleSimple(&fw.pauseCalls))
	mux.HandleFunc("/resume", fw.handleSimple(&fw.resumeCalls))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true})
	})
	fw.Server = httptest.NewServer(mux)
	t.Cleanup(fw.Server.Close)
	return fw
}

// URL returns the fake worker's base URL.
func (fw *FakeWorker) URL() string { return fw.Server.URL }

// StartCalls reports how many start requests were received.
func (fw *FakeWorker) StartCalls() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.startCalls
}

// PauseCalls reports how many pause requests were received.
func (fw *FakeWorker) PauseCalls() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.pauseCalls
}

// ResumeCalls reports how many resume requests were received.
func (fw *FakeWorker) ResumeCalls() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.resumeCalls
}

func (fw *FakeWorker) handleStart(w http.ResponseWriter, r *http.Request) {
	fw.mu.Lock()
	fw.startCalls++
	id := fw.operationID
	fw.mu.Unlock()
	writeJSON(w, map[string]any{"success": true, "operationId": id})
}

func (fw *FakeWorker) handleSimple(counter *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fw.mu.Lock()
		*counter++
		fw.mu.Unlock()
		writeJSON(w, map[string]any{"success": true})
	}
}

func (fw *FakeWorker) handleProgress(w http.ResponseWriter, r *http.Request) {
	fw.mu.Lock()
	if len(fw.frames) == 0 {
		fw.mu.Unlock()
		writeJSON(w, map[string]any{"success": false, "error": "no frames scripted"})
		return
	}
	frame := fw.frames[fw.frameIndex]
	if fw.frameIndex < len(fw.frames)-1 {
		fw.frameIndex++
	}
	fw.mu.Unlock()

	body := map[string]any{
		"success":        true,
		"status":         frame.Status,
		"paused":         frame.Paused,
		"completedCount": frame.CompletedCount,
		"failedCount":    frame.FailedCount,
		"totalCount":     frame.TotalCount,
	}
	if frame.Progress != nil {
		body["progress"] = *frame.Progress
	}
	if frame.ErrorMessage != "" {
		body["errorMessage"] = frame.ErrorMessage
	}
	if len(frame.Items) > 0 {
		items := make(map[string]FakeItem, len(frame.Items))
		for index, item := range frame.Items {
			items[strconv.Itoa(index)] = item
		}
		body["itemStatuses"] = items
	}
	writeJSON(w, body)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Println("fake worker encode:", err)
	}
}

// IntPtr returns a pointer to v, for scripting explicit progress values.
func IntPtr(v int) *int { return &v }
