// Package timeline is the append-only JSONL audit log for issue state
// transitions. Events are write-once: nothing here mutates or deletes a
// line, and append failures are swallowed so the audit trail can never take
// the pipeline down with it.
package timeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Event scopes.
const (
	ScopeIssue    = "issue"
	ScopeOrder    = "order"
	ScopeSupplier = "supplier"
	ScopeSystem   = "system"
)

// Event is one timeline line.
type Event struct {
	EventID      string         `json:"event_id"`
	TS           string         `json:"ts"`
	Scope        string         `json:"scope"`
	EventType    string         `json:"event_type"`
	Summary      string         `json:"summary"`
	IssueID      string         `json:"issue_id"`
	OrderID      string         `json:"order_id"`
	SupplierName string         `json:"supplier_name"`
	Severity     string         `json:"severity"`
	Actor        string         `json:"actor"`
	ActorID      string         `json:"actor_id"`
	Data         map[string]any `json:"data"`
}

// UTCNowISO is UTC now as an ISO string with a trailing Z, truncated to
// whole seconds.
func UTCNowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// PathForTrackerPath keeps the timeline beside issue_tracker.json:
//
//	<ws_root>/issue_tracker.json
//	<ws_root>/timeline.jsonl
func PathForTrackerPath(trackerPath string) string {
	return filepath.Join(filepath.Dir(trackerPath), "timeline.jsonl")
}

// Store appends events to one JSONL file.
type Store struct {
	path string

	// Now is overridable in tests; nil means wall clock.
	Now func() string
}

// NewStore returns a store writing to path. The file is created on first
// append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) now() string {
	if s.Now != nil {
		return s.Now()
	}
	return UTCNowISO()
}

// Append writes one event as a JSON line. Best-effort: all errors are
// swallowed.
func (s *Store) Append(ev Event) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.TS == "" {
		ev.TS = s.now()
	}
	if ev.Actor == "" {
		ev.Actor = "user"
	}
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}

// Read returns every parseable event in file order. Unparseable lines are
// skipped, a missing file yields an empty slice.
func (s *Store) Read() []Event {
	f, err := os.Open(s.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// ForIssue returns the events carrying the given issue id, in file order.
func (s *Store) ForIssue(issueID string) []Event {
	var out []Event
	for _, ev := range s.Read() {
		if ev.IssueID == issueID {
			out = append(out, ev)
		}
	}
	return out
}
