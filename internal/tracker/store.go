package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"opsdeck/internal/logging"
	"opsdeck/internal/timeline"
)

// PathForWorkspaceRoot is the workspace-relative tracker path used across
// the app.
func PathForWorkspaceRoot(wsRoot string) string {
	return filepath.Join(wsRoot, "issue_tracker.json")
}

// Store is the JSON-file-backed issue tracker. Every mutation loads the full
// map, mutates one record, persists the full map, and appends timeline
// events. Process-level last-writer-wins; no fine-grained locking beyond the
// in-process mutex.
type Store struct {
	mu       sync.Mutex
	path     string
	timeline *timeline.Store

	// nowFn is overridable in tests.
	nowFn func() time.Time
}

// NewStore creates a tracker at path with its timeline kept beside it.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		timeline: timeline.NewStore(timeline.PathForTrackerPath(path)),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Timeline exposes the adjoining timeline store.
func (s *Store) Timeline() *timeline.Store { return s.timeline }

// SetClock overrides the clock, for tests.
func (s *Store) SetClock(now func() time.Time) { s.nowFn = now }

func (s *Store) nowISO() string {
	t := time.Now()
	if s.nowFn != nil {
		t = s.nowFn()
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Load reads the full issue map. Fail-open: a missing or corrupt file loads
// as empty rather than blocking the pipeline.
func (s *Store) Load() map[string]*Issue {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]*Issue{}
	}
	var out map[string]*Issue
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		logging.Tracker("load: unreadable tracker file %s, starting empty", s.path)
		return map[string]*Issue{}
	}
	for id, rec := range out {
		if rec == nil {
			delete(out, id)
			continue
		}
		ensureDefaults(rec)
	}
	return out
}

// Save persists the full issue map, creating parent directories as needed.
func (s *Store) Save(data map[string]*Issue) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, blob, 0644)
}

// persist saves the full map. A failed save means the mutation is lost, so
// it is logged and returned rather than swallowed; callers skip their
// timeline events when persist fails.
func (s *Store) persist(data map[string]*Issue) error {
	if err := s.Save(data); err != nil {
		logging.Tracker("save failed: %v", err)
		return fmt.Errorf("persist tracker %s: %w", s.path, err)
	}
	return nil
}

// Get returns one record, zero-valued (with defaults) when absent.
func (s *Store) Get(issueID string) Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.Load()[issueID]; ok {
		return *rec
	}
	var zero Issue
	ensureDefaults(&zero)
	return zero
}

// All returns the full map for read-only inspection.
func (s *Store) All() map[string]*Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Load()
}

// logEvent mirrors one state transition to the timeline, best-effort,
// pulling supplier/order context from the record when available.
func (s *Store) logEvent(eventType, summary, issueID string, rec *Issue, data map[string]any) {
	ev := timeline.Event{
		Scope:     timeline.ScopeIssue,
		EventType: eventType,
		Summary:   summary,
		IssueID:   issueID,
		Data:      data,
		TS:        s.nowISO(),
	}
	if rec != nil {
		ev.SupplierName = rec.SupplierName
		ev.OrderID = rec.OrderID
	}
	s.timeline.Append(ev)
}

// locate finds or creates the record for issueID within data and reports
// whether it was newly created. Callers emit issue.created for new records
// before their operation-specific event.
func (s *Store) locate(data map[string]*Issue, issueID, now string) (rec *Issue, isNew bool) {
	rec = data[issueID]
	if rec == nil {
		rec = &Issue{}
		data[issueID] = rec
	}
	isNew = rec.CreatedAt == ""
	if isNew {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.LastActionAt = now
	return rec, isNew
}
