package tracker

import (
	"fmt"
	"time"

	"opsdeck/internal/logging"
)

func parseISO(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PruneResolvedOlderThanDays removes resolved records whose resolution (or,
// failing that, last update) is older than the cutoff. Returns the number
// removed. Unresolved records are never touched.
func (s *Store) PruneResolvedOlderThanDays(days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.nowFn != nil {
		now = s.nowFn()
	}
	cutoff := now.UTC().AddDate(0, 0, -days)

	data := s.Load()
	removed := 0
	for id, rec := range data {
		if !rec.Resolved {
			continue
		}
		ts, ok := parseISO(rec.ResolvedAt)
		if !ok {
			ts, ok = parseISO(rec.UpdatedAt)
		}
		if ok && ts.Before(cutoff) {
			delete(data, id)
			removed++
		}
	}
	if removed > 0 {
		if err := s.persist(data); err != nil {
			return 0, err
		}
		s.logEvent("maintenance.pruned",
			fmt.Sprintf("Pruned %d resolved issue(s) older than %d day(s)", removed, days),
			"", nil, map[string]any{"removed": removed, "days": days})
		logging.Tracker("pruned %d resolved record(s)", removed)
	}
	return removed, nil
}

// ClearResolved removes every resolved record, returning the number
// removed.
func (s *Store) ClearResolved() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.Load()
	removed := 0
	for id, rec := range data {
		if rec.Resolved {
			delete(data, id)
			removed++
		}
	}
	if removed > 0 {
		if err := s.persist(data); err != nil {
			return 0, err
		}
		s.logEvent("maintenance.cleared_resolved",
			fmt.Sprintf("Cleared %d resolved issue(s)", removed),
			"", nil, map[string]any{"removed": removed})
	}
	return removed, nil
}
