// Package workspace persists pipeline runs as browsable directories of CSV
// artifacts plus a meta.json, laid out as
// <workspaces>/<account>/<store>/<workspace>/<run_id>/.
package workspace

import (
	"path/filepath"
	"strings"
)

// SafeSlug reduces free-form tenant/workspace names to a filesystem-safe
// slug: alphanumerics, dashes, underscores and spaces survive, spaces become
// underscores, and the result is capped at 60 characters. Anything that
// reduces to nothing becomes "workspace".
func SafeSlug(s string) string {
	var keep strings.Builder
	for _, ch := range strings.TrimSpace(s) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			keep.WriteRune(ch)
		case ch == '-' || ch == '_' || ch == ' ':
			keep.WriteRune(ch)
		}
	}
	out := strings.ReplaceAll(strings.TrimSpace(keep.String()), " ", "_")
	if out == "" {
		return "workspace"
	}
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}

// Root returns the per-tenant workspace root.
func Root(workspacesDir, accountID, storeID string) string {
	return filepath.Join(workspacesDir, SafeSlug(accountID), SafeSlug(storeID))
}
