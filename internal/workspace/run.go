package workspace

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"opsdeck/internal/logging"
	"opsdeck/internal/model"
	"opsdeck/internal/tabular"
)

// Artifacts are the tables one run persists. Nil tables are skipped on save
// and come back nil on load when the file is absent.
type Artifacts struct {
	Exceptions  *tabular.Table
	Followups   *tabular.Table
	OrderRollup *tabular.Table
	LineStatus  *tabular.Table
	Orders      *tabular.Table
	Shipments   *tabular.Table
	Tracking    *tabular.Table
	Suppliers   *tabular.Table
}

// artifact file names, fixed across the app.
var artifactFiles = []struct {
	name string
	get  func(*Artifacts) **tabular.Table
}{
	{"exceptions.csv", func(a *Artifacts) **tabular.Table { return &a.Exceptions }},
	{"followups.csv", func(a *Artifacts) **tabular.Table { return &a.Followups }},
	{"order_rollup.csv", func(a *Artifacts) **tabular.Table { return &a.OrderRollup }},
	{"line_status.csv", func(a *Artifacts) **tabular.Table { return &a.LineStatus }},
	{"orders_normalized.csv", func(a *Artifacts) **tabular.Table { return &a.Orders }},
	{"shipments_normalized.csv", func(a *Artifacts) **tabular.Table { return &a.Shipments }},
	{"tracking_normalized.csv", func(a *Artifacts) **tabular.Table { return &a.Tracking }},
	{"suppliers.csv", func(a *Artifacts) **tabular.Table { return &a.Suppliers }},
}

// Meta is the per-run manifest written beside the artifacts.
type Meta struct {
	CreatedAt     string         `json:"created_at"`
	WorkspaceName string         `json:"workspace_name"`
	AccountID     string         `json:"account_id"`
	StoreID       string         `json:"store_id"`
	PlatformHint  string         `json:"platform_hint"`
	KPIs          model.KPIs     `json:"kpis"`
	RowCounts     map[string]int `json:"row_counts"`
}

// RunID formats the run directory name from a wall-clock instant. Sorting
// run ids lexicographically sorts them chronologically.
func RunID(now time.Time) string {
	return now.UTC().Format("20060102T150405Z")
}

// SaveRun writes one run directory under wsRoot/<workspace>/<run_id>/ and
// returns its path. The suppliers table is only written when non-empty, so
// tenants without a directory don't accumulate empty files.
func SaveRun(wsRoot, workspaceName string, tenant model.Tenant, art Artifacts, kpis model.KPIs, now time.Time) (string, error) {
	workspaceName = SafeSlug(workspaceName)
	runID := RunID(now)
	runDir := filepath.Join(wsRoot, workspaceName, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	counts := make(map[string]int, len(artifactFiles))
	for _, af := range artifactFiles {
		tbl := *af.get(&art)
		key := countKey(af.name)
		counts[key] = tbl.Len()
		if tbl == nil || (af.name == "suppliers.csv" && tbl.Empty()) {
			continue
		}
		if err := tbl.WriteFile(filepath.Join(runDir, af.name)); err != nil {
			return "", fmt.Errorf("write %s: %w", af.name, err)
		}
	}

	meta := Meta{
		CreatedAt:     runID,
		WorkspaceName: workspaceName,
		AccountID:     tenant.AccountID,
		StoreID:       tenant.StoreID,
		PlatformHint:  tenant.Platform,
		KPIs:          kpis,
		RowCounts:     counts,
	}
	blob, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, "meta.json"), blob, 0644); err != nil {
		return "", fmt.Errorf("write meta.json: %w", err)
	}
	logging.Workspace("saved run %s/%s (%d exceptions, %d followups)",
		workspaceName, runID, counts["exceptions"], counts["followups"])
	return runDir, nil
}

func countKey(file string) string {
	base := file[:len(file)-len(".csv")]
	switch base {
	case "orders_normalized":
		return "orders"
	case "shipments_normalized":
		return "shipments"
	case "tracking_normalized":
		return "tracking"
	}
	return base
}

// RunInfo is one entry of the run listing.
type RunInfo struct {
	WorkspaceName string
	RunID         string
	Path          string
	CreatedAt     string
	Meta          Meta
}

// ListRuns walks wsRoot/<workspace>/<run_id>/ and returns runs newest first.
// Unreadable meta files degrade to an entry keyed by directory name.
func ListRuns(wsRoot string) []RunInfo {
	workspaces, err := os.ReadDir(wsRoot)
	if err != nil {
		return nil
	}

	var runs []RunInfo
	for _, ws := range workspaces {
		if !ws.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(wsRoot, ws.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			runDir := filepath.Join(wsRoot, ws.Name(), e.Name())
			var meta Meta
			if blob, err := os.ReadFile(filepath.Join(runDir, "meta.json")); err == nil {
				if err := json.Unmarshal(blob, &meta); err != nil {
					meta = Meta{}
				}
			}
			createdAt := meta.CreatedAt
			if createdAt == "" {
				createdAt = e.Name()
			}
			runs = append(runs, RunInfo{
				WorkspaceName: ws.Name(),
				RunID:         e.Name(),
				Path:          runDir,
				CreatedAt:     createdAt,
				Meta:          meta,
			})
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt > runs[j].CreatedAt })
	return runs
}

// LoadRun reads a run directory back. Missing artifact files load as nil
// tables; a missing or corrupt meta.json loads as a zero Meta.
func LoadRun(runDir string) (Artifacts, Meta, error) {
	if st, err := os.Stat(runDir); err != nil || !st.IsDir() {
		return Artifacts{}, Meta{}, fmt.Errorf("run dir not found: %s", runDir)
	}

	var meta Meta
	if blob, err := os.ReadFile(filepath.Join(runDir, "meta.json")); err == nil {
		if err := json.Unmarshal(blob, &meta); err != nil {
			meta = Meta{}
		}
	}

	var art Artifacts
	for _, af := range artifactFiles {
		path := filepath.Join(runDir, af.name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tbl, err := tabular.ReadFile(path)
		if err != nil {
			continue
		}
		tbl.Name = af.name[:len(af.name)-len(".csv")]
		*af.get(&art) = tbl
	}
	return art, meta, nil
}

// DeleteRun removes a run directory and everything under it.
func DeleteRun(runDir string) error {
	st, err := os.Stat(runDir)
	if err != nil || !st.IsDir() {
		return nil
	}
	return os.RemoveAll(runDir)
}

// MakeRunZip packages a run directory into a zip archive for download or
// handoff.
func MakeRunZip(runDir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunHistory summarizes a run listing as a table for display or export.
func RunHistory(runs []RunInfo) *tabular.Table {
	t := &tabular.Table{
		Name: "run_history",
		Columns: []string{
			"workspace", "run_id", "created_at", "exceptions", "followups",
			"suppliers", "pct_unshipped", "pct_late_unshipped",
		},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			r.WorkspaceName,
			r.RunID,
			r.CreatedAt,
			strconv.Itoa(r.Meta.RowCounts["exceptions"]),
			strconv.Itoa(r.Meta.RowCounts["followups"]),
			strconv.Itoa(r.Meta.RowCounts["suppliers"]),
			fmtFloat(r.Meta.KPIs.PctUnshipped),
			fmtFloat(r.Meta.KPIs.PctLateUnshipped),
		})
	}
	return t
}
