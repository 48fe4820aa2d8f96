// Package triage ranks reconciliation output for operator attention: a
// per-exception urgency level, a per-supplier SLA escalation band over open
// lines, a supplier scorecard, and a daily action list.
package triage

import (
	"math"
	"sort"
	"strings"
	"time"

	"opsdeck/internal/logging"
	"opsdeck/internal/model"
)

// Term lists for the urgency cascade. First-match-wins: critical is checked
// first and wins regardless of later-matching terms. The match runs over the
// concatenated issue_type, explanation, next_action, customer_risk, and
// line_status text, case-folded.
var (
	criticalTerms = []string{
		"late", "past due", "overdue", "late unshipped",
		"missing tracking", "no tracking", "tracking missing",
		"carrier exception", "exception", "lost", "stuck", "seized",
		"returned to sender", "address missing", "missing address",
	}
	highTerms = []string{
		"partial", "partial shipment",
		"mismatch", "quantity mismatch",
		"invalid tracking", "tracking invalid",
		"carrier unknown", "unknown carrier",
	}
	mediumTerms = []string{"verify", "check", "confirm", "format", "invalid", "missing", "contact"}
)

func containsAny(blob string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(blob, t) {
			return true
		}
	}
	return false
}

// Classify returns the urgency level for one exception.
func Classify(e model.Exception) string {
	blob := strings.ToLower(strings.Join([]string{
		e.IssueType, e.Explanation, e.NextAction, e.CustomerRisk, e.LineStatus,
	}, " "))

	switch {
	case containsAny(blob, criticalTerms):
		return model.UrgencyCritical
	case containsAny(blob, highTerms):
		return model.UrgencyHigh
	case containsAny(blob, mediumTerms):
		return model.UrgencyMedium
	}
	return model.UrgencyLow
}

// AddUrgency fills the Urgency field on every exception in place.
func AddUrgency(exceptions []model.Exception) {
	for i := range exceptions {
		exceptions[i].Urgency = Classify(exceptions[i])
	}
}

// Config tunes the SLA escalation thresholds.
type Config struct {
	PromisedShipDays int // fallback promise when a line has no due date
	GraceDays        int // added to every due date
	AtRiskHours      int // width of the at-risk window past due
}

// DefaultConfig matches a three-day ship promise with a 72h at-risk window.
func DefaultConfig() Config {
	return Config{PromisedShipDays: 3, GraceDays: 0, AtRiskHours: 72}
}

func bucketRank(bucket string) int {
	switch bucket {
	case model.BucketEscalate:
		return 5
	case model.BucketFirm:
		return 4
	case model.BucketAtRisk:
		return 3
	case model.BucketReminder:
		return 2
	case model.BucketOnTrack:
		return 1
	}
	return 0
}

func bucketOf(daysToDue float64, known bool, atRiskDays float64) string {
	if !known {
		return model.BucketUnknown
	}
	switch {
	case daysToDue < -3:
		return model.BucketEscalate
	case daysToDue < 0:
		return model.BucketFirm
	case daysToDue <= atRiskDays:
		return model.BucketAtRisk
	case daysToDue <= 7:
		return model.BucketReminder
	}
	return model.BucketOnTrack
}

// isOpen reports whether a line still needs supplier action.
func isOpen(l model.LineStatus) bool {
	if l.Status == model.StatusUnshipped || l.Status == model.StatusPartiallyShipped {
		return true
	}
	return strings.Contains(l.IssueType, model.IssueMissingTracking)
}

func supplierOrUnknown(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown Supplier"
	}
	return name
}

// BuildEscalations buckets every open line by distance to its SLA due date
// and summarizes per supplier. It also stamps worst_escalation onto the
// followups, defaulting to On Track for suppliers with no open lines.
func BuildEscalations(lines []model.LineStatus, followups []model.Followup, cfg Config, now time.Time) ([]model.EscalationBand, []model.Followup) {
	now = now.UTC()
	atRiskDays := float64(cfg.AtRiskHours) / 24

	type acc struct {
		counts map[string]int
		total  int
	}
	accs := make(map[string]*acc)
	for _, l := range lines {
		if !isOpen(l) {
			continue
		}

		due := l.SLADueDate
		if due.IsZero() && !l.OrderCreatedAt.IsZero() {
			due = l.OrderCreatedAt.AddDate(0, 0, cfg.PromisedShipDays)
		}
		known := !due.IsZero()
		if known && cfg.GraceDays != 0 {
			due = due.AddDate(0, 0, cfg.GraceDays)
		}
		var daysToDue float64
		if known {
			daysToDue = due.Sub(now).Hours() / 24
		}

		supplier := supplierOrUnknown(l.SupplierName)
		a := accs[supplier]
		if a == nil {
			a = &acc{counts: make(map[string]int)}
			accs[supplier] = a
		}
		a.counts[bucketOf(daysToDue, known, atRiskDays)]++
		a.total++
	}

	bands := make([]model.EscalationBand, 0, len(accs))
	for supplier, a := range accs {
		worst := model.BucketUnknown
		for _, b := range model.EscalationBuckets {
			if a.counts[b] > 0 {
				worst = b
				break
			}
		}
		bands = append(bands, model.EscalationBand{
			SupplierName:    supplier,
			WorstEscalation: worst,
			OpenLinesTotal:  a.total,
			Counts:          a.counts,
		})
	}
	sort.Slice(bands, func(i, j int) bool {
		ri, rj := bucketRank(bands[i].WorstEscalation), bucketRank(bands[j].WorstEscalation)
		if ri != rj {
			return ri > rj
		}
		if bands[i].OpenLinesTotal != bands[j].OpenLinesTotal {
			return bands[i].OpenLinesTotal > bands[j].OpenLinesTotal
		}
		return bands[i].SupplierName < bands[j].SupplierName
	})

	worstBy := make(map[string]string, len(bands))
	for _, b := range bands {
		worstBy[b.SupplierName] = b.WorstEscalation
	}
	updated := make([]model.Followup, len(followups))
	copy(updated, followups)
	for i := range updated {
		if w, ok := worstBy[updated[i].SupplierName]; ok {
			updated[i].WorstEscalation = w
		} else {
			updated[i].WorstEscalation = model.BucketOnTrack
		}
	}

	logging.Triage("escalations: %d suppliers with open lines", len(bands))
	return bands, updated
}

// scorecard flag term lists, matched over issue_type + explanation +
// next_action.
var (
	missingTrackingFlagTerms = []string{"missing tracking", "no tracking", "tracking missing", "invalid tracking"}
	lateFlagTerms            = []string{"late", "overdue", "past due", "late unshipped"}
	carrierFlagTerms         = []string{"carrier exception", "exception", "stuck", "lost", "returned to sender"}
)

// BuildScorecard summarizes per-supplier reliability for one run. Lines with
// no supplier are excluded: an unshipped line blames nobody in particular.
func BuildScorecard(lines []model.LineStatus, exceptions []model.Exception) []model.SupplierScore {
	totals := make(map[string]int)
	for _, l := range lines {
		if strings.TrimSpace(l.SupplierName) == "" {
			continue
		}
		totals[l.SupplierName]++
	}
	if len(totals) == 0 {
		return nil
	}

	scores := make(map[string]*model.SupplierScore, len(totals))
	for supplier, n := range totals {
		scores[supplier] = &model.SupplierScore{SupplierName: supplier, TotalLines: n}
	}

	for _, e := range exceptions {
		s := scores[e.SupplierName]
		if s == nil {
			continue
		}
		s.ExceptionLines++

		urgency := e.Urgency
		if urgency == "" {
			urgency = Classify(e)
		}
		switch urgency {
		case model.UrgencyCritical:
			s.Critical++
		case model.UrgencyHigh:
			s.High++
		}

		blob := strings.ToLower(strings.Join([]string{e.IssueType, e.Explanation, e.NextAction}, " "))
		if containsAny(blob, missingTrackingFlagTerms) {
			s.MissingTrackingFlags++
		}
		if containsAny(blob, lateFlagTerms) {
			s.LateFlags++
		}
		if containsAny(blob, carrierFlagTerms) {
			s.CarrierExceptionFlags++
		}
	}

	out := make([]model.SupplierScore, 0, len(scores))
	for _, s := range scores {
		s.ExceptionRate = math.Round(float64(s.ExceptionLines)/float64(s.TotalLines)*10000) / 10000
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExceptionRate != out[j].ExceptionRate {
			return out[i].ExceptionRate > out[j].ExceptionRate
		}
		if out[i].Critical != out[j].Critical {
			return out[i].Critical > out[j].Critical
		}
		if out[i].High != out[j].High {
			return out[i].High > out[j].High
		}
		return out[i].SupplierName < out[j].SupplierName
	})
	return out
}
