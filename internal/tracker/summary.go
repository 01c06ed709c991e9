package tracker

import (
	"regexp"
	"strings"
	"time"

	"dejavu/internal/logging"
	"dejavu/internal/types"
)

// Clause extractors for the daily summary buckets. Each regex captures the
// tail of the clause after its trigger words. These are deliberately loose;
// a miss just leaves the bucket empty.
var (
	actionRe   = regexp.MustCompile(`(?i)\b(?:did|completed|finished)\s+(.+)`)
	struggleRe = regexp.MustCompile(`(?i)\b(?:struggl\w*\s+with|difficult\w*\s+(?:with\s+)?)(.+)`)
	winRe      = regexp.MustCompile(`(?i)\b(?:success\w*\s+(?:with\s+)?|achieved\s+)(.+)`)
	insightRe  = regexp.MustCompile(`(?i)\b(?:learned|realized)\s+(?:that\s+)?(.+)`)
	planRe     = regexp.MustCompile(`(?i)\b(?:tomorrow\s+(?:i(?:'ll| will)?\s+)?|plan(?:ning)?\s+to\s+)(.+)`)
)

// ExtractDailySummary regex-mines one message for did/struggled/achieved/
// learned/tomorrow clauses and returns the bucket for the given day.
// An empty result is normal, not an error.
func (t *Tracker) ExtractDailySummary(text string, day time.Time) types.DailySummary {
	summary := types.DailySummary{Date: day.Format("2006-01-02")}

	for _, clause := range clauses(text) {
		if m := actionRe.FindStringSubmatch(clause); m != nil {
			summary.KeyActions = append(summary.KeyActions, trimClause(m[1]))
		}
		if m := struggleRe.FindStringSubmatch(clause); m != nil {
			summary.Struggles = append(summary.Struggles, trimClause(m[1]))
		}
		if m := winRe.FindStringSubmatch(clause); m != nil {
			summary.Wins = append(summary.Wins, trimClause(m[1]))
		}
		if m := insightRe.FindStringSubmatch(clause); m != nil {
			summary.Insights = append(summary.Insights, trimClause(m[1]))
		}
		if m := planRe.FindStringSubmatch(clause); m != nil {
			summary.TomorrowPlans = append(summary.TomorrowPlans, trimClause(m[1]))
		}
	}

	if !summary.Empty() {
		logging.TrackerDebug("ExtractDailySummary: date=%s actions=%d struggles=%d wins=%d",
			summary.Date, len(summary.KeyActions), len(summary.Struggles), len(summary.Wins))
	}
	return summary
}

// MergeDailySummary appends the new extraction onto an existing bucket for
// the same date. Duplicates are kept; this is bookkeeping, not dedup.
func MergeDailySummary(existing, update types.DailySummary) types.DailySummary {
	existing.Date = update.Date
	existing.KeyActions = append(existing.KeyActions, update.KeyActions...)
	existing.Struggles = append(existing.Struggles, update.Struggles...)
	existing.Wins = append(existing.Wins, update.Wins...)
	existing.Insights = append(existing.Insights, update.Insights...)
	existing.TomorrowPlans = append(existing.TomorrowPlans, update.TomorrowPlans...)
	return existing
}

func clauses(text string) []string {
	split := func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	}
	var out []string
	for _, c := range strings.FieldsFunc(text, split) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func trimClause(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",")
}
