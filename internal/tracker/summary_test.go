package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var day = time.Date(2026, 8, 19, 18, 0, 0, 0, time.UTC)

func TestExtractDailySummaryKeyActions(t *testing.T) {
	tr := New()

	summary := tr.ExtractDailySummary("I did finish my database schema today", day)

	assert.Equal(t, "2026-08-19", summary.Date)
	assert.Contains(t, summary.KeyActions, "finish my database schema today")
}

func TestExtractDailySummaryAllBuckets(t *testing.T) {
	tr := New()

	text := "I completed the login flow. I struggled with the API rate limits. " +
		"I achieved my step target. I learned that indexes matter. Tomorrow I will start the frontend."
	summary := tr.ExtractDailySummary(text, day)

	assert.Contains(t, summary.KeyActions, "the login flow")
	assert.Contains(t, summary.Struggles, "the API rate limits")
	assert.Contains(t, summary.Wins, "my step target")
	assert.Contains(t, summary.Insights, "indexes matter")
	assert.Contains(t, summary.TomorrowPlans, "start the frontend")
}

func TestExtractDailySummaryPlanTo(t *testing.T) {
	tr := New()

	summary := tr.ExtractDailySummary("I plan to review my notes", day)
	assert.Contains(t, summary.TomorrowPlans, "review my notes")
}

func TestExtractDailySummaryMissIsEmpty(t *testing.T) {
	tr := New()

	summary := tr.ExtractDailySummary("Nothing notable here", day)
	assert.True(t, summary.Empty())
	assert.Equal(t, "2026-08-19", summary.Date)
}

func TestMergeDailySummaryAppends(t *testing.T) {
	existing := New().ExtractDailySummary("I completed the schema", day)
	update := New().ExtractDailySummary("I completed the deploy", day)

	merged := MergeDailySummary(existing, update)
	assert.Len(t, merged.KeyActions, 2)
	assert.Equal(t, "2026-08-19", merged.Date)
}
