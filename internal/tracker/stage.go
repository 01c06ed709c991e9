// Package tracker infers the coarse conversation stage and per-day summary
// buckets from chat transcripts. Everything here is heuristic keyword and
// regex matching; false positives and negatives are expected and acceptable,
// and a miss never raises an error or blocks a send. The narrow Tracker
// surface exists so the heuristics can be replaced with a real parser later
// without touching callers.
package tracker

import (
	"strings"
	"time"

	"dejavu/internal/logging"
	"dejavu/internal/types"
)

// phase is one setup-conversation coaching phase: a set of keyword groups.
// A phase is "started" when any group matches a user message and "complete"
// when every group does.
type phase struct {
	name   string
	groups [][]string
}

// The five setup phases in script order. Each maps to a fixed 20% band.
var setupPhases = []phase{
	{
		name: "pain_points",
		groups: [][]string{
			{"pain", "frustrat", "unhappy", "tired of"},
			{"stuck", "problem", "struggle"},
		},
	},
	{
		name: "constraints",
		groups: [][]string{
			{"constraint", "limit", "restrict"},
			{"time", "schedule", "busy", "budget", "money"},
		},
	},
	{
		name: "cost_confidence",
		groups: [][]string{
			{"cost", "sacrifice", "give up", "trade"},
			{"confident", "confidence", "believe", "sure"},
		},
	},
	{
		name: "inputs_outputs",
		groups: [][]string{
			{"input", "habit", "routine", "daily"},
			{"output", "goal", "result", "outcome", "target"},
		},
	},
	{
		name: "support_commitment",
		groups: [][]string{
			{"support", "help", "accountab"},
			{"strategy", "plan", "approach"},
			{"commit", "promise", "dedicat"},
		},
	},
}

// Execution progress is calendar-driven: sixths of a Monday-anchored week.
// Saturday is the review day and resets progress to zero.
var weekdayProgress = map[time.Weekday]float64{
	time.Monday:    16.67,
	time.Tuesday:   33.33,
	time.Wednesday: 50,
	time.Thursday:  66.67,
	time.Friday:    83.33,
	time.Sunday:    100,
}

// Tracker is the default stage inferrer. It is stateless; the caller passes
// the clock so tests can pin the weekday.
type Tracker struct{}

// New returns a Tracker.
func New() *Tracker {
	return &Tracker{}
}

// InferStage classifies one transcript. Setup chats walk the five-phase
// keyword script; central and category chats run on calendar cadence and
// ignore transcript content entirely (the weekday override deliberately
// masks any keyword-derived progress once setup is done).
func (t *Tracker) InferStage(chatType types.ChatType, messages []types.ChatMessage, now time.Time) types.StageInfo {
	if chatType == types.ChatSetup {
		return setupStage(messages)
	}

	if now.Weekday() == time.Saturday {
		return types.StageInfo{MainStage: types.StageReview, Progress: 0}
	}
	return types.StageInfo{
		MainStage: types.StageExecution,
		Progress:  weekdayProgress[now.Weekday()],
	}
}

// setupStage maps keyword coverage to the fixed percentage bands:
// phase N owns (N-1)*20..N*20, with "started" landing at the band floor
// plus 10 and "complete" at the band ceiling.
func setupStage(messages []types.ChatMessage) types.StageInfo {
	corpus := userCorpus(messages)

	completed := 0
	started := false
	for _, p := range setupPhases {
		hits := 0
		for _, group := range p.groups {
			if groupMatches(corpus, group) {
				hits++
			}
		}
		if hits == len(p.groups) {
			completed++
			continue
		}
		started = hits > 0
		break
	}

	info := types.StageInfo{MainStage: types.StageSetup}
	if completed == len(setupPhases) {
		info.Progress = 100
		info.CurrentPhase = len(setupPhases)
		return info
	}

	info.CurrentPhase = completed + 1
	info.Progress = float64(completed) * 20
	if started {
		info.Progress += 10
	}

	logging.TrackerDebug("setupStage: phase=%d progress=%.0f", info.CurrentPhase, info.Progress)
	return info
}

// userCorpus concatenates all user messages, lowercased.
func userCorpus(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Sender != types.SenderUser {
			continue
		}
		b.WriteString(strings.ToLower(msg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func groupMatches(corpus string, group []string) bool {
	for _, w := range group {
		if strings.Contains(corpus, w) {
			return true
		}
	}
	return false
}

// TemplateFor names the prompt template a stage selects. The gateway keys
// its system prompts on this.
func TemplateFor(stage types.Stage) string {
	switch stage {
	case types.StageSetup:
		return "setup"
	case types.StageReview:
		return "review"
	default:
		return "execution"
	}
}
