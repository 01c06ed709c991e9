// Package planner derives weekly-milestone progress paths from category
// declarations. Generation is a pure function of (category, now); the path
// is regenerable at any time and never authoritative.
package planner

import (
	"fmt"
	"math"
	"time"

	"dejavu/internal/events"
	"dejavu/internal/logging"
	"dejavu/internal/store"
	"dejavu/internal/types"
)

// minWeeks is the plan floor: a category with no outputs, or outputs due
// immediately, still gets a 4-week ramp.
const minWeeks = 4

// Generate derives the weekly plan for a category. Deterministic: identical
// category data and the same now produce identical output.
func Generate(category types.Category, now time.Time) types.ProgressPath {
	totalWeeks := weeksUntilDeadline(category, now)

	milestones := make([]types.WeeklyMilestone, 0, totalWeeks)
	for week := 1; week <= totalWeeks; week++ {
		milestones = append(milestones, milestoneFor(category, week, totalWeeks))
	}

	return types.ProgressPath{
		ID:               "path_" + category.ID,
		CategoryID:       category.ID,
		WeeklyMilestones: milestones,
		CurrentWeek:      1,
		TotalWeeks:       totalWeeks,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// weeksUntilDeadline spans now to the latest output target date, floored at
// minWeeks. No outputs means the deadline is now, which also yields the floor.
func weeksUntilDeadline(category types.Category, now time.Time) int {
	deadline := now
	for _, out := range category.Outputs {
		if out.TargetDate.After(deadline) {
			deadline = out.TargetDate
		}
	}

	days := deadline.Sub(now).Hours() / 24
	weeks := int(math.Ceil(days / 7))
	if weeks < minWeeks {
		weeks = minWeeks
	}
	return weeks
}

// milestoneFor applies the fixed rule table keyed by category type and the
// health/strength sub-tags present on the declared inputs.
func milestoneFor(category types.Category, week, totalWeeks int) types.WeeklyMilestone {
	m := types.WeeklyMilestone{WeekNumber: week}

	switch category.Type {
	case types.GoalTypeInput:
		m.Objectives = append(m.Objectives,
			fmt.Sprintf("Week %d: reinforce the %s habit loop", week, category.Title))
		m.Actions = append(m.Actions,
			"Schedule the habit at a fixed time each day",
			"Log every completion immediately")
		m.SuccessCriteria = append(m.SuccessCriteria,
			fmt.Sprintf("Habit performed at least %d days this week", habitDaysTarget(week, totalWeeks)))
	default:
		pct := int(math.Round(float64(week) / float64(totalWeeks) * 100))
		m.Objectives = append(m.Objectives,
			fmt.Sprintf("Week %d: reach %d%% of the %s goal", week, pct, category.Title))
		m.Actions = append(m.Actions,
			"Break the remaining work into daily tasks",
			"Review blockers at the end of the week")
		m.SuccessCriteria = append(m.SuccessCriteria,
			fmt.Sprintf("Measured progress at or above %d%%", pct))
	}

	for _, tag := range inputTags(category) {
		switch tag {
		case types.InputTagHealth:
			m.Actions = append(m.Actions, "Protect sleep, nutrition, and exercise windows")
		case types.InputTagStrength:
			m.Actions = append(m.Actions, "Block focused practice time on the core skill")
		}
	}

	return m
}

// habitDaysTarget ramps from 3 days/week up to 7 across the plan.
func habitDaysTarget(week, totalWeeks int) int {
	if totalWeeks <= 1 {
		return 7
	}
	target := 3 + int(math.Round(float64(week-1)/float64(totalWeeks-1)*4))
	if target > 7 {
		target = 7
	}
	return target
}

// inputTags returns the distinct sub-tags declared on the category inputs,
// in first-seen order.
func inputTags(category types.Category) []types.InputTag {
	seen := make(map[types.InputTag]bool)
	var tags []types.InputTag
	for _, in := range category.Inputs {
		if in.Tag == "" || seen[in.Tag] {
			continue
		}
		seen[in.Tag] = true
		tags = append(tags, in.Tag)
	}
	return tags
}

// =============================================================================
// PLANNER SERVICE
// =============================================================================

// Planner persists generated paths and reports outcomes on the event bus.
type Planner struct {
	local *store.LocalStore
	bus   *events.Bus
}

// New creates a Planner bound to the given store and bus.
func New(local *store.LocalStore, bus *events.Bus) *Planner {
	return &Planner{local: local, bus: bus}
}

// CreatePath generates, persists, and announces a category's plan. Storage
// failure is reported as a PROGRESS_PATH_ERROR event carrying user-facing
// remediation text; the raw error is logged, not propagated to the UI path.
func (p *Planner) CreatePath(category types.Category, now time.Time) (types.ProgressPath, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "CreatePath")
	defer timer.Stop()

	path := Generate(category, now)

	if err := p.local.SaveProgressPath(path); err != nil {
		logging.Get(logging.CategoryPlanner).Error("Failed to save progress path for %s: %v", category.ID, err)
		p.bus.Emit(events.Event{
			Topic:      events.TopicProgressPathError,
			CategoryID: category.ID,
			Message:    "Your weekly plan could not be saved. Free up storage or use Reset All in settings, then regenerate the plan.",
		})
		return types.ProgressPath{}, fmt.Errorf("failed to save progress path: %w", err)
	}

	logging.Planner("Created progress path for category=%s weeks=%d", category.ID, path.TotalWeeks)
	p.bus.Emit(events.Event{
		Topic:      events.TopicProgressPathCreated,
		CategoryID: category.ID,
		Payload:    path,
	})
	return path, nil
}
