// Package types provides shared type definitions used across dejavu packages.
// This package exists to break import cycles between the store, tracker, and
// gateway layers. Types here are plain data structures with no dependencies
// on the rest of the module.
package types

import "time"

// =============================================================================
// CATEGORIES AND GOALS
// =============================================================================

// GoalType distinguishes resource/habit categories from result categories.
type GoalType string

const (
	GoalTypeInput  GoalType = "input"
	GoalTypeOutput GoalType = "output"
)

// InputTag is the coarse sub-classification applied to extracted inputs.
type InputTag string

const (
	InputTagHealth   InputTag = "health"
	InputTagStrength InputTag = "strength"
)

// Goal is a category summary card: one row on the goals overview.
type Goal struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	GoalCount int      `json:"goalCount"`
	Type      GoalType `json:"type"`
}

// IndividualGoal is one actionable item within a category.
// CategoryID must reference an existing category. Order is a user-visible
// sequencing hint and is not enforced unique.
type IndividualGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
	CategoryID  string     `json:"categoryId"`
	Order       int        `json:"order"`
}

// CategoryInput is a declared resource/habit inside a category.
type CategoryInput struct {
	Title string   `json:"title"`
	Tag   InputTag `json:"tag,omitempty"`
}

// CategoryOutput is a declared result inside a category. TargetDate drives
// the progress-path deadline math.
type CategoryOutput struct {
	Title      string    `json:"title"`
	TargetDate time.Time `json:"targetDate"`
}

// Category is a user-declared life-domain bucket.
type Category struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Type        GoalType         `json:"type"`
	Description string           `json:"description,omitempty"`
	Inputs      []CategoryInput  `json:"inputs,omitempty"`
	Outputs     []CategoryOutput `json:"outputs,omitempty"`
}

// =============================================================================
// CHAT
// =============================================================================

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// TabType distinguishes the central hub from per-category chat surfaces.
type TabType string

const (
	TabCentral  TabType = "central"
	TabCategory TabType = "category"
)

// ChatType selects the coaching script applied to a conversation.
type ChatType string

const (
	ChatSetup    ChatType = "setup"
	ChatCentral  ChatType = "central"
	ChatCategory ChatType = "category"
)

// ChatMessage is one transcript entry. Append-only within a tab's history.
type ChatMessage struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Sender     Sender    `json:"sender"`
	Timestamp  time.Time `json:"timestamp"`
	TabID      string    `json:"tabId"`
	CategoryID string    `json:"categoryId,omitempty"`
}

// ChatContext is one open chat surface and its history, keyed by TabID in
// the shared store.
type ChatContext struct {
	TabID       string        `json:"tabId"`
	Title       string        `json:"title"`
	Type        TabType       `json:"type"`
	CategoryID  string        `json:"categoryId,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// SharedContextData is the single persisted blob holding all open tabs.
type SharedContextData struct {
	Tabs      map[string]ChatContext `json:"tabs"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// =============================================================================
// CONVERSATION STAGE
// =============================================================================

// Stage is the coarse conversation lifecycle phase.
type Stage string

const (
	StageSetup     Stage = "SETUP"
	StageExecution Stage = "EXECUTION"
	StageReview    Stage = "REVIEW"
)

// StageInfo is the tracker's verdict for one transcript.
type StageInfo struct {
	MainStage    Stage   `json:"mainStage"`
	Progress     float64 `json:"progress"`
	CurrentPhase int     `json:"currentPhase,omitempty"` // 1..5, setup chats only
}

// DailySummary is the heuristic per-day extraction bucket, keyed by ISO date.
type DailySummary struct {
	Date          string   `json:"date"` // YYYY-MM-DD
	KeyActions    []string `json:"keyActions,omitempty"`
	Struggles     []string `json:"struggles,omitempty"`
	Wins          []string `json:"wins,omitempty"`
	Insights      []string `json:"insights,omitempty"`
	TomorrowPlans []string `json:"tomorrowPlans,omitempty"`
}

// Empty reports whether the extraction found nothing at all.
func (d DailySummary) Empty() bool {
	return len(d.KeyActions) == 0 && len(d.Struggles) == 0 &&
		len(d.Wins) == 0 && len(d.Insights) == 0 && len(d.TomorrowPlans) == 0
}

// =============================================================================
// PROGRESS PATH
// =============================================================================

// WeeklyMilestone is one derived week of a progress path.
type WeeklyMilestone struct {
	WeekNumber      int      `json:"weekNumber"`
	Objectives      []string `json:"objectives"`
	Actions         []string `json:"actions"`
	SuccessCriteria []string `json:"successCriteria"`
	Completed       bool     `json:"completed"`
	Notes           string   `json:"notes,omitempty"`
}

// ProgressPath is the derived weekly-milestone plan for one category.
// It is regenerable and never authoritative.
type ProgressPath struct {
	ID               string            `json:"id"`
	CategoryID       string            `json:"categoryId"`
	WeeklyMilestones []WeeklyMilestone `json:"weeklyMilestones"`
	CurrentWeek      int               `json:"currentWeek"`
	TotalWeeks       int               `json:"totalWeeks"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// =============================================================================
// VISION FILE
// =============================================================================

// VisionInput is one extracted resource/habit item.
type VisionInput struct {
	Title string   `json:"title"`
	Tag   InputTag `json:"tag"`
}

// VisionOutput is one extracted goal item with a synthetic target date.
type VisionOutput struct {
	Title      string    `json:"title"`
	TargetDate time.Time `json:"targetDate"`
}

// VisionDraft is the parser's best-effort extraction from one AI response.
type VisionDraft struct {
	Inputs  []VisionInput  `json:"inputs"`
	Outputs []VisionOutput `json:"outputs"`
}

// Empty reports whether the draft carries no extracted items.
func (v VisionDraft) Empty() bool {
	return len(v.Inputs) == 0 && len(v.Outputs) == 0
}

// VisionFile is the aggregated contract artifact extracted from the setup
// conversation. A single instance exists per user and is overwritten
// wholesale on regeneration.
type VisionFile struct {
	Inputs         []VisionInput  `json:"inputs"`
	Outputs        []VisionOutput `json:"outputs"`
	PainPoints     []string       `json:"painPoints,omitempty"`
	Constraints    []string       `json:"constraints,omitempty"`
	SupportSystems []string       `json:"supportSystems,omitempty"`
	Confidence     string         `json:"confidence,omitempty"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}
