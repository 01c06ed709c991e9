package store

import (
	"testing"
	"time"

	"dejavu/internal/types"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewLocalStore(t *testing.T) {
	s := newTestStore(t)
	if s.db == nil {
		t.Error("Database connection is nil")
	}
}

func TestPutGetDelete(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Errorf("Get(missing) = ok=%v err=%v, want absent without error", ok, err)
	}

	if err := s.Put("k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, ok, err := s.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("Get = %s, want {\"a\":1}", data)
	}

	// Put replaces.
	if err := s.Put("k", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Put replace failed: %v", err)
	}
	data, _, _ = s.Get("k")
	if string(data) != `{"a":2}` {
		t.Errorf("Get after replace = %s, want {\"a\":2}", data)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("key still present after Delete")
	}
}

func TestGoalsRoundTripPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	deadline := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	goals := []types.IndividualGoal{
		{ID: "g3", Title: "Ship schema", CategoryID: "cat-1", Order: 3, Deadline: &deadline},
		{ID: "g1", Title: "Draft plan", CategoryID: "cat-1", Order: 1, Completed: true},
		{ID: "g2", Title: "Review draft", CategoryID: "cat-1", Order: 2},
	}

	if err := s.SaveGoals("Career", types.GoalTypeOutput, goals); err != nil {
		t.Fatalf("SaveGoals failed: %v", err)
	}
	loaded, err := s.LoadGoals("Career", types.GoalTypeOutput)
	if err != nil {
		t.Fatalf("LoadGoals failed: %v", err)
	}
	if diff := cmp.Diff(goals, loaded); diff != "" {
		t.Errorf("goals round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadGoalsMissingYieldsEmpty(t *testing.T) {
	s := newTestStore(t)

	goals, err := s.LoadGoals("Nothing", types.GoalTypeInput)
	if err != nil {
		t.Fatalf("LoadGoals failed: %v", err)
	}
	if len(goals) != 0 {
		t.Errorf("LoadGoals = %d goals, want 0", len(goals))
	}
}

func TestProgressPathRoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	path := types.ProgressPath{
		ID:         "pp-1",
		CategoryID: "cat-1",
		WeeklyMilestones: []types.WeeklyMilestone{
			{WeekNumber: 1, Objectives: []string{"o"}, Actions: []string{"a"}, SuccessCriteria: []string{"s"}},
		},
		CurrentWeek: 1,
		TotalWeeks:  4,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.SaveProgressPath(path); err != nil {
		t.Fatalf("SaveProgressPath failed: %v", err)
	}
	loaded, ok, err := s.LoadProgressPath("cat-1")
	if err != nil || !ok {
		t.Fatalf("LoadProgressPath: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(path, loaded); diff != "" {
		t.Errorf("progress path round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSharedContextRoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	data := types.SharedContextData{
		Tabs: map[string]types.ChatContext{
			"central": {
				TabID: "central",
				Title: "Central Hub",
				Type:  types.TabCentral,
				Messages: []types.ChatMessage{
					{ID: "m1", Text: "hello", Sender: types.SenderUser, Timestamp: now, TabID: "central"},
				},
				LastUpdated: now,
			},
		},
		UpdatedAt: now,
	}

	if err := s.SaveSharedContext(data); err != nil {
		t.Fatalf("SaveSharedContext failed: %v", err)
	}
	loaded, ok, err := s.LoadSharedContext()
	if err != nil || !ok {
		t.Fatalf("LoadSharedContext: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(data, loaded); diff != "" {
		t.Errorf("shared context round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryCreatedTimestamp(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	if err := s.MarkCategoryCreated("Health", types.GoalTypeInput, at); err != nil {
		t.Fatalf("MarkCategoryCreated failed: %v", err)
	}

	got, ok, err := s.CategoryCreatedAt("Health", types.GoalTypeInput)
	if err != nil || !ok {
		t.Fatalf("CategoryCreatedAt: ok=%v err=%v", ok, err)
	}
	if !got.Equal(at) {
		t.Errorf("CategoryCreatedAt = %v, want %v", got, at)
	}

	if _, ok, _ := s.CategoryCreatedAt("Absent", types.GoalTypeOutput); ok {
		t.Error("CategoryCreatedAt returned ok for absent record")
	}
}

func TestDarkModeDefaultsFalse(t *testing.T) {
	s := newTestStore(t)

	enabled, err := s.DarkMode()
	if err != nil {
		t.Fatalf("DarkMode failed: %v", err)
	}
	if enabled {
		t.Error("DarkMode default = true, want false")
	}

	if err := s.SetDarkMode(true); err != nil {
		t.Fatalf("SetDarkMode failed: %v", err)
	}
	enabled, _ = s.DarkMode()
	if !enabled {
		t.Error("DarkMode = false after SetDarkMode(true)")
	}
}

func TestDailySummaryKeyedByDate(t *testing.T) {
	s := newTestStore(t)

	summary := types.DailySummary{
		Date:       "2026-08-19",
		KeyActions: []string{"finish my database schema today"},
	}
	if err := s.SaveDailySummary(summary); err != nil {
		t.Fatalf("SaveDailySummary failed: %v", err)
	}

	loaded, ok, err := s.LoadDailySummary("2026-08-19")
	if err != nil || !ok {
		t.Fatalf("LoadDailySummary: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(summary, loaded); diff != "" {
		t.Errorf("daily summary mismatch (-want +got):\n%s", diff)
	}
}

func TestResetAll(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetDarkMode(true); err != nil {
		t.Fatalf("SetDarkMode failed: %v", err)
	}
	if err := s.SaveGoals("X", types.GoalTypeInput, []types.IndividualGoal{{ID: "g"}}); err != nil {
		t.Fatalf("SaveGoals failed: %v", err)
	}

	if err := s.ResetAll(); err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}

	keys, err := s.Keys("")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys after ResetAll = %v, want empty", keys)
	}
}

func TestKeysPrefix(t *testing.T) {
	s := newTestStore(t)

	_ = s.SaveDailySummary(types.DailySummary{Date: "2026-08-18"})
	_ = s.SaveDailySummary(types.DailySummary{Date: "2026-08-19"})
	_ = s.SetDarkMode(false)

	keys, err := s.Keys("daily_summary_")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys(daily_summary_) = %v, want 2 entries", keys)
	}
}
