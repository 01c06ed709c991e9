package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dejavu/internal/types"
)

// Well-known record keys and key builders. The key shapes are part of the
// on-device storage contract and must not change between releases.

const (
	KeySharedContext = "shared_context_data"
	KeyDarkMode      = "dark_mode"
	KeyVisionFile    = "vision_file"
	KeyCategories    = "categories"
)

// GoalsKey builds the per-category goal list key.
func GoalsKey(categoryTitle string, categoryType types.GoalType) string {
	return fmt.Sprintf("goals_%s_%s", categoryTitle, categoryType)
}

// ProgressPathKey builds the per-category progress path key.
func ProgressPathKey(categoryID string) string {
	return fmt.Sprintf("progress_path_%s", categoryID)
}

// CategoryCreatedKey builds the category creation timestamp key.
func CategoryCreatedKey(title string, categoryType types.GoalType) string {
	return fmt.Sprintf("category_created_%s_%s", title, categoryType)
}

// DailySummaryKey builds the per-day summary key. Date is YYYY-MM-DD.
func DailySummaryKey(date string) string {
	return fmt.Sprintf("daily_summary_%s", date)
}

// putJSON marshals v and stores it under key.
func (s *LocalStore) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Put(key, data)
}

// getJSON loads key into v. Returns false when the key is absent.
func (s *LocalStore) getJSON(key string, v interface{}) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// =============================================================================
// GOALS
// =============================================================================

// SaveGoals persists the ordered goal list for a category.
func (s *LocalStore) SaveGoals(title string, categoryType types.GoalType, goals []types.IndividualGoal) error {
	return s.putJSON(GoalsKey(title, categoryType), goals)
}

// LoadGoals returns the ordered goal list for a category. A missing record
// yields an empty list, not an error.
func (s *LocalStore) LoadGoals(title string, categoryType types.GoalType) ([]types.IndividualGoal, error) {
	var goals []types.IndividualGoal
	if _, err := s.getJSON(GoalsKey(title, categoryType), &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// =============================================================================
// PROGRESS PATHS
// =============================================================================

// SaveProgressPath persists one category's derived plan.
func (s *LocalStore) SaveProgressPath(path types.ProgressPath) error {
	return s.putJSON(ProgressPathKey(path.CategoryID), path)
}

// LoadProgressPath returns the plan for a category, if any.
func (s *LocalStore) LoadProgressPath(categoryID string) (types.ProgressPath, bool, error) {
	var path types.ProgressPath
	ok, err := s.getJSON(ProgressPathKey(categoryID), &path)
	return path, ok, err
}

// =============================================================================
// SHARED CHAT CONTEXT
// =============================================================================

// SaveSharedContext persists the whole-tabs blob. Last write wins: racing
// writers are not serialized beyond the single-statement atomicity of Put.
func (s *LocalStore) SaveSharedContext(data types.SharedContextData) error {
	return s.putJSON(KeySharedContext, data)
}

// LoadSharedContext returns the persisted tabs blob, if any.
func (s *LocalStore) LoadSharedContext() (types.SharedContextData, bool, error) {
	var data types.SharedContextData
	ok, err := s.getJSON(KeySharedContext, &data)
	return data, ok, err
}

// =============================================================================
// CATEGORY BOOKKEEPING
// =============================================================================

// SaveCategories persists the category index.
func (s *LocalStore) SaveCategories(categories []types.Category) error {
	return s.putJSON(KeyCategories, categories)
}

// LoadCategories returns the category index. Missing yields empty.
func (s *LocalStore) LoadCategories() ([]types.Category, error) {
	var categories []types.Category
	if _, err := s.getJSON(KeyCategories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// MarkCategoryCreated records when a category was first created.
func (s *LocalStore) MarkCategoryCreated(title string, categoryType types.GoalType, at time.Time) error {
	return s.Put(CategoryCreatedKey(title, categoryType), []byte(strconv.Quote(at.Format(time.RFC3339))))
}

// CategoryCreatedAt returns the creation timestamp recorded for a category.
func (s *LocalStore) CategoryCreatedAt(title string, categoryType types.GoalType) (time.Time, bool, error) {
	data, ok, err := s.Get(CategoryCreatedKey(title, categoryType))
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed category_created record: %w", err)
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed category_created timestamp: %w", err)
	}
	return at, true, nil
}

// =============================================================================
// VISION FILE AND DAILY SUMMARIES
// =============================================================================

// SaveVisionFile overwrites the single vision file wholesale.
func (s *LocalStore) SaveVisionFile(vf types.VisionFile) error {
	return s.putJSON(KeyVisionFile, vf)
}

// LoadVisionFile returns the vision file, if one has been generated.
func (s *LocalStore) LoadVisionFile() (types.VisionFile, bool, error) {
	var vf types.VisionFile
	ok, err := s.getJSON(KeyVisionFile, &vf)
	return vf, ok, err
}

// SaveDailySummary persists one day's extraction bucket.
func (s *LocalStore) SaveDailySummary(summary types.DailySummary) error {
	return s.putJSON(DailySummaryKey(summary.Date), summary)
}

// LoadDailySummary returns the bucket for one ISO date.
func (s *LocalStore) LoadDailySummary(date string) (types.DailySummary, bool, error) {
	var summary types.DailySummary
	ok, err := s.getJSON(DailySummaryKey(date), &summary)
	return summary, ok, err
}

// =============================================================================
// SETTINGS
// =============================================================================

// SetDarkMode persists the dark mode flag.
func (s *LocalStore) SetDarkMode(enabled bool) error {
	return s.Put(KeyDarkMode, []byte(strconv.FormatBool(enabled)))
}

// DarkMode returns the persisted dark mode flag, defaulting to false.
func (s *LocalStore) DarkMode() (bool, error) {
	data, ok, err := s.Get(KeyDarkMode)
	if err != nil || !ok {
		return false, err
	}
	enabled, err := strconv.ParseBool(string(data))
	if err != nil {
		return false, fmt.Errorf("malformed dark_mode record: %w", err)
	}
	return enabled, nil
}
