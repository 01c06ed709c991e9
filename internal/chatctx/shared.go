// Package chatctx holds every open chat tab and its message history.
//
// The Store is constructed once by the application composition root and
// passed by reference to consumers; there is deliberately no package-level
// singleton. The single-writer-per-process contract still holds: the Store
// is the sole writer of the shared_context_data record.
//
// Concurrency: the internal mutex makes each method atomic in memory, and
// each mutation persists the whole blob unconditionally (no batching, no
// debouncing). Two actors racing through AddMessage (the hub poller and a
// user send in the same window) still resolve last-write-wins on the
// persisted blob; there is no read-modify-write transaction across actors.
package chatctx

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dejavu/internal/logging"
	"dejavu/internal/store"
	"dejavu/internal/types"
)

// History window sizes for the derived context views.
const (
	crossChatWindow = 5
	insightWindow   = 3
	categoryWindow  = 10
)

// Store is the in-memory+persisted map from tabID to ChatContext.
type Store struct {
	mu    sync.RWMutex
	local *store.LocalStore
	tabs  map[string]types.ChatContext
}

// New creates an empty Store bound to the local record store. Call
// LoadFromStorage before reading.
func New(local *store.LocalStore) *Store {
	return &Store{
		local: local,
		tabs:  make(map[string]types.ChatContext),
	}
}

// LoadFromStorage hydrates the in-memory map from the persisted blob.
// A missing record leaves the store empty; a storage error keeps whatever
// state is already in memory (stale beats broken).
func (s *Store) LoadFromStorage() error {
	data, ok, err := s.local.LoadSharedContext()
	if err != nil {
		logging.Get(logging.CategoryChat).Error("LoadFromStorage failed: %v", err)
		return err
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = data.Tabs
	if s.tabs == nil {
		s.tabs = make(map[string]types.ChatContext)
	}
	logging.Chat("Loaded shared context: %d tabs", len(s.tabs))
	return nil
}

// saveLocked persists the whole blob. Must hold s.mu.
func (s *Store) saveLocked() {
	data := types.SharedContextData{Tabs: s.tabs, UpdatedAt: time.Now()}
	if err := s.local.SaveSharedContext(data); err != nil {
		// Logged and dropped: the in-memory state stays authoritative for
		// this session and the next successful write repairs the blob.
		logging.Get(logging.CategoryChat).Error("Failed to persist shared context: %v", err)
	}
}

// UpdateChatContext inserts or replaces a tab and persists immediately.
func (s *Store) UpdateChatContext(ctx types.ChatContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx.LastUpdated = time.Now()
	s.tabs[ctx.TabID] = ctx
	s.saveLocked()
}

// EnsureTab returns the tab, creating it when absent.
func (s *Store) EnsureTab(tabID, title string, tabType types.TabType, categoryID string) types.ChatContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tab, ok := s.tabs[tabID]; ok {
		return tab
	}
	tab := types.ChatContext{
		TabID:       tabID,
		Title:       title,
		Type:        tabType,
		CategoryID:  categoryID,
		LastUpdated: time.Now(),
	}
	s.tabs[tabID] = tab
	s.saveLocked()
	logging.Chat("Created tab %s (%s)", tabID, tabType)
	return tab
}

// AddMessage appends to a tab's history and persists. Messages for unknown
// tabs create the tab implicitly. Append order within one tab follows call
// order; cross-tab ordering is whatever the callers' interleaving produced.
func (s *Store) AddMessage(msg types.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.tabs[msg.TabID]
	if !ok {
		tab = types.ChatContext{
			TabID:      msg.TabID,
			Title:      msg.TabID,
			Type:       types.TabCategory,
			CategoryID: msg.CategoryID,
		}
	}
	tab.Messages = append(tab.Messages, msg)
	tab.LastUpdated = time.Now()
	s.tabs[msg.TabID] = tab
	s.saveLocked()

	logging.ChatDebug("AddMessage tab=%s sender=%s len=%d", msg.TabID, msg.Sender, len(tab.Messages))
}

// Tab returns one tab by ID. The returned Messages slice is a copy; mutating
// it never touches the store. All mutation goes through AddMessage or
// UpdateChatContext so it persists.
func (s *Store) Tab(tabID string) (types.ChatContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab, ok := s.tabs[tabID]
	if ok {
		tab.Messages = copyMessages(tab.Messages)
	}
	return tab, ok
}

// Tabs returns all tabs, newest-updated first, with copied histories.
func (s *Store) Tabs() []types.ChatContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tabs := s.sortedTabsLocked()
	for i := range tabs {
		tabs[i].Messages = copyMessages(tabs[i].Messages)
	}
	return tabs
}

func copyMessages(messages []types.ChatMessage) []types.ChatMessage {
	if messages == nil {
		return nil
	}
	return append([]types.ChatMessage(nil), messages...)
}

func (s *Store) sortedTabsLocked() []types.ChatContext {
	tabs := make([]types.ChatContext, 0, len(s.tabs))
	for _, tab := range s.tabs {
		tabs = append(tabs, tab)
	}
	sort.Slice(tabs, func(i, j int) bool {
		if tabs[i].LastUpdated.Equal(tabs[j].LastUpdated) {
			return tabs[i].TabID < tabs[j].TabID
		}
		return tabs[i].LastUpdated.After(tabs[j].LastUpdated)
	})
	return tabs
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// CrossChatContext concatenates the last messages of every other tab into a
// labeled text block. The block is injected verbatim into the next prompt.
func (s *Store) CrossChatContext(excludeTabID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, tab := range s.sortedTabsLocked() {
		if tab.TabID == excludeTabID || len(tab.Messages) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n", tab.Title)
		for _, msg := range lastN(tab.Messages, crossChatWindow) {
			fmt.Fprintf(&b, "%s: %s\n", msg.Sender, msg.Text)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// CentralHubInsights renders a short per-tab insight block from each tab's
// most recent messages, split by sender.
func (s *Store) CentralHubInsights() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, tab := range s.sortedTabsLocked() {
		if len(tab.Messages) == 0 {
			continue
		}
		var userParts, aiParts []string
		for _, msg := range lastN(tab.Messages, insightWindow) {
			if msg.Sender == types.SenderUser {
				userParts = append(userParts, msg.Text)
			} else {
				aiParts = append(aiParts, msg.Text)
			}
		}
		fmt.Fprintf(&b, "%s:\n", tab.Title)
		if len(userParts) > 0 {
			fmt.Fprintf(&b, "  user focus: %s\n", strings.Join(userParts, " | "))
		}
		if len(aiParts) > 0 {
			fmt.Fprintf(&b, "  coach: %s\n", strings.Join(aiParts, " | "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// CategoryContext is CrossChatContext scoped to tabs sharing a category,
// with a deeper history window.
func (s *Store) CategoryContext(categoryID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, tab := range s.sortedTabsLocked() {
		if tab.CategoryID != categoryID || len(tab.Messages) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n", tab.Title)
		for _, msg := range lastN(tab.Messages, categoryWindow) {
			fmt.Fprintf(&b, "%s: %s\n", msg.Sender, msg.Text)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func lastN(messages []types.ChatMessage, n int) []types.ChatMessage {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
