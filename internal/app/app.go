// Package app is the composition root: it owns the store, the shared chat
// context, the tracker, the planner, the event bus, and the AI gateway, and
// runs the send pipeline that ties them together.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dejavu/internal/chatctx"
	"dejavu/internal/config"
	"dejavu/internal/events"
	"dejavu/internal/gateway"
	"dejavu/internal/logging"
	"dejavu/internal/planner"
	"dejavu/internal/store"
	"dejavu/internal/tracker"
	"dejavu/internal/types"
	"dejavu/internal/vision"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// CentralTabID is the fixed identifier of the always-present hub tab.
const CentralTabID = "central"

// App wires the product's services together. Construct with New and reuse;
// all methods are safe for concurrent use to the extent their underlying
// stores are.
type App struct {
	Config  *config.Config
	Local   *store.LocalStore
	Chats   *chatctx.Store
	Tracker *tracker.Tracker
	Planner *planner.Planner
	Bus     *events.Bus
	Gateway gateway.Completer
}

// New assembles an App over an already-open store and gateway, hydrating the
// chat context from disk and ensuring the central hub tab exists.
func New(cfg *config.Config, local *store.LocalStore, gw gateway.Completer) (*App, error) {
	bus := events.NewBus()
	chats := chatctx.New(local)
	if err := chats.LoadFromStorage(); err != nil {
		return nil, fmt.Errorf("failed to load chat context: %w", err)
	}
	chats.EnsureTab(CentralTabID, "Central Hub", types.TabCentral, "")

	return &App{
		Config:  cfg,
		Local:   local,
		Chats:   chats,
		Tracker: tracker.New(),
		Planner: planner.New(local, bus),
		Bus:     bus,
		Gateway: gw,
	}, nil
}

// Close releases the bus. The store is owned by the caller.
func (a *App) Close() {
	a.Bus.Close()
}

// SendResult is everything one send produced: the coach's reply as appended
// to the transcript, the stage the UI should render, and any categories the
// reply caused to be created.
type SendResult struct {
	Reply             types.ChatMessage
	Stage             types.StageInfo
	CreatedCategories []types.Category
}

// SendMessage runs the full pipeline for one user message: append it, infer
// the stage, assemble the prompt, call the gateway, append the reply, then
// mine the exchange for vision content and daily-summary signals. Gateway
// failure is not an error here; the fixed fallback text becomes the reply
// and post-processing is skipped.
func (a *App) SendMessage(ctx context.Context, tabID, text string) (SendResult, error) {
	timer := logging.StartTimer(logging.CategoryChat, "SendMessage")
	defer timer.Stop()

	now := time.Now()
	tab, ok := a.Chats.Tab(tabID)
	if !ok {
		tab = a.Chats.EnsureTab(tabID, tabID, types.TabCategory, "")
	}

	userMsg := types.ChatMessage{
		ID:         uuid.NewString(),
		Text:       text,
		Sender:     types.SenderUser,
		Timestamp:  now,
		TabID:      tabID,
		CategoryID: tab.CategoryID,
	}
	a.Chats.AddMessage(userMsg)

	tab, _ = a.Chats.Tab(tabID)
	chatType := a.chatTypeFor(tab)
	stage := a.Tracker.InferStage(chatType, tab.Messages, now)

	prompt := gateway.BuildPrompt(
		tracker.TemplateFor(stage.MainStage),
		a.contextBlockFor(tab),
		historyWithout(tab.Messages, userMsg.ID),
		text,
	)

	replyText, gwErr := a.Gateway.Complete(ctx, prompt)
	if gwErr != nil {
		logging.GatewayError("SendMessage: completion failed: %v", gwErr)
		replyText = gateway.FallbackMessage(gwErr)
	}

	var created []types.Category
	display := replyText
	if gwErr == nil {
		if info, ok := gateway.ParseStageMarker(replyText); ok {
			stage = info
		}
		display = gateway.StripStageMarkers(replyText)
	}

	reply := types.ChatMessage{
		ID:         uuid.NewString(),
		Text:       display,
		Sender:     types.SenderAI,
		Timestamp:  time.Now(),
		TabID:      tabID,
		CategoryID: tab.CategoryID,
	}
	a.Chats.AddMessage(reply)

	if gwErr == nil {
		created = a.processVision(replyText, tab, now)
	}

	// The summary is mined from the user's own message, so it is recorded
	// even when the coach could not be reached.
	a.recordDailySummary(text, now)

	return SendResult{Reply: reply, Stage: stage, CreatedCategories: created}, nil
}

// chatTypeFor picks the coaching script: category tabs run the category
// script, and the hub runs setup until a vision file exists.
func (a *App) chatTypeFor(tab types.ChatContext) types.ChatType {
	if tab.Type == types.TabCategory {
		return types.ChatCategory
	}
	if _, ok, err := a.Local.LoadVisionFile(); err == nil && !ok {
		return types.ChatSetup
	}
	return types.ChatCentral
}

// contextBlockFor selects the prompt context: category tabs see their own
// category's history, the hub sees a slice of every other conversation.
func (a *App) contextBlockFor(tab types.ChatContext) string {
	if tab.Type == types.TabCategory && tab.CategoryID != "" {
		return a.Chats.CategoryContext(tab.CategoryID)
	}
	return a.Chats.CrossChatContext(tab.TabID)
}

// historyWithout drops the just-appended user message so BuildPrompt can
// place it last without duplication.
func historyWithout(messages []types.ChatMessage, id string) []types.ChatMessage {
	out := make([]types.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.ID == id {
			continue
		}
		out = append(out, m)
	}
	return out
}

// processVision mines a successful reply for a vision summary and, when one
// is found, persists the vision file and materializes categories, goals, and
// progress paths from it. Each derived artifact is written in sequence;
// a failure stops that category and reports on the bus, but never fails the
// send that triggered it.
func (a *App) processVision(replyText string, tab types.ChatContext, now time.Time) []types.Category {
	draft, ok := vision.ExtractVision(replyText, now)
	if !ok || draft.Empty() {
		// The model announced a summary but the format drifted: mine the
		// transcript instead. Anything else is ordinary coaching prose.
		if !strings.Contains(strings.ToLower(replyText), "vision summary") {
			return nil
		}
		draft = vision.FallbackDraft(tab.Messages, now)
		if draft.Empty() {
			return nil
		}
	}

	signals := vision.ScanTranscript(tab.Messages)
	vf := vision.BuildVisionFile(draft, signals, now)
	if err := a.Local.SaveVisionFile(vf); err != nil {
		logging.Get(logging.CategoryChat).Error("Failed to save vision file: %v", err)
	}

	var created []types.Category
	for _, in := range draft.Inputs {
		cat := types.Category{
			ID:     uuid.NewString(),
			Title:  in.Title,
			Type:   types.GoalTypeInput,
			Inputs: []types.CategoryInput{{Title: in.Title, Tag: in.Tag}},
		}
		if a.materializeCategory(cat, now) {
			created = append(created, cat)
		}
	}
	for _, out := range draft.Outputs {
		cat := types.Category{
			ID:      uuid.NewString(),
			Title:   out.Title,
			Type:    types.GoalTypeOutput,
			Outputs: []types.CategoryOutput{{Title: out.Title, TargetDate: out.TargetDate}},
		}
		if a.materializeCategory(cat, now) {
			created = append(created, cat)
		}
	}
	return created
}

// materializeCategory runs the creation sequence for one category: dedupe
// check, category list update, seed goal, creation marker, event, progress
// path. Returns false when the category already existed or a write failed.
func (a *App) materializeCategory(cat types.Category, now time.Time) bool {
	if _, exists, err := a.Local.CategoryCreatedAt(cat.Title, cat.Type); err == nil && exists {
		logging.ChatDebug("materializeCategory: %q (%s) already exists, skipping", cat.Title, cat.Type)
		return false
	}

	fail := func(step string, err error) bool {
		logging.Get(logging.CategoryChat).Error("materializeCategory %s failed for %q: %v", step, cat.Title, err)
		a.Bus.Emit(events.Event{
			Topic:      events.TopicCategoryCreationError,
			CategoryID: cat.ID,
			Message:    fmt.Sprintf("The category %q could not be saved. Free up storage or use Reset All in settings, then ask your coach to recreate it.", cat.Title),
		})
		return false
	}

	categories, err := a.Local.LoadCategories()
	if err != nil {
		return fail("load", err)
	}
	// The creation marker is written last, so a failure partway through an
	// earlier attempt can leave the category in the index without a marker.
	// Checking the index too keeps a re-send from appending a duplicate.
	for _, existing := range categories {
		if existing.Title == cat.Title && existing.Type == cat.Type {
			logging.ChatDebug("materializeCategory: %q (%s) already in index, skipping", cat.Title, cat.Type)
			return false
		}
	}
	categories = append(categories, cat)
	if err := a.Local.SaveCategories(categories); err != nil {
		return fail("save categories", err)
	}

	seed := types.IndividualGoal{
		ID:         uuid.NewString(),
		Title:      cat.Title,
		CategoryID: cat.ID,
		Order:      1,
	}
	if err := a.Local.SaveGoals(cat.Title, cat.Type, []types.IndividualGoal{seed}); err != nil {
		return fail("save goals", err)
	}

	if err := a.Local.MarkCategoryCreated(cat.Title, cat.Type, now); err != nil {
		return fail("mark created", err)
	}

	a.Bus.Emit(events.Event{
		Topic:      events.TopicCategoryCreated,
		CategoryID: cat.ID,
		Payload:    cat,
	})
	logging.Chat("Created category %q (%s)", cat.Title, cat.Type)

	if _, err := a.Planner.CreatePath(cat, now); err != nil {
		// Already reported on the bus by the planner.
		logging.PlannerDebug("materializeCategory: path generation failed for %q: %v", cat.Title, err)
	}
	return true
}

// recordDailySummary merges whatever the heuristics find in the user's
// message into today's summary record. Empty extractions write nothing.
func (a *App) recordDailySummary(text string, now time.Time) {
	update := a.Tracker.ExtractDailySummary(text, now)
	if update.Empty() {
		return
	}

	existing, _, err := a.Local.LoadDailySummary(update.Date)
	if err != nil {
		logging.Get(logging.CategoryTracker).Error("Failed to load daily summary: %v", err)
		return
	}
	existing.Date = update.Date
	merged := tracker.MergeDailySummary(existing, update)
	if err := a.Local.SaveDailySummary(merged); err != nil {
		logging.Get(logging.CategoryTracker).Error("Failed to save daily summary: %v", err)
	}
}

// StartHubPoller re-reads the shared context blob on the configured interval
// so changes written by another process surface in this one. Blocks until
// the context is cancelled; the returned error is the group's verdict and is
// nil on clean cancellation.
func (a *App) StartHubPoller(ctx context.Context) error {
	interval := a.Config.Sync.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := a.Chats.LoadFromStorage(); err != nil {
					logging.Get(logging.CategoryChat).Error("Hub poll failed: %v", err)
					continue
				}
				logging.ChatDebug("Hub poll: refreshed shared context")
			}
		}
	})
	return g.Wait()
}

// OpenCategoryTab ensures a chat tab exists for a category and returns it.
func (a *App) OpenCategoryTab(cat types.Category) types.ChatContext {
	return a.Chats.EnsureTab("category_"+cat.ID, cat.Title, types.TabCategory, cat.ID)
}
