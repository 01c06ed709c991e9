package tracker

import (
	"testing"
	"time"

	"dejavu/internal/types"

	"github.com/stretchr/testify/assert"
)

func userMsg(text string) types.ChatMessage {
	return types.ChatMessage{Text: text, Sender: types.SenderUser}
}

func aiMsg(text string) types.ChatMessage {
	return types.ChatMessage{Text: text, Sender: types.SenderAI}
}

// 2026-08-19 is a Wednesday; the surrounding days pin the other weekdays.
var (
	wednesday = time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	saturday  = time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)
	sunday    = time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	monday    = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	friday    = time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
)

func TestSetupNoPainVocabularyIsZero(t *testing.T) {
	tr := New()

	info := tr.InferStage(types.ChatSetup, []types.ChatMessage{
		userMsg("Hello there"),
		userMsg("Nice weather today"),
	}, wednesday)

	assert.Equal(t, types.StageSetup, info.MainStage)
	assert.Equal(t, 0.0, info.Progress)
	assert.Equal(t, 1, info.CurrentPhase)
}

func TestSetupEmptyTranscriptIsZero(t *testing.T) {
	tr := New()

	info := tr.InferStage(types.ChatSetup, nil, wednesday)
	assert.Equal(t, types.StageSetup, info.MainStage)
	assert.Equal(t, 0.0, info.Progress)
}

func TestSetupAllPhasesComplete(t *testing.T) {
	tr := New()

	// One message per phase, covering every keyword group.
	info := tr.InferStage(types.ChatSetup, []types.ChatMessage{
		userMsg("I'm frustrated and stuck in my job"),
		userMsg("My main constraint is time and budget"),
		userMsg("The cost is worth it and I feel confident"),
		userMsg("Daily habit inputs should produce one big goal as output"),
		userMsg("My family will support me, my plan is clear, and I commit to it"),
	}, wednesday)

	assert.Equal(t, types.StageSetup, info.MainStage)
	assert.Equal(t, 100.0, info.Progress)
	assert.Equal(t, 5, info.CurrentPhase)
}

func TestSetupPartialPhaseIsStartedSubLevel(t *testing.T) {
	tr := New()

	// Phase 1 complete, phase 2 only partially covered (time but no
	// constraint wording): band floor 20 plus the started offset.
	info := tr.InferStage(types.ChatSetup, []types.ChatMessage{
		userMsg("I'm frustrated and stuck"),
		userMsg("I never have time"),
	}, wednesday)

	assert.Equal(t, 30.0, info.Progress)
	assert.Equal(t, 2, info.CurrentPhase)
}

func TestSetupIgnoresAIMessages(t *testing.T) {
	tr := New()

	info := tr.InferStage(types.ChatSetup, []types.ChatMessage{
		aiMsg("Tell me about your pain points and struggles"),
	}, wednesday)

	assert.Equal(t, 0.0, info.Progress)
}

func TestExecutionWednesdayIsFifty(t *testing.T) {
	tr := New()

	for _, chatType := range []types.ChatType{types.ChatCentral, types.ChatCategory} {
		info := tr.InferStage(chatType, []types.ChatMessage{userMsg("hi")}, wednesday)
		assert.Equal(t, types.StageExecution, info.MainStage)
		assert.Equal(t, 50.0, info.Progress)
	}
}

func TestSaturdayIsReview(t *testing.T) {
	tr := New()

	info := tr.InferStage(types.ChatCentral, nil, saturday)
	assert.Equal(t, types.StageReview, info.MainStage)
	assert.Equal(t, 0.0, info.Progress)
}

func TestWeekdayProgressTable(t *testing.T) {
	tr := New()

	cases := []struct {
		now  time.Time
		want float64
	}{
		{monday, 16.67},
		{wednesday, 50},
		{friday, 83.33},
		{sunday, 100},
	}
	for _, tc := range cases {
		info := tr.InferStage(types.ChatCategory, nil, tc.now)
		assert.Equalf(t, tc.want, info.Progress, "weekday %s", tc.now.Weekday())
	}
}

func TestCalendarOverrideIgnoresTranscript(t *testing.T) {
	tr := New()

	// Keyword-rich transcript must not move execution progress.
	info := tr.InferStage(types.ChatCategory, []types.ChatMessage{
		userMsg("I'm frustrated and stuck, no time, committed to my plan"),
	}, wednesday)

	assert.Equal(t, 50.0, info.Progress)
}

func TestTemplateFor(t *testing.T) {
	assert.Equal(t, "setup", TemplateFor(types.StageSetup))
	assert.Equal(t, "execution", TemplateFor(types.StageExecution))
	assert.Equal(t, "review", TemplateFor(types.StageReview))
}
