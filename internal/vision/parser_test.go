package vision

import (
	"testing"
	"time"

	"dejavu/internal/types"
)

var testNow = time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)

func TestExtractVisionInputsClassifiedHealth(t *testing.T) {
	text := "Here is your plan.\nINPUTS:\n• 8 hours sleep nightly\n"

	draft, found := ExtractVision(text, testNow)
	if !found {
		t.Fatal("structured section not found")
	}
	if len(draft.Inputs) != 1 {
		t.Fatalf("Inputs = %d, want 1", len(draft.Inputs))
	}
	if draft.Inputs[0].Title != "8 hours sleep nightly" {
		t.Errorf("Title = %q", draft.Inputs[0].Title)
	}
	if draft.Inputs[0].Tag != types.InputTagHealth {
		t.Errorf("Tag = %s, want health", draft.Inputs[0].Tag)
	}
}

func TestExtractVisionStrengthDefault(t *testing.T) {
	text := "INPUTS:\n- deep work blocks each morning\n"

	draft, found := ExtractVision(text, testNow)
	if !found || len(draft.Inputs) != 1 {
		t.Fatalf("found=%v inputs=%d, want 1 input", found, len(draft.Inputs))
	}
	if draft.Inputs[0].Tag != types.InputTagStrength {
		t.Errorf("Tag = %s, want strength", draft.Inputs[0].Tag)
	}
}

func TestExtractVisionOutputsGetSyntheticTargetDate(t *testing.T) {
	text := `VISION SUMMARY
OUTPUTS:
• Launch the side project by December
- Run a half marathon`

	draft, found := ExtractVision(text, testNow)
	if !found {
		t.Fatal("structured section not found")
	}
	if len(draft.Outputs) != 2 {
		t.Fatalf("Outputs = %d, want 2", len(draft.Outputs))
	}
	want := testNow.Add(30 * 24 * time.Hour)
	for _, out := range draft.Outputs {
		// The December mention in the text must be ignored.
		if !out.TargetDate.Equal(want) {
			t.Errorf("TargetDate = %v, want %v", out.TargetDate, want)
		}
	}
}

func TestExtractVisionGoalsAndTargetsMarkers(t *testing.T) {
	for _, marker := range []string{"GOALS:", "TARGETS:"} {
		draft, found := ExtractVision(marker+"\n• ship it\n", testNow)
		if !found || len(draft.Outputs) != 1 {
			t.Errorf("marker %s: found=%v outputs=%d, want 1", marker, found, len(draft.Outputs))
		}
	}
}

func TestExtractVisionNoSection(t *testing.T) {
	draft, found := ExtractVision("Great progress today! Keep it up.", testNow)
	if found {
		t.Error("found = true for unstructured text")
	}
	if !draft.Empty() {
		t.Errorf("draft not empty: %+v", draft)
	}
}

func TestExtractVisionBulletsOutsideSectionIgnored(t *testing.T) {
	text := "- stray bullet before any marker\nINPUTS:\n• real item\n"

	draft, found := ExtractVision(text, testNow)
	if !found || len(draft.Inputs) != 1 {
		t.Fatalf("found=%v inputs=%d, want exactly 1 input", found, len(draft.Inputs))
	}
}

func TestScanTranscriptBucketsClauses(t *testing.T) {
	messages := []types.ChatMessage{
		{Sender: types.SenderUser, Text: "I'm stuck on my career. My budget is tight."},
		{Sender: types.SenderAI, Text: "I'm stuck too"}, // AI messages ignored
		{Sender: types.SenderUser, Text: "My family can help. I feel confident about mornings."},
	}

	signals := ScanTranscript(messages)
	if len(signals.PainPoints) != 1 {
		t.Errorf("PainPoints = %v, want 1 entry", signals.PainPoints)
	}
	if len(signals.Constraints) != 1 {
		t.Errorf("Constraints = %v, want 1 entry", signals.Constraints)
	}
	if len(signals.SupportSystems) != 1 {
		t.Errorf("SupportSystems = %v, want 1 entry", signals.SupportSystems)
	}
	if signals.Confidence == "" {
		t.Error("Confidence not captured")
	}
}

func TestFallbackDraftMinesTranscript(t *testing.T) {
	messages := []types.ChatMessage{
		{Sender: types.SenderUser, Text: "I want to finish my novel. I exercise daily."},
	}

	draft := FallbackDraft(messages, testNow)
	if len(draft.Outputs) == 0 {
		t.Error("no outputs mined from 'want to' clause")
	}
	if len(draft.Inputs) == 0 {
		t.Error("no inputs mined from habit clause")
	}
}

func TestBuildVisionFileOverwritesWholesale(t *testing.T) {
	draft := types.VisionDraft{
		Inputs: []types.VisionInput{{Title: "sleep 8h", Tag: types.InputTagHealth}},
	}
	signals := TranscriptSignals{PainPoints: []string{"stuck at work"}}

	vf := BuildVisionFile(draft, signals, testNow)
	if len(vf.Inputs) != 1 || len(vf.PainPoints) != 1 {
		t.Errorf("vision file not assembled: %+v", vf)
	}
	if !vf.GeneratedAt.Equal(testNow) {
		t.Errorf("GeneratedAt = %v, want %v", vf.GeneratedAt, testNow)
	}
}
