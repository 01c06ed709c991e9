// Package vision extracts structured vision data from free-form AI response
// text. It is best-effort text mining: nothing is validated or deduplicated,
// and a parse miss yields an empty draft rather than an error. Callers that
// need structure can swap the implementation behind ExtractVision without
// touching the send pipeline.
package vision

import (
	"strings"
	"time"

	"dejavu/internal/logging"
	"dejavu/internal/types"
)

// Outputs receive a synthetic target date 30 days out regardless of any
// date mentioned in the text.
const outputTargetWindow = 30 * 24 * time.Hour

// healthWords classify an extracted input as health rather than strength.
var healthWords = []string{"sleep", "nutrition", "exercise"}

// section markers. A line mentioning one of these switches the bullet
// collector to that section.
var (
	inputMarkers  = []string{"inputs:"}
	outputMarkers = []string{"outputs:", "goals:", "targets:"}
)

// ExtractVision scans raw AI response text for a structured section (an
// "INPUTS:"/"OUTPUTS:" block with bullet lines) and returns the extracted
// draft. The second return value reports whether a structured section was
// found; when false the caller should fall back to transcript scanning.
func ExtractVision(text string, now time.Time) (types.VisionDraft, bool) {
	var draft types.VisionDraft

	const (
		sectionNone = iota
		sectionInputs
		sectionOutputs
	)
	section := sectionNone
	sawSection := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)

		if containsAny(lower, inputMarkers) {
			section = sectionInputs
			sawSection = true
			continue
		}
		if containsAny(lower, outputMarkers) {
			section = sectionOutputs
			sawSection = true
			continue
		}

		item, ok := bulletText(trimmed)
		if !ok || section == sectionNone {
			continue
		}

		switch section {
		case sectionInputs:
			draft.Inputs = append(draft.Inputs, types.VisionInput{
				Title: item,
				Tag:   classifyInput(item),
			})
		case sectionOutputs:
			draft.Outputs = append(draft.Outputs, types.VisionOutput{
				Title:      item,
				TargetDate: now.Add(outputTargetWindow),
			})
		}
	}

	found := sawSection && !draft.Empty()
	logging.TrackerDebug("ExtractVision: found=%v inputs=%d outputs=%d",
		found, len(draft.Inputs), len(draft.Outputs))
	return draft, found
}

// bulletText strips a leading bullet from a line. Only • and - bullets count.
func bulletText(line string) (string, bool) {
	for _, bullet := range []string{"•", "-"} {
		if strings.HasPrefix(line, bullet) {
			return strings.TrimSpace(strings.TrimPrefix(line, bullet)), true
		}
	}
	return "", false
}

// classifyInput tags an input health when it mentions sleep, nutrition, or
// exercise; everything else is strength.
func classifyInput(text string) types.InputTag {
	lower := strings.ToLower(text)
	for _, w := range healthWords {
		if strings.Contains(lower, w) {
			return types.InputTagHealth
		}
	}
	return types.InputTagStrength
}

// =============================================================================
// FALLBACK TRANSCRIPT SCAN
// =============================================================================

// TranscriptSignals is the strictly-worse extraction used when the primary
// parse finds no structured section.
type TranscriptSignals struct {
	PainPoints     []string
	Constraints    []string
	SupportSystems []string
	Confidence     string
}

var (
	painWords       = []string{"pain", "frustrat", "stuck", "problem", "struggle"}
	constraintWords = []string{"constraint", "limit", "time", "budget", "can't", "cannot"}
	supportWords    = []string{"support", "help", "coach", "friend", "family", "mentor"}
	confidenceWords = []string{"confident", "confidence", "sure", "certain"}
)

// ScanTranscript keyword-scans user messages for pain, constraint, support,
// and confidence clauses. False positives and negatives are expected.
func ScanTranscript(messages []types.ChatMessage) TranscriptSignals {
	var signals TranscriptSignals

	for _, msg := range messages {
		if msg.Sender != types.SenderUser {
			continue
		}
		for _, clause := range splitClauses(msg.Text) {
			lower := strings.ToLower(clause)
			switch {
			case containsAny(lower, painWords):
				signals.PainPoints = append(signals.PainPoints, clause)
			case containsAny(lower, constraintWords):
				signals.Constraints = append(signals.Constraints, clause)
			case containsAny(lower, supportWords):
				signals.SupportSystems = append(signals.SupportSystems, clause)
			case containsAny(lower, confidenceWords) && signals.Confidence == "":
				signals.Confidence = clause
			}
		}
	}
	return signals
}

// BuildVisionFile assembles the single vision file artifact from a draft and
// the transcript signals. The result overwrites any previous vision file
// wholesale.
func BuildVisionFile(draft types.VisionDraft, signals TranscriptSignals, now time.Time) types.VisionFile {
	return types.VisionFile{
		Inputs:         draft.Inputs,
		Outputs:        draft.Outputs,
		PainPoints:     signals.PainPoints,
		Constraints:    signals.Constraints,
		SupportSystems: signals.SupportSystems,
		Confidence:     signals.Confidence,
		GeneratedAt:    now,
	}
}

// FallbackDraft mines the transcript itself for input/output-like clauses.
// Used only when ExtractVision finds nothing; a strictly worse heuristic.
func FallbackDraft(messages []types.ChatMessage, now time.Time) types.VisionDraft {
	var draft types.VisionDraft
	for _, msg := range messages {
		if msg.Sender != types.SenderUser {
			continue
		}
		for _, clause := range splitClauses(msg.Text) {
			lower := strings.ToLower(clause)
			switch {
			case strings.Contains(lower, "every day") || strings.Contains(lower, "daily") ||
				strings.Contains(lower, "habit") || containsAny(lower, healthWords):
				draft.Inputs = append(draft.Inputs, types.VisionInput{
					Title: clause,
					Tag:   classifyInput(clause),
				})
			case strings.Contains(lower, "want to") || strings.Contains(lower, "goal") ||
				strings.Contains(lower, "achieve") || strings.Contains(lower, "finish"):
				draft.Outputs = append(draft.Outputs, types.VisionOutput{
					Title:      clause,
					TargetDate: now.Add(outputTargetWindow),
				})
			}
		}
	}
	return draft
}

// splitClauses breaks text into rough clauses on sentence punctuation.
func splitClauses(text string) []string {
	var clauses []string
	var current strings.Builder
	for _, r := range text {
		switch r {
		case '.', '!', '?', ';', '\n':
			if c := strings.TrimSpace(current.String()); c != "" {
				clauses = append(clauses, c)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if c := strings.TrimSpace(current.String()); c != "" {
		clauses = append(clauses, c)
	}
	return clauses
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
