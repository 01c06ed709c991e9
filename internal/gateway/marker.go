package gateway

import (
	"regexp"
	"strconv"
	"strings"

	"dejavu/internal/types"
)

// Markers the model is instructed to lead with. Two shapes are accepted:
// a bare stage marker like [SETUP • 42%] and the setup-phase form
// [Phase 3/5 • 60%].
var (
	stageMarkerRe = regexp.MustCompile(`(?i)\[\s*(SETUP|EXECUTION|REVIEW)\s*•\s*(\d+(?:\.\d+)?)\s*%\s*\]`)
	phaseMarkerRe = regexp.MustCompile(`(?i)\[\s*Phase\s+(\d+)\s*/\s*\d+\s*•\s*(\d+(?:\.\d+)?)\s*%\s*\]`)
)

// ParseStageMarker extracts the first stage marker from a reply. The phase
// form implies the setup stage. Returns false when no marker is present;
// the caller falls back to its own inferred stage.
func ParseStageMarker(text string) (types.StageInfo, bool) {
	if m := phaseMarkerRe.FindStringSubmatch(text); m != nil {
		phase, _ := strconv.Atoi(m[1])
		progress, _ := strconv.ParseFloat(m[2], 64)
		return types.StageInfo{
			MainStage:    types.StageSetup,
			Progress:     progress,
			CurrentPhase: phase,
		}, true
	}

	if m := stageMarkerRe.FindStringSubmatch(text); m != nil {
		progress, _ := strconv.ParseFloat(m[2], 64)
		var stage types.Stage
		switch strings.ToUpper(m[1]) {
		case "SETUP":
			stage = types.StageSetup
		case "REVIEW":
			stage = types.StageReview
		default:
			stage = types.StageExecution
		}
		return types.StageInfo{MainStage: stage, Progress: progress}, true
	}

	return types.StageInfo{}, false
}

// StripStageMarkers removes all stage markers from a reply so the transcript
// shows clean prose. The parsed StageInfo is surfaced separately.
func StripStageMarkers(text string) string {
	text = phaseMarkerRe.ReplaceAllString(text, "")
	text = stageMarkerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
