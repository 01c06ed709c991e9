package gateway

import (
	"fmt"
	"strings"

	"dejavu/internal/types"
)

// System prompt templates keyed by the stage template name. Each instructs
// the model to prefix replies with a stage marker so the UI can render the
// progress chip without another round trip.
var stageTemplates = map[string]string{
	"setup": `You are a direct, warm personal coach running a structured onboarding conversation.
Walk the user through five phases in order: pain points, constraints, cost and confidence, inputs and outputs, support and commitment.
Stay on the current phase until it is genuinely covered, then move on.
Begin every reply with a marker like [Phase 3/5 • 60%] reflecting the current phase and overall setup progress.
When the user has named concrete inputs and outputs, close with a VISION SUMMARY block:
VISION SUMMARY
INPUTS:
• one habit per line
OUTPUTS:
• one measurable goal per line`,

	"execution": `You are a direct, warm personal coach helping the user execute their weekly plan.
Keep replies short and action-oriented. Reference their declared goals and this week's milestone when relevant.
Begin every reply with a marker like [EXECUTION • 50%] reflecting how far through the working week they are.`,

	"review": `You are a direct, warm personal coach running the weekly review.
Ask what got done, what was missed, and what one adjustment would make next week better.
Begin every reply with a marker like [REVIEW • 0%].`,
}

// Template returns the system prompt for a template name, defaulting to
// execution for unknown names.
func Template(name string) string {
	if tmpl, ok := stageTemplates[name]; ok {
		return tmpl
	}
	return stageTemplates["execution"]
}

// BuildPrompt assembles the single text blob sent to the model: the stage
// system prompt, an optional cross-chat context block, the tab's recent
// history as "role: content" lines, and the new user message last.
func BuildPrompt(templateName string, crossContext string, history []types.ChatMessage, userText string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "system: %s\n\n", Template(templateName))

	if crossContext != "" {
		b.WriteString("system: Context from the user's other conversations:\n")
		b.WriteString(crossContext)
		b.WriteString("\n\n")
	}

	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Sender, msg.Text)
	}

	fmt.Fprintf(&b, "user: %s\n", userText)
	return b.String()
}
