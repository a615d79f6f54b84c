// Package graph draws the conversation state machine as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

// GraphOverlay contains session data to highlight on the graph.
type GraphOverlay struct {
	VisitedStates []domain.State
	CurrentState  domain.State
}

// inputStates wait for free text and are drawn as parallelograms.
var inputStates = map[domain.State]bool{
	domain.StateEnteringName:     true,
	domain.StateEnteringPosition: true,
	domain.StateAnonymousReason:  true,
	domain.StateTypingMessage:    true,
}

// GenerateMermaid produces a Mermaid flowchart from the machine's edges.
// It applies semantic styling:
// - Idle (main menu): ((Circle))
// - Free text input: [/Parallelogram/]
// - Choice or upload: [Rectangle]
// Back moves are dotted. The overlay, if any, marks visited and current states.
func GenerateMermaid(edges []flow.Edge, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := map[domain.State]bool{}
	declare := func(s domain.State) {
		if declared[s] {
			return
		}
		declared[s] = true
		opener, closer := "[", "]"
		switch {
		case s == domain.StateIdle:
			opener, closer = "((", "))"
		case inputStates[s]:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, s, closer)
	}

	for _, e := range edges {
		declare(e.From)
		declare(e.To)
	}
	for _, e := range edges {
		from, to := sanitizeMermaidID(string(e.From)), sanitizeMermaidID(string(e.To))
		arrow := "-->"
		if e.Back {
			arrow = "-. back .->"
		} else if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(e.Label, "\"", "'"))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := map[domain.State]bool{}
		for _, s := range overlay.VisitedStates {
			if s == "" || seen[s] || !declared[s] {
				continue
			}
			seen[s] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(string(s)))
		}
		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
