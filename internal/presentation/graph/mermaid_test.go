package graph_test

import (
	"strings"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/internal/presentation/graph"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		edges    []flow.Edge
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name:  "Idle Is A Circle",
			edges: []flow.Edge{{From: domain.StateIdle, To: domain.StateChoosingManager}},
			contains: []string{
				`idle(("idle"))`,
				`choosing_manager["choosing_manager"]`,
			},
		},
		{
			name:  "Text Input Is A Parallelogram",
			edges: []flow.Edge{{From: domain.StateEnteringName, To: domain.StateEnteringPosition}},
			contains: []string{
				`entering_name[/"entering_name"/]`,
				`entering_position[/"entering_position"/]`,
			},
		},
		{
			name: "Labels And Back Moves",
			edges: []flow.Edge{
				{From: domain.StateTypingMessage, To: domain.StateUploadingFile, Label: `say "hi"`},
				{From: domain.StateUploadingFile, To: domain.StateTypingMessage, Back: true},
			},
			contains: []string{
				`typing_message -- "say 'hi'" --> uploading_file`,
				`uploading_file -. back .-> typing_message`,
			},
		},
		{
			name:  "Overlay",
			edges: flow.Graph(),
			overlay: &graph.GraphOverlay{
				VisitedStates: []domain.State{domain.StateEnteringName, domain.StateEnteringName, "bogus"},
				CurrentState:  domain.StateTypingMessage,
			},
			contains: []string{
				"class entering_name visited;",
				"class typing_message current;",
			},
			excludes: []string{"class bogus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.edges, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestGenerateMermaid_DeclaresEachStateOnce(t *testing.T) {
	got := graph.GenerateMermaid(flow.Graph(), nil)
	assert.Equal(t, 1, strings.Count(got, `idle(("idle"))`))
	assert.Equal(t, 1, strings.Count(got, `uploading_file["uploading_file"]`))
	assert.NotContains(t, got, "Overlay")
}
