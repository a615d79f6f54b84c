package flow

import "github.com/Doe880/telegram-feedback-bot1/pkg/domain"

// Edge is one move the conversation can make.
type Edge struct {
	From  domain.State
	To    domain.State
	Label string
	// Back marks moves made by the back signal.
	Back bool
}

// Graph lists every transition of the machine: forward moves first, in
// the order a user meets them, then the back moves.
func Graph() []Edge {
	forward := []Edge{
		{From: domain.StateIdle, To: domain.StateChoosingManager, Label: string(domain.CommandAskManager)},
		{From: domain.StateIdle, To: domain.StateEnteringName, Label: "general / director / idea"},
		{From: domain.StateIdle, To: domain.StateIdle, Label: string(domain.CommandMyRequests)},
		{From: domain.StateChoosingManager, To: domain.StateEnteringName, Label: "manager"},
		{From: domain.StateEnteringName, To: domain.StateEnteringPosition, Label: "name"},
		{From: domain.StateEnteringName, To: domain.StateAnonymousReason, Label: string(domain.CommandAnonymous) + " (not director)"},
		{From: domain.StateEnteringPosition, To: domain.StateTypingMessage, Label: "position"},
		{From: domain.StateAnonymousReason, To: domain.StateTypingMessage, Label: "reason"},
		{From: domain.StateTypingMessage, To: domain.StateUploadingFile, Label: "message"},
		{From: domain.StateUploadingFile, To: domain.StateIdle, Label: "file / " + string(domain.CommandSkip)},
	}

	var back []Edge
	for _, e := range forward {
		if e.From == e.To {
			continue
		}
		if e.From == domain.StateIdle {
			// Back from the first step of a draft returns to the menu.
			back = append(back, Edge{From: e.To, To: domain.StateIdle, Back: true})
			continue
		}
		if e.To == domain.StateIdle {
			continue
		}
		back = append(back, Edge{From: e.To, To: e.From, Back: true})
	}
	return append(forward, dedupe(back)...)
}

func dedupe(edges []Edge) []Edge {
	seen := make(map[Edge]bool, len(edges))
	out := edges[:0]
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
