package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/cue"
	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
)

// ContextEnrichment mines logged conversations for FORD material (family,
// occupation, recreation, dreams) and proposes low-risk context updates so
// the person's qualitative notes stay current without manual entry.
type ContextEnrichment struct{}

// Name implements Agent.
func (a *ContextEnrichment) Name() string { return "context-enrichment" }

// InterestedIn implements Agent.
func (a *ContextEnrichment) InterestedIn(ev *event.SystemEvent) bool {
	return ev.Type == event.TypeInteractionLogged
}

// Propose implements Agent.
func (a *ContextEnrichment) Propose(_ context.Context, ev *event.SystemEvent, _ *Context) ([]action.Draft, error) {
	var payload event.InteractionLoggedPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode interaction payload: %w", err)
		}
	}

	content := payload.Content
	if content == "" {
		content = payload.Summary
	}

	match, ok := cue.FORDTopic(content)
	if !ok {
		return nil, nil
	}

	return []action.Draft{{
		ActionType:   policy.ActionUpdateContext,
		RiskLevel:    action.RiskLow,
		TargetPerson: ev.SubjectPerson,
		ProposedContent: marshalContent(map[string]string{
			"bucket":  match.Label,
			"snippet": content,
		}),
		Reasoning: fmt.Sprintf("Conversation mentioned %q; file it under %s notes.", match.Phrase, match.Label),
	}}, nil
}
