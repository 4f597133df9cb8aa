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

// LifeEventDetection scans logged conversations for life events (new baby,
// job change, move, ...) and proposes a handwritten-note draft. Life events
// are the moments a personal note lands hardest.
type LifeEventDetection struct{}

// Name implements Agent.
func (a *LifeEventDetection) Name() string { return "life-event" }

// InterestedIn implements Agent.
func (a *LifeEventDetection) InterestedIn(ev *event.SystemEvent) bool {
	return ev.Type == event.TypeInteractionLogged
}

// Propose implements Agent.
func (a *LifeEventDetection) Propose(_ context.Context, ev *event.SystemEvent, rc *Context) ([]action.Draft, error) {
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

	match, ok := cue.LifeEvent(content)
	if !ok {
		return nil, nil
	}

	name := "them"
	if rc != nil && rc.Person != nil {
		name = rc.Person.FullName()
	}

	return []action.Draft{{
		ActionType:   policy.ActionDraftFollowUp,
		RiskLevel:    action.RiskLow,
		TargetPerson: ev.SubjectPerson,
		ProposedContent: marshalContent(action.DraftContent{
			Kind:   "handwritten_note",
			Prompt: fmt.Sprintf("Personal note to %s about %s (they said %q)", name, match.Label, match.Phrase),
		}),
		Reasoning: fmt.Sprintf("Conversation mentioned %q (%s); a handwritten note fits the moment.", match.Phrase, match.Label),
	}}, nil
}
