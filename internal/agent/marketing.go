package agent

import (
	"context"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
)

// Marketing proposes market-update sends for qualified leads and
// anniversaries. Everything it proposes contacts a third party, so nothing
// here ever auto-executes.
type Marketing struct{}

// Name implements Agent.
func (a *Marketing) Name() string { return "marketing" }

// InterestedIn implements Agent.
func (a *Marketing) InterestedIn(ev *event.SystemEvent) bool {
	return ev.Type == event.TypeLeadQualified || ev.Type == event.TypeAnniversary
}

// Propose implements Agent.
func (a *Marketing) Propose(_ context.Context, ev *event.SystemEvent, rc *Context) ([]action.Draft, error) {
	occasion := "a qualified lead"
	if ev.Type == event.TypeAnniversary {
		occasion = "a home anniversary"
	}

	name := "this contact"
	if rc != nil && rc.Person != nil {
		name = rc.Person.FullName()
	}

	return []action.Draft{{
		ActionType:   policy.ActionSendMarketUpdate,
		RiskLevel:    action.RiskHigh,
		TargetPerson: ev.SubjectPerson,
		ProposedContent: marshalContent(action.DraftContent{
			Kind:    "email",
			Subject: "Your neighborhood market update",
			Prompt:  fmt.Sprintf("Market update for %s, occasioned by %s", name, occasion),
		}),
		Reasoning: fmt.Sprintf("%s is %s; a market update is the standard touch.", name, occasion),
	}}, nil
}
