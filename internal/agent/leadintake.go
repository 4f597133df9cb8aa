package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
)

// LeadIntake reacts to new and qualified leads: it drafts a welcome message
// and queues a CRM note so the lead shows up in the system of record.
type LeadIntake struct{}

// Name implements Agent.
func (a *LeadIntake) Name() string { return "lead-intake" }

// InterestedIn implements Agent.
func (a *LeadIntake) InterestedIn(ev *event.SystemEvent) bool {
	return ev.Category == event.CategoryLead
}

// Propose implements Agent.
func (a *LeadIntake) Propose(_ context.Context, ev *event.SystemEvent, rc *Context) ([]action.Draft, error) {
	name := "the new lead"
	if rc != nil && rc.Person != nil {
		name = rc.Person.FullName()
	}

	var payload event.LeadCreatedPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode lead payload: %w", err)
		}
	}

	drafts := []action.Draft{
		{
			ActionType:   policy.ActionDraftWelcome,
			RiskLevel:    action.RiskLow,
			TargetPerson: ev.SubjectPerson,
			ProposedContent: marshalContent(action.DraftContent{
				Kind:   "email",
				Prompt: fmt.Sprintf("Welcome message for %s (source: %s)", name, payload.LeadSource),
			}),
			Reasoning: fmt.Sprintf("New lead from %s; a prompt first touch improves conversion.", orUnknown(payload.LeadSource)),
		},
		{
			ActionType:   policy.ActionSyncCRMNote,
			RiskLevel:    action.RiskMedium,
			TargetPerson: ev.SubjectPerson,
			ProposedContent: marshalContent(action.NoteContent{
				Body: fmt.Sprintf("Lead created via %s. Inquiry: %s", orUnknown(payload.LeadSource), payload.Inquiry),
			}),
			Reasoning: "Mirror the new lead into the CRM so pipeline reports stay accurate.",
		},
	}
	return drafts, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown source"
	}
	return s
}
