package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
)

// closingStages are deal stages where the client expects proactive contact.
var closingStages = map[string]bool{
	"under_contract": true,
	"closing":        true,
}

// TransactionOps reacts to deal stage changes: it creates internal checklist
// tasks for every transition and proposes direct client contact when a deal
// enters a closing stage.
type TransactionOps struct{}

// Name implements Agent.
func (a *TransactionOps) Name() string { return "transaction-ops" }

// InterestedIn implements Agent.
func (a *TransactionOps) InterestedIn(ev *event.SystemEvent) bool {
	return ev.Category == event.CategoryTransaction
}

// Propose implements Agent.
func (a *TransactionOps) Propose(_ context.Context, ev *event.SystemEvent, _ *Context) ([]action.Draft, error) {
	var payload event.DealStagePayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode deal stage payload: %w", err)
		}
	}

	stage := payload.ToStage
	if stage == "" {
		stage = "updated"
	}

	drafts := []action.Draft{
		{
			ActionType:   policy.ActionCreateTask,
			RiskLevel:    action.RiskLow,
			TargetPerson: ev.SubjectPerson,
			TargetDeal:   ev.SubjectDeal,
			ProposedContent: marshalContent(action.TaskContent{
				Title: fmt.Sprintf("Run the %s checklist", stage),
				Notes: fmt.Sprintf("Deal moved %s -> %s", payload.FromStage, payload.ToStage),
			}),
			Reasoning: fmt.Sprintf("Deal entered stage %q; every stage has a checklist.", stage),
		},
	}

	if closingStages[stage] {
		drafts = append(drafts, action.Draft{
			ActionType:   policy.ActionContactClient,
			RiskLevel:    action.RiskHigh,
			TargetPerson: ev.SubjectPerson,
			TargetDeal:   ev.SubjectDeal,
			ProposedContent: marshalContent(action.DraftContent{
				Kind:   "text",
				Prompt: fmt.Sprintf("Walk the client through what happens during %s", stage),
			}),
			Reasoning: fmt.Sprintf("Deal is %s; clients expect proactive contact at this stage.", stage),
		})
	}

	return drafts, nil
}
