// Package policy centrally declares the minimum risk tier per action type.
// Agents still self-classify, but the pipeline clamps their declaration up to
// the floor here, so a misbehaving agent cannot smuggle an external effect
// through the auto-approval path.
package policy

import "github.com/rainmakerhq/rainmaker/internal/domain/action"

// Known action types.
const (
	ActionDraftWelcome     = "draft_welcome"
	ActionDraftFollowUp    = "draft_followup"
	ActionUpdateContext    = "update_context"
	ActionCreateTask       = "create_task"
	ActionScheduleCheckin  = "schedule_checkin"
	ActionSyncCRMNote      = "crm_sync_note"
	ActionCreateCRMTask    = "crm_create_task"
	ActionSendMarketUpdate = "send_market_update"
	ActionContactClient    = "contact_client"
)

// floors maps action types to the lowest risk tier they may carry.
// Draft-only and read-only effects are low; anything touching a system of
// record is medium; anything that contacts a third party is high.
var floors = map[string]action.RiskLevel{
	ActionDraftWelcome:     action.RiskLow,
	ActionDraftFollowUp:    action.RiskLow,
	ActionUpdateContext:    action.RiskLow,
	ActionCreateTask:       action.RiskLow,
	ActionScheduleCheckin:  action.RiskMedium,
	ActionSyncCRMNote:      action.RiskMedium,
	ActionCreateCRMTask:    action.RiskMedium,
	ActionSendMarketUpdate: action.RiskHigh,
	ActionContactClient:    action.RiskHigh,
}

// MinTier returns the floor for an action type. Unknown types get the highest
// tier so nothing unrecognized ever auto-executes.
func MinTier(actionType string) action.RiskLevel {
	if tier, ok := floors[actionType]; ok {
		return tier
	}
	return action.RiskHigh
}

// Clamp raises declared to the floor for the action type if the agent
// classified below it.
func Clamp(actionType string, declared action.RiskLevel) action.RiskLevel {
	return declared.Max(MinTier(actionType))
}

// Known reports whether the action type is in the central table.
func Known(actionType string) bool {
	_, ok := floors[actionType]
	return ok
}
