package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
)

// nurtureGap is how long a relationship may go quiet before the nurture agent
// proposes a follow-up draft.
const nurtureGap = 30

// Nurture keeps long-quiet relationships warm: after a logged conversation or
// a relationship change it drafts a follow-up when the contact gap is large,
// and schedules a recurring check-in for top-segment people.
type Nurture struct {
	// Now is overridable for tests; zero value uses time.Now.
	Now func() time.Time
}

// Name implements Agent.
func (a *Nurture) Name() string { return "nurture" }

// InterestedIn implements Agent.
func (a *Nurture) InterestedIn(ev *event.SystemEvent) bool {
	switch {
	case ev.Category == event.CategoryRelationship:
		return true
	case ev.Type == event.TypeInteractionLogged:
		return true
	case ev.Type == event.TypeLifeEventDetected:
		return true
	}
	return false
}

// Propose implements Agent.
func (a *Nurture) Propose(_ context.Context, ev *event.SystemEvent, rc *Context) ([]action.Draft, error) {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}

	var drafts []action.Draft

	if gap := daysSinceContact(rc, now); gap >= nurtureGap {
		drafts = append(drafts, action.Draft{
			ActionType:   policy.ActionDraftFollowUp,
			RiskLevel:    action.RiskLow,
			TargetPerson: ev.SubjectPerson,
			ProposedContent: marshalContent(action.DraftContent{
				Kind:   "text",
				Prompt: fmt.Sprintf("Casual check-in after %d days of silence", gap),
			}),
			Reasoning: fmt.Sprintf("No contact recorded in %d days; relationships decay without touches.", gap),
		})
	}

	if rc != nil && rc.Person != nil && rc.Person.Segment == person.SegmentA {
		drafts = append(drafts, action.Draft{
			ActionType:   policy.ActionScheduleCheckin,
			RiskLevel:    action.RiskMedium,
			TargetPerson: ev.SubjectPerson,
			ProposedContent: marshalContent(action.TaskContent{
				Title: fmt.Sprintf("Quarterly check-in call with %s", rc.Person.FullName()),
			}),
			Reasoning: "A-segment relationship; standing check-ins protect top referral sources.",
		})
	}

	return drafts, nil
}
