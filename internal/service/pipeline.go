package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	otelmw "github.com/rainmakerhq/rainmaker/internal/adapter/otel"
	"github.com/rainmakerhq/rainmaker/internal/adapter/ws"
	"github.com/rainmakerhq/rainmaker/internal/agent"
	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/policy"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
	"github.com/rainmakerhq/rainmaker/internal/port/eventlog"
	"github.com/rainmakerhq/rainmaker/internal/port/messagequeue"
)

// PipelineService fans one event out to every interested agent, persists the
// resulting proposals, and routes them through the approval gate: low risk
// auto-approves and dispatches, medium and high wait for a human.
type PipelineService struct {
	events      eventlog.Store
	store       database.Store
	registry    *agent.Registry
	contexts    *ContextProvider
	dispatcher  *DispatchService
	signals     *SignalService
	hub         *ws.Hub
	queue       messagequeue.Queue
	metrics     *otelmw.Metrics
	maxParallel int
}

// NewPipelineService creates a PipelineService.
func NewPipelineService(events eventlog.Store, store database.Store, registry *agent.Registry, contexts *ContextProvider, dispatcher *DispatchService, maxParallel int) *PipelineService {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &PipelineService{
		events:      events,
		store:       store,
		registry:    registry,
		contexts:    contexts,
		dispatcher:  dispatcher,
		maxParallel: maxParallel,
	}
}

// SetSignals attaches the signal engine evaluated after the agent fan-out.
func (s *PipelineService) SetSignals(sig *SignalService) { s.signals = sig }

// SetHub attaches the WebSocket hub for pending-approval notifications.
func (s *PipelineService) SetHub(h *ws.Hub) { s.hub = h }

// SetQueue attaches the message queue for pending-approval notifications.
func (s *PipelineService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics attaches metric instruments.
func (s *PipelineService) SetMetrics(m *otelmw.Metrics) { s.metrics = m }

// Process runs the agent fan-out for one event. Each interested agent
// proposes independently: one agent failing, panicking, or proposing garbage
// never blocks the others, and only agents that succeeded are recorded in the
// event's processed-by ledger.
func (s *PipelineService) Process(ctx context.Context, ev *event.SystemEvent) error {
	ctx, span := otelmw.StartPipelineSpan(ctx, ev.ID, string(ev.Type))
	defer span.End()
	start := time.Now()

	var rc *agent.Context
	if ev.SubjectPerson != "" {
		loaded, err := s.contexts.Load(ctx, ev.SubjectPerson)
		if err != nil {
			return fmt.Errorf("process event %s: %w", ev.ID, err)
		}
		rc = loaded
	}

	if interested := s.registry.InterestedIn(ev); len(interested) > 0 {
		g := new(errgroup.Group)
		g.SetLimit(s.maxParallel)

		for _, ag := range interested {
			if ev.ProcessedByAgent(ag.Name()) {
				continue
			}
			g.Go(func() error {
				s.runAgent(ctx, ag, ev, rc)
				return nil
			})
		}
		// Errors never propagate out of runAgent; Wait only joins the goroutines.
		_ = g.Wait()
	}

	// The signal engine looks at every event, not just the ones agents claim.
	if s.signals != nil {
		if err := s.signals.EvaluateEvent(ctx, ev, rc); err != nil {
			slog.Error("signal evaluation failed", "event_id", ev.ID, "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	}
	return nil
}

// runAgent executes one agent's proposal with panic recovery and admits each
// draft it returns.
func (s *PipelineService) runAgent(ctx context.Context, ag agent.Agent, ev *event.SystemEvent, rc *agent.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent panicked", "agent", ag.Name(), "event_id", ev.ID, "panic", r)
			if s.metrics != nil {
				s.metrics.ProposalFailures.Add(ctx, 1)
			}
		}
	}()

	drafts, err := ag.Propose(ctx, ev, rc)
	if err != nil {
		slog.Error("agent proposal failed", "agent", ag.Name(), "event_id", ev.ID, "error", err)
		if s.metrics != nil {
			s.metrics.ProposalFailures.Add(ctx, 1)
		}
		return
	}

	admitted := true
	for _, d := range drafts {
		if err := s.admit(ctx, ev, ag.Name(), d); err != nil {
			slog.Error("admit proposal failed", "agent", ag.Name(), "event_id", ev.ID, "action_type", d.ActionType, "error", err)
			admitted = false
		}
	}
	if !admitted {
		// Leave the agent off the ledger so a replay retries its proposals.
		return
	}

	if err := s.events.MarkProcessed(ctx, ev.ID, ag.Name()); err != nil {
		slog.Error("mark processed failed", "agent", ag.Name(), "event_id", ev.ID, "error", err)
	}
}

// admit persists one proposal, clamping its declared risk against the central
// policy floor, and routes it: low risk auto-approves and dispatches, the
// rest enter the approval queue.
func (s *PipelineService) admit(ctx context.Context, ev *event.SystemEvent, agentName string, d action.Draft) error {
	risk := policy.Clamp(d.ActionType, d.RiskLevel)

	created, err := s.store.CreateAction(ctx, &action.AgentAction{
		EventID:         ev.ID,
		AgentName:       agentName,
		ActionType:      d.ActionType,
		RiskLevel:       risk,
		Status:          action.StatusProposed,
		TargetPerson:    d.TargetPerson,
		TargetDeal:      d.TargetDeal,
		TargetEntity:    d.TargetEntity,
		TargetEntityID:  d.TargetEntityID,
		ProposedContent: d.ProposedContent,
		Reasoning:       d.Reasoning,
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ProposalsCreated.Add(ctx, 1)
	}

	if !risk.RequiresApproval() {
		approved, err := s.store.DecideAction(ctx, created.ID, action.StatusApproved, action.AutoApprover)
		if err != nil {
			return err
		}
		if _, err := s.dispatcher.ExecuteAction(ctx, approved); err != nil {
			// The action is recorded failed; the proposal itself stands.
			slog.Error("auto-approved action failed", "action_id", approved.ID, "error", err)
		}
		return nil
	}

	s.notifyPending(ctx, created)
	return nil
}

// notifyPending surfaces a medium/high proposal to the dashboard and the
// queue so nobody has to poll the approval list.
func (s *PipelineService) notifyPending(ctx context.Context, a *action.AgentAction) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventActionPending, ws.ActionPendingEvent{
			ActionID:   a.ID,
			AgentName:  a.AgentName,
			ActionType: a.ActionType,
			RiskLevel:  string(a.RiskLevel),
			PersonID:   a.TargetPerson,
			Reasoning:  a.Reasoning,
		})
	}
	if s.queue != nil {
		data, err := json.Marshal(messagequeue.ActionPayload{
			ActionID:   a.ID,
			AgentName:  a.AgentName,
			ActionType: a.ActionType,
			RiskLevel:  string(a.RiskLevel),
			Status:     string(a.Status),
		})
		if err == nil {
			if err := s.queue.Publish(ctx, messagequeue.SubjectActionPending, data); err != nil {
				slog.Warn("publish action pending failed", "action_id", a.ID, "error", err)
			}
		}
	}
}
