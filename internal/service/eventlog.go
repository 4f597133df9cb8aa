package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	otelmw "github.com/rainmakerhq/rainmaker/internal/adapter/otel"
	"github.com/rainmakerhq/rainmaker/internal/agent"
	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
	"github.com/rainmakerhq/rainmaker/internal/port/eventlog"
	"github.com/rainmakerhq/rainmaker/internal/port/messagequeue"
)

// EventLogService handles the append-only event ledger and the stats view.
// Every successful append runs the agent pipeline for the new event before
// returning, so callers see a consistent world: event stored, interested
// agents proposed, signals evaluated.
type EventLogService struct {
	events   eventlog.Store
	store    database.Store
	registry *agent.Registry
	pipeline *PipelineService
	queue    messagequeue.Queue
	metrics  *otelmw.Metrics
}

// NewEventLogService creates an EventLogService.
func NewEventLogService(events eventlog.Store, store database.Store, registry *agent.Registry) *EventLogService {
	return &EventLogService{events: events, store: store, registry: registry}
}

// SetPipeline attaches the fan-out run after each append.
func (s *EventLogService) SetPipeline(p *PipelineService) { s.pipeline = p }

// SetQueue attaches the message queue for append notifications.
func (s *EventLogService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics attaches metric instruments.
func (s *EventLogService) SetMetrics(m *otelmw.Metrics) { s.metrics = m }

// Append validates and stores a new event, publishes it, and runs the
// pipeline for it. The database is the source of truth; a queue publish
// failure is logged and tolerated.
func (s *EventLogService) Append(ctx context.Context, req event.AppendRequest) (*event.SystemEvent, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("event type is required: %w", domain.ErrValidation)
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("unknown event category %q: %w", req.Category, domain.ErrValidation)
	}

	ev, err := s.events.Append(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EventsAppended.Add(ctx, 1)
	}

	if s.queue != nil {
		data, err := json.Marshal(messagequeue.EventAppendedPayload{
			EventID:   ev.ID,
			EventType: string(ev.Type),
			Category:  string(ev.Category),
			PersonID:  ev.SubjectPerson,
		})
		if err == nil {
			if err := s.queue.Publish(ctx, messagequeue.SubjectEventAppended, data); err != nil {
				slog.Warn("publish event appended failed", "event_id", ev.ID, "error", err)
			}
		}
	}

	if s.pipeline != nil {
		if err := s.pipeline.Process(ctx, ev); err != nil {
			slog.Error("pipeline failed", "event_id", ev.ID, "error", err)
		}
		// Re-read so the caller sees the processed-by ledger the fan-out
		// just wrote.
		if fresh, err := s.events.Get(ctx, ev.ID); err == nil {
			ev = fresh
		}
	}

	return ev, nil
}

// Get returns a single event by ID.
func (s *EventLogService) Get(ctx context.Context, id string) (*event.SystemEvent, error) {
	return s.events.Get(ctx, id)
}

// List returns events newest first, optionally filtered by category.
func (s *EventLogService) List(ctx context.Context, category event.Category, limit int) ([]event.SystemEvent, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("unknown event category %q: %w", category, domain.ErrValidation)
	}
	return s.events.List(ctx, category, limit)
}

// ListUnprocessed returns events some registered interested agent has not
// recorded against yet, oldest first. Processing is a per-agent set: an event
// partially covered after a failed fan-out still shows up here until every
// interested agent is on its ledger.
func (s *EventLogService) ListUnprocessed(ctx context.Context, category event.Category, limit int) ([]event.SystemEvent, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("unknown event category %q: %w", category, domain.ErrValidation)
	}

	candidates, err := s.events.ListUnprocessed(ctx, category, s.registry.Names(), limit)
	if err != nil {
		return nil, err
	}

	// The store over-matches: it cannot know which agents want which event,
	// only full coverage of the registry. Settle interest here.
	var pending []event.SystemEvent
	for _, ev := range candidates {
		interested := s.registry.InterestedIn(&ev)
		names := make([]string, len(interested))
		for i, a := range interested {
			names[i] = a.Name()
		}
		if len(names) > 0 && !ev.FullyProcessed(names) {
			pending = append(pending, ev)
		}
	}
	return pending, nil
}

// Replay re-runs the fan-out for events still missing an interested agent,
// picking up proposals lost to a crash or a partial admit failure. Agents
// already on an event's ledger are skipped inside the pipeline, so replaying
// never duplicates their actions.
func (s *EventLogService) Replay(ctx context.Context, limit int) (int, error) {
	if s.pipeline == nil {
		return 0, nil
	}

	pending, err := s.ListUnprocessed(ctx, "", limit)
	if err != nil {
		return 0, err
	}
	for i := range pending {
		if err := s.pipeline.Process(ctx, &pending[i]); err != nil {
			slog.Error("replay failed", "event_id", pending[i].ID, "error", err)
		}
	}
	return len(pending), nil
}

// MarkProcessed records an agent against an event. Idempotent. Only agents
// in the registry may appear on the ledger.
func (s *EventLogService) MarkProcessed(ctx context.Context, id, agentName string) error {
	if agentName == "" {
		return fmt.Errorf("agent name is required: %w", domain.ErrValidation)
	}
	if s.registry.Get(agentName) == nil {
		return fmt.Errorf("unknown agent %q: %w", agentName, domain.ErrValidation)
	}
	return s.events.MarkProcessed(ctx, id, agentName)
}

// Stats returns the aggregate view, combining ledger counts with the pending
// approval count and the registered agent set.
func (s *EventLogService) Stats(ctx context.Context) (*event.Stats, error) {
	stats, err := s.events.Stats(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.CountPendingActions(ctx)
	if err != nil {
		return nil, err
	}
	stats.PendingApprovals = pending
	stats.RegisteredAgents = s.registry.Names()
	return stats, nil
}
