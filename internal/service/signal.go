package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	otelmw "github.com/rainmakerhq/rainmaker/internal/adapter/otel"
	"github.com/rainmakerhq/rainmaker/internal/adapter/ws"
	"github.com/rainmakerhq/rainmaker/internal/agent"
	"github.com/rainmakerhq/rainmaker/internal/config"
	"github.com/rainmakerhq/rainmaker/internal/cue"
	"github.com/rainmakerhq/rainmaker/internal/domain"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/outreach"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
	"github.com/rainmakerhq/rainmaker/internal/domain/signal"
	"github.com/rainmakerhq/rainmaker/internal/port/database"
	"github.com/rainmakerhq/rainmaker/internal/port/messagequeue"
)

// SignalService turns logged conversations into scored follow-up prompts and
// handles their one-tap resolution lifecycle.
type SignalService struct {
	store      database.Store
	dispatcher *DispatchService
	hub        *ws.Hub
	queue      messagequeue.Queue
	metrics    *otelmw.Metrics
	cfg        config.Signals

	// now is swappable for tests.
	now func() time.Time
}

// NewSignalService creates a SignalService.
func NewSignalService(store database.Store, dispatcher *DispatchService, cfg config.Signals) *SignalService {
	return &SignalService{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetHub attaches the WebSocket hub for signal notifications.
func (s *SignalService) SetHub(h *ws.Hub) { s.hub = h }

// SetQueue attaches the message queue for signal notifications.
func (s *SignalService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics attaches metric instruments.
func (s *SignalService) SetMetrics(m *otelmw.Metrics) { s.metrics = m }

// EvaluateEvent scores a logged conversation and creates a follow-up signal
// when the score clears the configured threshold. Other event types never
// produce signals.
func (s *SignalService) EvaluateEvent(ctx context.Context, ev *event.SystemEvent, rc *agent.Context) error {
	if ev.Type != event.TypeInteractionLogged || rc == nil || rc.Person == nil {
		return nil
	}

	var payload event.InteractionLoggedPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("decode interaction payload: %w", err)
		}
	}

	score, reasoning := scoreFollowUp(rc.Person, payload.Content+" "+payload.Summary, s.now())
	if score < s.cfg.ScoreThreshold {
		return nil
	}

	created, err := s.store.CreateSignal(ctx, signal.CreateRequest{
		PersonID:      rc.Person.ID,
		InteractionID: payload.InteractionID,
		Reasoning:     reasoning,
		PriorityScore: score,
		ExpiresAt:     s.now().Add(s.cfg.Expiry),
	})
	if err != nil {
		return err
	}

	slog.Info("follow-up signal created",
		"signal_id", created.ID,
		"person_id", created.PersonID,
		"score", created.PriorityScore,
	)
	if s.metrics != nil {
		s.metrics.SignalsCreated.Add(ctx, 1)
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventSignalCreated, ws.SignalCreatedEvent{
			SignalID:      created.ID,
			PersonID:      created.PersonID,
			PriorityScore: created.PriorityScore,
			Reasoning:     created.Reasoning,
		})
	}
	s.publish(ctx, messagequeue.SubjectSignalCreated, created)

	return nil
}

// Get returns a signal by ID.
func (s *SignalService) Get(ctx context.Context, id string) (*signal.FollowUpSignal, error) {
	return s.store.GetSignal(ctx, id)
}

// List returns actionable signals with person summaries, highest priority
// first.
func (s *SignalService) List(ctx context.Context, limit int) ([]database.SignalWithPerson, error) {
	return s.store.ListSignals(ctx, limit)
}

// Resolve applies a one-tap resolution. Non-skip resolutions produce exactly
// one artifact through the dispatcher; skip produces nothing and opens the
// undo window.
func (s *SignalService) Resolve(ctx context.Context, id string, rt signal.ResolutionType) (*signal.FollowUpSignal, *outreach.ArtifactRef, error) {
	if !rt.Valid() {
		return nil, nil, fmt.Errorf("unknown resolution type %q: %w", rt, domain.ErrValidation)
	}

	resolved, err := s.store.ResolveSignal(ctx, id, rt, s.now())
	if err != nil {
		return nil, nil, err
	}

	var artifact *outreach.ArtifactRef
	if rt.CreatesArtifact() {
		artifact, err = s.dispatcher.ExecuteResolution(ctx, resolved)
		if err != nil {
			return resolved, nil, err
		}
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventSignalResolved, ws.SignalResolvedEvent{
			SignalID:       resolved.ID,
			Status:         string(resolved.Status),
			ResolutionType: string(resolved.ResolutionType),
		})
	}
	s.publish(ctx, messagequeue.SubjectSignalResolved, resolved)

	return resolved, artifact, nil
}

// Undo returns a skipped signal to pending. Valid only for skip resolutions
// inside the undo window.
func (s *SignalService) Undo(ctx context.Context, id string) (*signal.FollowUpSignal, error) {
	restored, err := s.store.UndoSignal(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventSignalResolved, ws.SignalResolvedEvent{
			SignalID: restored.ID,
			Status:   string(restored.Status),
		})
	}
	s.publish(ctx, messagequeue.SubjectSignalResolved, restored)

	return restored, nil
}

// StartSweeper launches the background expiry sweep and returns a stop
// function. Each tick is one idempotent UPDATE; a missed tick just means the
// next one flips more rows, and reads already filter expired signals out.
func (s *SignalService) StartSweeper(ctx context.Context) func() {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.ExpireSignals(ctx, s.now())
				if err != nil {
					slog.Error("signal sweep failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("signals expired", "count", n)
					if s.metrics != nil {
						s.metrics.SignalsExpired.Add(ctx, int64(n))
					}
				}
			}
		}
	}()

	return cancel
}

func (s *SignalService) publish(ctx context.Context, subject string, sg *signal.FollowUpSignal) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.SignalPayload{
		SignalID:       sg.ID,
		PersonID:       sg.PersonID,
		PriorityScore:  sg.PriorityScore,
		Status:         string(sg.Status),
		ResolutionType: string(sg.ResolutionType),
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish signal failed", "signal_id", sg.ID, "subject", subject, "error", err)
	}
}

// scoreFollowUp computes a priority score and a reasoning string that quotes
// the concrete cues behind it. Segment sets the base, staleness of contact
// and explicit cues in the conversation add to it.
func scoreFollowUp(p *person.Person, content string, now time.Time) (int, string) {
	score := 0
	var parts []string

	switch p.Segment {
	case person.SegmentA:
		score += 40
	case person.SegmentB:
		score += 30
	case person.SegmentC:
		score += 20
	default:
		score += 10
	}
	parts = append(parts, fmt.Sprintf("segment %s client", p.Segment))

	if p.LastContactedAt == nil {
		score += 25
		parts = append(parts, "no recorded contact")
	} else {
		days := int(now.Sub(*p.LastContactedAt).Hours() / 24)
		switch {
		case days > 90:
			score += 25
			parts = append(parts, fmt.Sprintf("no contact in %d days", days))
		case days > 30:
			score += 15
			parts = append(parts, fmt.Sprintf("no contact in %d days", days))
		case days > 7:
			score += 5
			parts = append(parts, fmt.Sprintf("last contact %d days ago", days))
		}
	}

	if m, ok := cue.Urgency(content); ok {
		score += 30
		parts = append(parts, fmt.Sprintf("mentioned %q", m.Phrase))
	}
	if m, ok := cue.LifeEvent(content); ok {
		score += 25
		parts = append(parts, fmt.Sprintf("life event: %q", m.Phrase))
	}
	if m, ok := cue.FORDTopic(content); ok {
		score += 10
		parts = append(parts, fmt.Sprintf("talked about %s (%q)", m.Label, m.Phrase))
	}

	reasoning := parts[0]
	for _, p := range parts[1:] {
		reasoning += "; " + p
	}
	return score, reasoning
}
