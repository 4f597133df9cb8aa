// Package agent defines the Agent capability interface and the closed
// registry of agents that react to system events by proposing actions.
//
// Agents are stateless policies: a proposal is a pure mapping from an event
// and the current relationship context to zero or more action drafts. Agents
// never execute effects themselves and never assume another agent has run.
package agent

import (
	"context"

	"github.com/rainmakerhq/rainmaker/internal/domain/action"
	"github.com/rainmakerhq/rainmaker/internal/domain/event"
	"github.com/rainmakerhq/rainmaker/internal/domain/interaction"
	"github.com/rainmakerhq/rainmaker/internal/domain/person"
)

// Context is the relationship state handed to a proposal function. It is read
// fresh per event; agents must not cache it across events.
type Context struct {
	Person             *person.Person
	RecentInteractions []interaction.Interaction
	OpenDeals          int
}

// Agent is a named, stateless policy reacting to system events.
type Agent interface {
	// Name is the stable identifier recorded in the event's processed-by
	// ledger and on every action the agent proposes.
	Name() string

	// InterestedIn reports whether the agent wants to see the event.
	InterestedIn(ev *event.SystemEvent) bool

	// Propose maps the event and relationship context to zero or more
	// action drafts with a self-declared risk level. The pipeline clamps
	// declared risk against the central policy floor afterward.
	Propose(ctx context.Context, ev *event.SystemEvent, rc *Context) ([]action.Draft, error)
}

// Registry is the fixed table of registered agents. Agents are registered
// once at startup; there is no dynamic discovery.
type Registry struct {
	agents []Agent
}

// NewRegistry creates a registry over the given fixed agent set.
func NewRegistry(agents ...Agent) *Registry {
	return &Registry{agents: agents}
}

// DefaultRegistry returns the production agent set.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&LeadIntake{},
		&Nurture{},
		&TransactionOps{},
		&ContextEnrichment{},
		&Marketing{},
		&LifeEventDetection{},
	)
}

// Names returns the names of all registered agents, in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.Name()
	}
	return names
}

// InterestedIn returns the subset of agents that want to see the event.
func (r *Registry) InterestedIn(ev *event.SystemEvent) []Agent {
	var out []Agent
	for _, a := range r.agents {
		if a.InterestedIn(ev) {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the registered agent with the given name, or nil.
func (r *Registry) Get(name string) Agent {
	for _, a := range r.agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
