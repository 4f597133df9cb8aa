package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "rainmaker"

// Metrics holds all orchestrator metric instruments.
type Metrics struct {
	EventsAppended   metric.Int64Counter
	ProposalsCreated metric.Int64Counter
	ProposalFailures metric.Int64Counter
	ActionsExecuted  metric.Int64Counter
	ActionsFailed    metric.Int64Counter
	SignalsCreated   metric.Int64Counter
	SignalsExpired   metric.Int64Counter
	PipelineDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsAppended, err = meter.Int64Counter("rainmaker.events.appended",
		metric.WithDescription("Number of events appended to the ledger"))
	if err != nil {
		return nil, err
	}

	m.ProposalsCreated, err = meter.Int64Counter("rainmaker.proposals.created",
		metric.WithDescription("Number of agent action proposals"))
	if err != nil {
		return nil, err
	}

	m.ProposalFailures, err = meter.Int64Counter("rainmaker.proposals.failed",
		metric.WithDescription("Number of agent proposal failures"))
	if err != nil {
		return nil, err
	}

	m.ActionsExecuted, err = meter.Int64Counter("rainmaker.actions.executed",
		metric.WithDescription("Number of actions executed"))
	if err != nil {
		return nil, err
	}

	m.ActionsFailed, err = meter.Int64Counter("rainmaker.actions.failed",
		metric.WithDescription("Number of action executions that failed"))
	if err != nil {
		return nil, err
	}

	m.SignalsCreated, err = meter.Int64Counter("rainmaker.signals.created",
		metric.WithDescription("Number of follow-up signals created"))
	if err != nil {
		return nil, err
	}

	m.SignalsExpired, err = meter.Int64Counter("rainmaker.signals.expired",
		metric.WithDescription("Number of follow-up signals expired by the sweeper"))
	if err != nil {
		return nil, err
	}

	m.PipelineDuration, err = meter.Float64Histogram("rainmaker.pipeline.duration_seconds",
		metric.WithDescription("Event pipeline fan-out duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
