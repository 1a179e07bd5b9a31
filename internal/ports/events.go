package ports

import (
	"github.com/osier-labs/weave/internal/domain"
)

// ExecutionListener receives every lifecycle event of every execution.
type ExecutionListener func(eventType domain.EventType, event interface{})

// EventsPort is the lifecycle event stream. Delivery is best-effort,
// in-process and synchronous per emission: a slow subscriber can delay the
// next emission but never node execution ordering.
type EventsPort interface {
	OnWorkflowStarted(handler func(*domain.WorkflowStartedEvent))
	OnWorkflowCompleted(handler func(*domain.WorkflowCompletedEvent))
	OnWorkflowError(handler func(*domain.WorkflowErrorEvent))
	OnNodeStarted(handler func(*domain.NodeStartedEvent))
	OnNodeCompleted(handler func(*domain.NodeCompletedEvent))
	OnNodeError(handler func(*domain.NodeErrorEvent))
	Subscribe(listener ExecutionListener)

	EmitWorkflowStarted(event *domain.WorkflowStartedEvent)
	EmitWorkflowCompleted(event *domain.WorkflowCompletedEvent)
	EmitWorkflowError(event *domain.WorkflowErrorEvent)
	EmitNodeStarted(event *domain.NodeStartedEvent)
	EmitNodeCompleted(event *domain.NodeCompletedEvent)
	EmitNodeError(event *domain.NodeErrorEvent)
}
