package ports

import (
	"context"

	"github.com/osier-labs/weave/internal/domain"
)

// EnginePort drives one workflow execution from start to terminal result.
type EnginePort interface {
	// Execute runs the workflow to completion and never returns an error
	// for node-level failures; those are captured in the result. It
	// returns an error only for structural validation failures before
	// execution starts, or for programming errors.
	Execute(ctx context.Context, def *domain.WorkflowDefinition, initial map[string]interface{}) (*domain.WorkflowExecutionResult, error)

	// Cancel requests cooperative cancellation of an active execution.
	Cancel(executionID string) error

	// ActiveExecutions lists the execution ids currently in flight.
	ActiveExecutions() []string

	// NodeByID looks up a node in the definition of an active execution.
	NodeByID(executionID, nodeID string) (*domain.NodeConfig, error)
}

// SubWorkflowRunner is the capability handed to the node executor for
// nested workflow dispatch, so the executor never holds a circular engine
// reference.
type SubWorkflowRunner interface {
	RunSubWorkflow(ctx context.Context, def *domain.WorkflowDefinition, initial map[string]interface{}) (*domain.WorkflowExecutionResult, error)
}
