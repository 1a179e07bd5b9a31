package ports

import (
	"context"

	"github.com/osier-labs/weave/internal/domain"
)

// WorkflowStore persists workflow definitions and execution history. Load
// methods return domain.ErrNotFound when the id is unknown.
type WorkflowStore interface {
	SaveDefinition(ctx context.Context, def *domain.WorkflowDefinition) error
	LoadDefinition(ctx context.Context, id string) (*domain.WorkflowDefinition, error)

	SaveExecution(ctx context.Context, result *domain.WorkflowExecutionResult) error
	LoadExecution(ctx context.Context, executionID string) (*domain.WorkflowExecutionResult, error)
}
