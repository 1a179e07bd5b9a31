package ports

import (
	"context"

	"github.com/osier-labs/weave/internal/domain"
)

// CustomExecutor is an extension-provided execution routine for a custom
// node kind.
type CustomExecutor func(ctx context.Context, config map[string]interface{}, wctx *domain.WorkflowContext) (interface{}, error)

// CustomNodeRegistry resolves extension executors by kind. An unresolved
// kind is a hard error at dispatch.
type CustomNodeRegistry interface {
	Register(kind string, executor CustomExecutor) error
	Resolve(kind string) (CustomExecutor, bool)
}
