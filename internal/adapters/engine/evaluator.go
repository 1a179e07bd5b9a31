package engine

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/osier-labs/weave/internal/domain"
)

// Evaluator compiles and runs author-supplied expressions against the
// restricted binding set {context, outputs, variables}. Programs are cached
// per expression source; the evaluator is safe for concurrent use.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[string]*vm.Program)}
}

func (ev *Evaluator) Evaluate(expression string, wctx *domain.WorkflowContext) (interface{}, error) {
	program, err := ev.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	out, err := expr.Run(program, wctx.ExpressionEnv())
	if err != nil {
		return nil, fmt.Errorf("expression %q failed: %w", expression, err)
	}
	return out, nil
}

// EvaluateBool requires the expression to produce a boolean; a non-boolean
// result is an error, not a truthiness coercion.
func (ev *Evaluator) EvaluateBool(expression string, wctx *domain.WorkflowContext) (bool, error) {
	out, err := ev.Evaluate(expression, wctx)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q evaluated to %T, expected bool", expression, out)
	}
	return result, nil
}

func (ev *Evaluator) compile(expression string) (*vm.Program, error) {
	ev.mu.RLock()
	program, ok := ev.programs[expression]
	ev.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	ev.mu.Lock()
	ev.programs[expression] = program
	ev.mu.Unlock()
	return program, nil
}
