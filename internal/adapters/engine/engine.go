package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Engine drives workflow executions: it validates the definition, computes
// a deterministic topological order, runs nodes with per-node retry,
// timeout and cancellation, and aggregates the terminal result. Multiple
// executions may run concurrently; each is tracked in the active registry
// under its own execution id.
type Engine struct {
	cfg      domain.EngineConfig
	logger   *slog.Logger
	events   ports.EventsPort
	store    ports.WorkflowStore
	executor *NodeExecutor

	mu     sync.RWMutex
	active map[string]*activeExecution
}

type activeExecution struct {
	workflowID string
	def        *domain.WorkflowDefinition
	cancel     context.CancelFunc
	startedAt  time.Time
}

func NewEngine(cfg domain.EngineConfig, logger *slog.Logger, events ports.EventsPort, store ports.WorkflowStore, executor *NodeExecutor) *Engine {
	e := &Engine{
		cfg:      cfg,
		logger:   logger.With("component", "workflow-engine"),
		events:   events,
		store:    store,
		executor: executor,
		active:   make(map[string]*activeExecution),
	}
	executor.SetSubWorkflowRunner(e)
	return e
}

// Execute runs one workflow to its terminal result. Node-level failures are
// captured in the result, never returned as errors; only structural
// validation failures produce a non-nil error.
func (e *Engine) Execute(ctx context.Context, def *domain.WorkflowDefinition, initial map[string]interface{}) (*domain.WorkflowExecutionResult, error) {
	executionID := uuid.NewString()
	start := time.Now()

	result := &domain.WorkflowExecutionResult{
		WorkflowID:  def.ID,
		ExecutionID: executionID,
		NodeResults: make(map[string]*domain.NodeExecutionResult),
		StartTime:   start,
	}

	if err := ValidateDefinition(def); err != nil {
		result.Status = domain.WorkflowStatusFailed
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		e.logger.Error("workflow rejected by validation",
			"workflow_id", def.ID,
			"execution_id", executionID,
			"error", err.Error(),
		)
		return result, err
	}

	if err := e.register(executionID, def); err != nil {
		result.Status = domain.WorkflowStatusFailed
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		return result, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.setCancel(executionID, cancel)

	// The registry entry is always removed, whatever happens below, so
	// cancellation bookkeeping cannot leak across failures.
	defer func() {
		cancel()
		e.deregister(executionID)
	}()

	wctx := domain.NewWorkflowContext(def.ID, executionID, initial)
	order := TopologicalOrder(def)

	e.logger.Debug("starting workflow execution",
		"workflow_id", def.ID,
		"execution_id", executionID,
		"node_count", len(order),
	)
	e.events.EmitWorkflowStarted(&domain.WorkflowStartedEvent{
		WorkflowID:  def.ID,
		ExecutionID: executionID,
		StartedAt:   start,
		EntryNodes:  def.EntryNodes,
		Metadata:    def.Metadata,
	})

	cancelled := false
	anyFailed := false
	for i, nodeID := range order {
		if runCtx.Err() != nil {
			// Cancellation observed: everything not yet run is skipped.
			for _, rest := range order[i:] {
				result.NodeResults[rest] = skippedResult(rest)
			}
			cancelled = true
			break
		}

		node := def.NodeByID(nodeID)
		if !dependenciesSucceeded(node, result.NodeResults) {
			result.NodeResults[nodeID] = skippedResult(nodeID)
			e.logger.Debug("node skipped, dependency not successful",
				"workflow_id", def.ID,
				"execution_id", executionID,
				"node_id", nodeID,
			)
			continue
		}

		nodeResult := e.runNode(runCtx, def, node, wctx)
		result.NodeResults[nodeID] = nodeResult

		switch nodeResult.Status {
		case domain.NodeStatusSuccess:
			wctx.Outputs[nodeID] = nodeResult.Output
		case domain.NodeStatusFailed:
			anyFailed = true
		}
	}

	switch {
	case cancelled:
		result.Status = domain.WorkflowStatusPartial
	case anyFailed:
		result.Status = domain.WorkflowStatusFailed
	default:
		result.Status = domain.WorkflowStatusSuccess
	}
	result.Context = wctx
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)

	e.emitTerminal(result)
	e.persistHistory(ctx, result)

	return result, nil
}

// RunSubWorkflow satisfies the nested-workflow capability: a child
// execution is a full execution of its own, with its own execution id and
// registry entry.
func (e *Engine) RunSubWorkflow(ctx context.Context, def *domain.WorkflowDefinition, initial map[string]interface{}) (*domain.WorkflowExecutionResult, error) {
	return e.Execute(ctx, def, initial)
}

// Cancel requests cooperative cancellation: no new node starts, retry and
// timeout waits abort early, but an attempt already in flight is allowed
// to finish.
func (e *Engine) Cancel(executionID string) error {
	e.mu.RLock()
	exec, ok := e.active[executionID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("execution %q: %w", executionID, domain.ErrNotFound)
	}
	e.logger.Info("cancelling execution",
		"workflow_id", exec.workflowID,
		"execution_id", executionID,
	)
	exec.cancel()
	return nil
}

func (e *Engine) ActiveExecutions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	return ids
}

// NodeByID exposes node lookup within an active execution's definition for
// host introspection during a run.
func (e *Engine) NodeByID(executionID, nodeID string) (*domain.NodeConfig, error) {
	e.mu.RLock()
	exec, ok := e.active[executionID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("execution %q: %w", executionID, domain.ErrNotFound)
	}
	node := exec.def.NodeByID(nodeID)
	if node == nil {
		return nil, fmt.Errorf("node %q: %w", nodeID, domain.ErrNotFound)
	}
	return node, nil
}

func (e *Engine) register(executionID string, def *domain.WorkflowDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.MaxConcurrentExecutions > 0 && len(e.active) >= e.cfg.MaxConcurrentExecutions {
		return domain.ErrTooManyExecutions
	}
	e.active[executionID] = &activeExecution{
		workflowID: def.ID,
		def:        def,
		cancel:     func() {},
		startedAt:  time.Now(),
	}
	return nil
}

func (e *Engine) setCancel(executionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if exec, ok := e.active[executionID]; ok {
		exec.cancel = cancel
	}
}

func (e *Engine) deregister(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, executionID)
}

// runNode wraps one node execution in its retry envelope. Context
// overrides apply once, before the first attempt.
func (e *Engine) runNode(ctx context.Context, def *domain.WorkflowDefinition, node *domain.NodeConfig, wctx *domain.WorkflowContext) *domain.NodeExecutionResult {
	result := &domain.NodeExecutionResult{
		NodeID:    node.ID,
		Status:    domain.NodeStatusRunning,
		StartTime: time.Now(),
	}

	finalize := func() *domain.NodeExecutionResult {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		return result
	}

	if len(node.ContextOverrides) > 0 {
		if err := domain.MergeInto(wctx.Data, node.ContextOverrides); err != nil {
			result.Status = domain.NodeStatusFailed
			result.Error = domain.NewNodeConfigError(node.ID, node.Type, "context overrides are not mergeable: "+err.Error()).Error()
			result.Attempts = 0
			return finalize()
		}
	}

	policy := domain.RetryPolicy{MaxAttempts: 1, InitialDelay: domain.Duration(e.cfg.DefaultRetryDelay), Backoff: domain.BackoffLinear}
	if node.Retry != nil {
		policy = *node.Retry
		if policy.InitialDelay <= 0 {
			policy.InitialDelay = domain.Duration(e.cfg.DefaultRetryDelay)
		}
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	e.events.EmitNodeStarted(&domain.NodeStartedEvent{
		WorkflowID:  wctx.WorkflowID,
		ExecutionID: wctx.ExecutionID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		StartedAt:   result.StartTime,
		Attempt:     1,
	})

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Cancellation is checked before each attempt.
		if ctx.Err() != nil {
			break
		}
		attempts = attempt
		attemptStart := time.Now()

		output, err := e.executeOnce(ctx, def, node, wctx)
		if err == nil {
			result.Status = domain.NodeStatusSuccess
			result.Output = output
			result.Attempts = attempts
			finalize()
			e.events.EmitNodeCompleted(&domain.NodeCompletedEvent{
				WorkflowID:  wctx.WorkflowID,
				ExecutionID: wctx.ExecutionID,
				NodeID:      node.ID,
				NodeType:    node.Type,
				Output:      output,
				CompletedAt: result.EndTime,
				Duration:    result.Duration,
				Attempts:    attempts,
			})
			return result
		}

		lastErr = err
		e.logger.Error("node attempt failed",
			"workflow_id", wctx.WorkflowID,
			"execution_id", wctx.ExecutionID,
			"node_id", node.ID,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err.Error(),
		)
		e.events.EmitNodeError(&domain.NodeErrorEvent{
			WorkflowID:  wctx.WorkflowID,
			ExecutionID: wctx.ExecutionID,
			NodeID:      node.ID,
			NodeType:    node.Type,
			Error:       err.Error(),
			FailedAt:    time.Now(),
			Duration:    time.Since(attemptStart),
			Attempt:     attempt,
			Recoverable: attempt < maxAttempts,
		})

		if attempt < maxAttempts {
			select {
			case <-time.After(policy.Delay(attempt)):
			case <-ctx.Done():
				// Abort the retry wait; the node keeps its last error.
			}
		}
	}

	if attempts == 0 && lastErr == nil {
		// Cancelled before the first attempt could start.
		result.Status = domain.NodeStatusSkipped
		return finalize()
	}

	result.Status = domain.NodeStatusFailed
	result.Attempts = attempts
	if lastErr != nil {
		result.Error = domain.NewNodeError(node.ID, lastErr).Error()
	} else {
		result.Error = domain.ErrCancelled.Error()
	}
	return finalize()
}

// executeOnce runs a single attempt with panic containment and the node's
// timeout raced against the execution. A timed attempt runs against a deep
// clone of the context: if it finishes in time its writes are folded back,
// if it times out the abandoned goroutine keeps only the clone, so it can
// never race the shared context the scheduler continues with.
func (e *Engine) executeOnce(ctx context.Context, def *domain.WorkflowDefinition, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	timeout := node.Timeout.Std()
	if timeout <= 0 {
		timeout = e.cfg.DefaultNodeTimeout
	}

	execCtx := ctx
	var cancel context.CancelFunc
	attemptCtx := wctx
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		clone, err := wctx.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to isolate context for timed attempt: %w", err)
		}
		attemptCtx = clone
	}

	type outcome struct {
		output interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)
				done <- outcome{err: &domain.PanicError{
					NodeID:     node.ID,
					PanicValue: r,
					StackTrace: string(buf[:n]),
				}}
			}
		}()
		output, err := e.executor.Execute(execCtx, def, node, attemptCtx)
		done <- outcome{output: output, err: err}
	}()

	if timeout > 0 {
		select {
		case oc := <-done:
			wctx.Adopt(attemptCtx)
			return oc.output, oc.err
		case <-execCtx.Done():
			if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
				// The attempt keeps running against its clone until it
				// observes the context; its writes are discarded.
				return nil, &domain.TimeoutError{NodeID: node.ID, Timeout: timeout}
			}
			// Parent cancellation: the in-flight attempt may finish.
			oc := <-done
			wctx.Adopt(attemptCtx)
			return oc.output, oc.err
		}
	}

	oc := <-done
	return oc.output, oc.err
}

func (e *Engine) emitTerminal(result *domain.WorkflowExecutionResult) {
	if result.Status == domain.WorkflowStatusFailed {
		failed := make([]string, 0)
		firstError := ""
		for _, nodeResult := range result.NodeResults {
			if nodeResult.Status == domain.NodeStatusFailed {
				failed = append(failed, nodeResult.NodeID)
				if firstError == "" {
					firstError = nodeResult.Error
				}
			}
		}
		e.events.EmitWorkflowError(&domain.WorkflowErrorEvent{
			WorkflowID:  result.WorkflowID,
			ExecutionID: result.ExecutionID,
			Error:       firstError,
			FailedNodes: failed,
			FailedAt:    result.EndTime,
		})
	}
	e.events.EmitWorkflowCompleted(&domain.WorkflowCompletedEvent{
		WorkflowID:  result.WorkflowID,
		ExecutionID: result.ExecutionID,
		Status:      result.Status,
		CompletedAt: result.EndTime,
		Duration:    result.Duration,
		NodeCount:   len(result.NodeResults),
	})

	e.logger.Info("workflow execution finished",
		"workflow_id", result.WorkflowID,
		"execution_id", result.ExecutionID,
		"status", string(result.Status),
		"duration", result.Duration,
		"node_count", len(result.NodeResults),
	)
}

func (e *Engine) persistHistory(ctx context.Context, result *domain.WorkflowExecutionResult) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveExecution(ctx, result); err != nil {
		e.logger.Error("failed to persist execution history",
			"workflow_id", result.WorkflowID,
			"execution_id", result.ExecutionID,
			"error", err.Error(),
		)
	}
}

func dependenciesSucceeded(node *domain.NodeConfig, results map[string]*domain.NodeExecutionResult) bool {
	for _, dep := range node.Dependencies {
		depResult, ok := results[dep]
		if !ok || depResult.Status != domain.NodeStatusSuccess {
			return false
		}
	}
	return true
}

func skippedResult(nodeID string) *domain.NodeExecutionResult {
	now := time.Now()
	return &domain.NodeExecutionResult{
		NodeID:    nodeID,
		Status:    domain.NodeStatusSkipped,
		StartTime: now,
		EndTime:   now,
	}
}
