package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// NodeExecutor executes exactly one node given its fully-resolved type and
// the live context. It dispatches by type tag, maps inputs and outputs
// through dot-paths, and delegates every external effect to a collaborator
// port.
type NodeExecutor struct {
	logger    *slog.Logger
	cfg       domain.EngineConfig
	eval      *Evaluator
	models    ports.ModelProvider
	vectors   ports.VectorStore
	store     ports.WorkflowStore
	scripts   ports.ScriptRunner
	commands  ports.CommandRunner
	downloads ports.Downloader
	actions   ports.ActionDispatcher
	custom    ports.CustomNodeRegistry
	http      ports.HTTPClient

	// sub is the capability for nested workflow dispatch, injected by the
	// engine so ownership stays acyclic.
	sub ports.SubWorkflowRunner
}

type ExecutorDeps struct {
	Models    ports.ModelProvider
	Vectors   ports.VectorStore
	Store     ports.WorkflowStore
	Scripts   ports.ScriptRunner
	Commands  ports.CommandRunner
	Downloads ports.Downloader
	Actions   ports.ActionDispatcher
	Custom    ports.CustomNodeRegistry
	HTTP      ports.HTTPClient
}

func NewNodeExecutor(cfg domain.EngineConfig, logger *slog.Logger, deps ExecutorDeps) *NodeExecutor {
	return &NodeExecutor{
		logger:    logger.With("component", "node-executor"),
		cfg:       cfg,
		eval:      NewEvaluator(),
		models:    deps.Models,
		vectors:   deps.Vectors,
		store:     deps.Store,
		scripts:   deps.Scripts,
		commands:  deps.Commands,
		downloads: deps.Downloads,
		actions:   deps.Actions,
		custom:    deps.Custom,
		http:      deps.HTTP,
	}
}

// SetSubWorkflowRunner wires the nested-workflow capability after the
// engine is constructed.
func (x *NodeExecutor) SetSubWorkflowRunner(sub ports.SubWorkflowRunner) {
	x.sub = sub
}

// Execute dispatches one node. Configuration is checked for the minimal
// per-type fields first so misconfiguration surfaces as a descriptive
// error rather than a failure deep inside the routine.
func (x *NodeExecutor) Execute(ctx context.Context, def *domain.WorkflowDefinition, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if err := validateNodeConfig(node); err != nil {
		return nil, err
	}

	x.logger.Debug("dispatching node",
		"workflow_id", wctx.WorkflowID,
		"execution_id", wctx.ExecutionID,
		"node_id", node.ID,
		"node_type", string(node.Type),
	)

	switch node.Type {
	case domain.NodeTypeCondition:
		return x.executeCondition(ctx, def, node, wctx)
	case domain.NodeTypeLoop:
		return x.executeLoop(ctx, def, node, wctx)
	case domain.NodeTypeModel:
		return x.executeModel(ctx, node, wctx)
	case domain.NodeTypeDownload:
		return x.executeDownload(ctx, node, wctx)
	case domain.NodeTypeScript:
		return x.executeScript(ctx, node, wctx)
	case domain.NodeTypeAPICall:
		return x.executeAPICall(ctx, node, wctx)
	case domain.NodeTypeGitHubAction:
		return x.executeGitHubAction(ctx, node, wctx)
	case domain.NodeTypeOSCommand:
		return x.executeOSCommand(ctx, node, wctx)
	case domain.NodeTypeVectorGeneration:
		return x.executeVectorGeneration(ctx, node, wctx)
	case domain.NodeTypeContextInjection:
		return x.executeContextInjection(node, wctx)
	case domain.NodeTypeNestedWorkflow:
		return x.executeNestedWorkflow(ctx, node, wctx)
	case domain.NodeTypeParallel:
		return x.executeParallel(ctx, def, node, wctx)
	case domain.NodeTypeCustom:
		return x.executeCustom(ctx, node, wctx)
	default:
		// Unreachable after validation; reaching it is a defect.
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownNodeType, node.Type)
	}
}

// runChild executes a child node referenced by a condition, loop or
// parallel parent. Children run through the same dispatch but without
// their own retry envelope; a successful child's output is recorded in the
// context the child ran against.
func (x *NodeExecutor) runChild(ctx context.Context, def *domain.WorkflowDefinition, childID string, wctx *domain.WorkflowContext) (interface{}, error) {
	child := def.NodeByID(childID)
	if child == nil {
		return nil, fmt.Errorf("child node %q: %w", childID, domain.ErrNotFound)
	}
	out, err := x.Execute(ctx, def, child, wctx)
	if err != nil {
		return nil, domain.NewNodeError(childID, err)
	}
	wctx.Outputs[childID] = out
	return out, nil
}

func (x *NodeExecutor) executeCondition(ctx context.Context, def *domain.WorkflowDefinition, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	cfg := node.Condition
	result, err := x.eval.EvaluateBool(cfg.Expression, wctx)
	if err != nil {
		return nil, err
	}

	branch := cfg.FalseBranch
	branchName := "false"
	if result {
		branch = cfg.TrueBranch
		branchName = "true"
	}

	// Branch nodes share the parent's context and run in list order; a
	// branch-node failure aborts the condition node with that error.
	executed := make([]string, 0, len(branch))
	for _, childID := range branch {
		if _, err := x.runChild(ctx, def, childID, wctx); err != nil {
			return nil, err
		}
		executed = append(executed, childID)
	}

	return map[string]interface{}{
		"result":   result,
		"branch":   branchName,
		"executed": executed,
	}, nil
}

func (x *NodeExecutor) executeLoop(ctx context.Context, def *domain.WorkflowDefinition, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	cfg := node.Loop
	source, ok := wctx.Resolve(cfg.Source)
	if !ok {
		return nil, fmt.Errorf("loop source %q not found in context", cfg.Source)
	}
	items, ok := source.([]interface{})
	if !ok {
		return nil, fmt.Errorf("loop source %q resolved to %T, expected array", cfg.Source, source)
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = x.cfg.MaxLoopIterations
	}
	total := len(items)
	if total > maxIterations {
		total = maxIterations
	}

	type iterationResult struct {
		Index    int                    `json:"index"`
		Children map[string]interface{} `json:"children"`
		Failed   bool                   `json:"failed"`
	}

	iterations := make([]iterationResult, 0, total)
	for i := 0; i < total; i++ {
		// Every iteration gets its own deep copy so a writing child
		// cannot leak into its siblings or the parent lineage.
		iterCtx, err := wctx.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone context for iteration %d: %w", i, err)
		}
		iterCtx.Variables["$iteration"] = i
		iterCtx.Variables["$index"] = i
		iterCtx.Variables["$item"] = items[i]
		iterCtx.Variables["$total"] = total

		iteration := iterationResult{Index: i, Children: make(map[string]interface{}, len(cfg.Children))}
		for _, childID := range cfg.Children {
			out, err := x.runChild(ctx, def, childID, iterCtx)
			if err != nil {
				// A child failure is recorded but does not abort the
				// remaining iterations.
				iteration.Children[childID] = map[string]interface{}{"status": string(domain.NodeStatusFailed), "error": err.Error()}
				iteration.Failed = true
				x.logger.Debug("loop child failed",
					"workflow_id", wctx.WorkflowID,
					"node_id", node.ID,
					"child_id", childID,
					"iteration", i,
					"error", err.Error(),
				)
				continue
			}
			iteration.Children[childID] = map[string]interface{}{"status": string(domain.NodeStatusSuccess), "output": out}
		}
		iterations = append(iterations, iteration)
	}

	return map[string]interface{}{
		"iterations": total,
		"results":    iterations,
	}, nil
}

func (x *NodeExecutor) executeModel(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.models == nil {
		return nil, fmt.Errorf("no model provider configured")
	}
	cfg := node.Model

	var info *ports.ModelInfo
	var err error
	if cfg.ModelID != "" {
		info, err = x.models.GetModel(ctx, cfg.ModelID)
	} else {
		info, err = x.models.SelectByTags(ctx, cfg.Tags)
	}
	if err != nil {
		return nil, fmt.Errorf("model resolution failed: %w", err)
	}

	inputs := resolveInputs(cfg.InputMapping, wctx)
	output, err := x.models.RunInference(ctx, info.ID, inputs, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("inference on model %q failed: %w", info.ID, err)
	}

	if err := applyOutputMapping(cfg.OutputMapping, output, wctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"model_id": info.ID,
		"output":   output,
	}, nil
}

func (x *NodeExecutor) executeDownload(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.downloads == nil {
		return nil, fmt.Errorf("no downloader configured")
	}
	cfg := *node.Download
	cfg.URL = wctx.Interpolate(cfg.URL)
	cfg.Repo = wctx.Interpolate(cfg.Repo)
	cfg.File = wctx.Interpolate(cfg.File)
	cfg.Dest = wctx.Interpolate(cfg.Dest)

	result, err := x.downloads.Download(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("download from %s failed: %w", cfg.Source, err)
	}
	return result, nil
}

func (x *NodeExecutor) executeScript(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.scripts == nil {
		return nil, fmt.Errorf("no script runner configured")
	}
	cfg := node.Script

	inputs := resolveInputs(cfg.InputMapping, wctx)
	outputs, err := x.scripts.Run(ctx, cfg.Language, cfg.Body, inputs)
	if err != nil {
		return nil, fmt.Errorf("%s script failed: %w", cfg.Language, err)
	}

	if err := applyOutputMapping(cfg.OutputMapping, outputs, wctx); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (x *NodeExecutor) executeAPICall(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.http == nil {
		return nil, fmt.Errorf("no http client configured")
	}
	cfg := node.APICall

	url := wctx.Interpolate(cfg.URL)
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = wctx.Interpolate(v)
	}
	body := wctx.Interpolate(cfg.Body)

	response, err := x.http.Do(ctx, cfg.Method, url, headers, body)
	if err != nil {
		return nil, err
	}

	if err := applyOutputMapping(cfg.OutputMapping, response.Body, wctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status": response.StatusCode,
		"body":   response.Body,
	}, nil
}

func (x *NodeExecutor) executeGitHubAction(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.actions == nil {
		return nil, fmt.Errorf("no action dispatcher configured")
	}
	cfg := node.GitHubAction

	inputs := make(map[string]string, len(cfg.Inputs))
	for k, v := range cfg.Inputs {
		inputs[k] = wctx.Interpolate(v)
	}

	if err := x.actions.TriggerWorkflow(ctx, cfg, inputs); err != nil {
		return nil, fmt.Errorf("workflow dispatch failed: %w", err)
	}
	return map[string]interface{}{
		"dispatched": true,
		"owner":      cfg.Owner,
		"repo":       cfg.Repo,
		"workflow":   cfg.Workflow,
	}, nil
}

func (x *NodeExecutor) executeOSCommand(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.commands == nil {
		return nil, fmt.Errorf("no command runner configured")
	}
	cfg := *node.OSCommand
	cfg.Command = wctx.Interpolate(cfg.Command)
	args := make([]string, len(cfg.Args))
	for i, arg := range cfg.Args {
		args[i] = wctx.Interpolate(arg)
	}
	cfg.Args = args
	env := make(map[string]string, len(cfg.Env))
	for k, v := range cfg.Env {
		env[k] = wctx.Interpolate(v)
	}
	cfg.Env = env

	result, err := x.commands.Run(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{"exit_code": result.ExitCode}
	if cfg.CaptureOutput {
		out["stdout"] = result.Stdout
		out["stderr"] = result.Stderr
	}
	return out, nil
}

func (x *NodeExecutor) executeVectorGeneration(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.vectors == nil {
		return nil, fmt.Errorf("no vector store configured")
	}
	cfg := node.Vector

	source, ok := wctx.Resolve(cfg.SourcePath)
	if !ok {
		return nil, fmt.Errorf("vector source %q not found in context", cfg.SourcePath)
	}
	documents, err := coerceDocuments(source)
	if err != nil {
		return nil, fmt.Errorf("vector source %q: %w", cfg.SourcePath, err)
	}

	info, err := x.vectors.CreateIndex(ctx, cfg.IndexName, documents, cfg.EmbeddingModel, ports.VectorIndexOptions{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("index %q creation failed: %w", cfg.IndexName, err)
	}
	return info, nil
}

func (x *NodeExecutor) executeContextInjection(node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	cfg := node.ContextInjection
	injected, err := domain.CloneMap(cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("injection data is not serializable: %w", err)
	}

	switch cfg.Mode {
	case domain.InjectionModeReplace:
		wctx.Data = injected
	default:
		if err := domain.MergeInto(wctx.Data, injected); err != nil {
			return nil, fmt.Errorf("failed to merge injection data: %w", err)
		}
	}
	return map[string]interface{}{
		"mode": string(cfg.Mode),
		"keys": len(cfg.Data),
	}, nil
}

func (x *NodeExecutor) executeNestedWorkflow(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.store == nil {
		return nil, fmt.Errorf("no workflow store configured")
	}
	if x.sub == nil {
		return nil, fmt.Errorf("no sub-workflow runner wired")
	}
	cfg := node.SubWorkflow

	childDef, err := x.store.LoadDefinition(ctx, cfg.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("child workflow %q: %w", cfg.WorkflowID, err)
	}

	var childInitial map[string]interface{}
	if len(cfg.InputMapping) == 0 {
		// No mapping: pass the entire parent data through, deep-copied so
		// the child cannot mutate the parent lineage.
		childInitial, err = domain.CloneMap(wctx.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to clone parent data: %w", err)
		}
	} else {
		childInitial = make(map[string]interface{}, len(cfg.InputMapping))
		for childKey, parentPath := range cfg.InputMapping {
			if value, ok := wctx.Resolve(parentPath); ok {
				childInitial[childKey] = value
			}
		}
	}

	childResult, err := x.sub.RunSubWorkflow(ctx, childDef, childInitial)
	if err != nil {
		return nil, fmt.Errorf("child workflow %q: %w", cfg.WorkflowID, err)
	}
	if childResult.Status != domain.WorkflowStatusSuccess {
		return nil, fmt.Errorf("child workflow %q finished with status %s", cfg.WorkflowID, childResult.Status)
	}

	childRoots := map[string]interface{}{
		"outputs": childResult.Context.Outputs,
		"data":    childResult.Context.Data,
	}
	var mapped interface{}
	if len(cfg.OutputMapping) == 0 {
		mapped = childResult.Context.Outputs
	} else {
		for parentPath, childPath := range cfg.OutputMapping {
			value, ok := domain.ResolvePath(childRoots, childPath)
			if !ok {
				continue
			}
			if err := wctx.Set(parentPath, value); err != nil {
				return nil, err
			}
		}
		mapped = childResult.Context.Outputs
	}

	return map[string]interface{}{
		"workflow_id":  cfg.WorkflowID,
		"execution_id": childResult.ExecutionID,
		"status":       string(childResult.Status),
		"duration_ms":  childResult.Duration.Milliseconds(),
		"outputs":      mapped,
	}, nil
}

func (x *NodeExecutor) executeCustom(ctx context.Context, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	if x.custom == nil {
		return nil, domain.ErrUnregisteredCustom
	}
	cfg := node.Custom
	executor, ok := x.custom.Resolve(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnregisteredCustom, cfg.Kind)
	}
	return executor(ctx, cfg.Config, wctx)
}

// resolveInputs materializes an input mapping {name -> context path}.
// Missing paths resolve to nil rather than failing the node; the
// downstream routine decides whether a nil input is acceptable.
func resolveInputs(mapping map[string]string, wctx *domain.WorkflowContext) map[string]interface{} {
	inputs := make(map[string]interface{}, len(mapping))
	for name, path := range mapping {
		value, _ := wctx.Resolve(path)
		inputs[name] = value
	}
	return inputs
}

// applyOutputMapping writes fields of an operation's output back into the
// context: {context path -> path within output}. An empty output path
// selects the whole output value.
func applyOutputMapping(mapping map[string]string, output interface{}, wctx *domain.WorkflowContext) error {
	for contextPath, outputPath := range mapping {
		value := output
		if outputPath != "" {
			outputMap, ok := output.(map[string]interface{})
			if !ok {
				return fmt.Errorf("output mapping %q: output is %T, expected object", outputPath, output)
			}
			resolved, found := domain.ResolvePath(outputMap, outputPath)
			if !found {
				continue
			}
			value = resolved
		}
		if err := wctx.Set(contextPath, value); err != nil {
			return err
		}
	}
	return nil
}

func coerceDocuments(source interface{}) ([]string, error) {
	switch v := source.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		docs := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, expected string", i, item)
			}
			docs = append(docs, s)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("resolved to %T, expected string or string array", source)
	}
}

type parallelChildResult struct {
	NodeID   string        `json:"node_id"`
	Status   string        `json:"status"`
	Output   interface{}   `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (x *NodeExecutor) executeParallel(ctx context.Context, def *domain.WorkflowDefinition, node *domain.NodeConfig, wctx *domain.WorkflowContext) (interface{}, error) {
	cfg := node.Parallel

	// Clone before fan-out: each child gets an isolated deep copy so
	// concurrent writes can never corrupt a sibling or the parent.
	clones := make([]*domain.WorkflowContext, len(cfg.Children))
	for i := range cfg.Children {
		clone, err := wctx.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone context for child %q: %w", cfg.Children[i], err)
		}
		clones[i] = clone
	}

	results := make([]parallelChildResult, len(cfg.Children))
	done := make(chan int, len(cfg.Children))
	for i, childID := range cfg.Children {
		go func(i int, childID string, childCtx *domain.WorkflowContext) {
			start := time.Now()
			out, err := x.runChild(ctx, def, childID, childCtx)
			res := parallelChildResult{NodeID: childID, Duration: time.Since(start)}
			if err != nil {
				res.Status = string(domain.NodeStatusFailed)
				res.Error = err.Error()
			} else {
				res.Status = string(domain.NodeStatusSuccess)
				res.Output = out
			}
			results[i] = res
			done <- i
		}(i, childID, clones[i])
	}

	if cfg.WaitForAll {
		// All-settled join: collect every result, individual failures do
		// not abort siblings.
		for range cfg.Children {
			<-done
		}
		successes, failures := 0, 0
		for _, res := range results {
			if res.Status == string(domain.NodeStatusSuccess) {
				successes++
			} else {
				failures++
			}
		}
		return map[string]interface{}{
			"children":      results,
			"success_count": successes,
			"failure_count": failures,
		}, nil
	}

	// First-success race: return as soon as one child succeeds; if every
	// participant fails, the parallel node itself fails.
	failures := 0
	for range cfg.Children {
		i := <-done
		if results[i].Status == string(domain.NodeStatusSuccess) {
			return map[string]interface{}{
				"winner": results[i].NodeID,
				"output": results[i].Output,
			}, nil
		}
		failures++
	}
	return nil, fmt.Errorf("all %d parallel children failed", failures)
}
