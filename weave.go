// Package weave provides an embeddable workflow execution engine for Go
// applications.
//
// Weave runs workflows declared as directed acyclic graphs of typed nodes:
// conditions, loops, model inference, downloads, scripts, API calls,
// GitHub Actions dispatch, OS commands, vector index generation, context
// injection, nested workflows, parallel fan-out and host-registered custom
// nodes. It provides:
//   - Deterministic dependency-ordered execution with cascading skips
//   - Per-node retry policies, timeouts and cooperative cancellation
//   - Isolated context snapshots for parallel branches and loop iterations
//   - Lifecycle events for every workflow and node transition
//   - Definition and execution-history persistence with JSON/YAML loading
//
// Basic usage:
//
//	manager, err := weave.New(weave.NewConfigBuilder("./data").Build())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	def := &weave.WorkflowDefinition{
//	    ID:         "greet",
//	    EntryNodes: []string{"hello"},
//	    Nodes: []weave.NodeConfig{{
//	        ID:   "hello",
//	        Type: weave.NodeTypeScript,
//	        Script: &weave.ScriptNodeConfig{
//	            Language: weave.ScriptLanguageShell,
//	            Body:     `echo '{"greeting": "hi"}'`,
//	        },
//	    }},
//	}
//	result, err := manager.ExecuteWorkflow(context.Background(), def, nil)
package weave

import (
	"github.com/osier-labs/weave/internal/adapters/models"
	"github.com/osier-labs/weave/internal/adapters/vector"
	"github.com/osier-labs/weave/internal/core"
	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Manager is the engine and its collaborators behind one handle. A single
// Manager serves any number of concurrent executions.
type Manager = core.Manager

// WorkflowDefinition is the complete declaration of a workflow graph.
type WorkflowDefinition = domain.WorkflowDefinition

// NodeConfig declares one node: its type, dependencies, retry and timeout
// settings and the type-specific configuration block.
type NodeConfig = domain.NodeConfig

// NodeType identifies a node's execution behavior.
type NodeType = domain.NodeType

const (
	NodeTypeCondition        NodeType = domain.NodeTypeCondition
	NodeTypeLoop             NodeType = domain.NodeTypeLoop
	NodeTypeModel            NodeType = domain.NodeTypeModel
	NodeTypeDownload         NodeType = domain.NodeTypeDownload
	NodeTypeScript           NodeType = domain.NodeTypeScript
	NodeTypeAPICall          NodeType = domain.NodeTypeAPICall
	NodeTypeGitHubAction     NodeType = domain.NodeTypeGitHubAction
	NodeTypeOSCommand        NodeType = domain.NodeTypeOSCommand
	NodeTypeVectorGeneration NodeType = domain.NodeTypeVectorGeneration
	NodeTypeContextInjection NodeType = domain.NodeTypeContextInjection
	NodeTypeNestedWorkflow   NodeType = domain.NodeTypeNestedWorkflow
	NodeTypeParallel         NodeType = domain.NodeTypeParallel
	NodeTypeCustom           NodeType = domain.NodeTypeCustom
)

// Type-specific configuration blocks.

type ConditionConfig = domain.ConditionConfig
type LoopConfig = domain.LoopConfig
type ModelNodeConfig = domain.ModelNodeConfig
type DownloadConfig = domain.DownloadConfig
type ScriptNodeConfig = domain.ScriptNodeConfig
type APICallConfig = domain.APICallConfig
type GitHubActionConfig = domain.GitHubActionConfig
type OSCommandConfig = domain.OSCommandConfig
type VectorNodeConfig = domain.VectorNodeConfig
type ContextInjectionConfig = domain.ContextInjectionConfig
type SubWorkflowConfig = domain.SubWorkflowConfig
type ParallelConfig = domain.ParallelConfig
type CustomNodeConfig = domain.CustomNodeConfig

// ScriptLanguage selects the script node's interpreter.
type ScriptLanguage = domain.ScriptLanguage

const (
	ScriptLanguageJavaScript ScriptLanguage = domain.ScriptLanguageJavaScript
	ScriptLanguagePython     ScriptLanguage = domain.ScriptLanguagePython
	ScriptLanguageShell      ScriptLanguage = domain.ScriptLanguageShell
)

// DownloadSource selects where a download node fetches from.
type DownloadSource = domain.DownloadSource

const (
	DownloadSourceHuggingFace DownloadSource = domain.DownloadSourceHuggingFace
	DownloadSourceURL         DownloadSource = domain.DownloadSourceURL
	DownloadSourceGitHub      DownloadSource = domain.DownloadSourceGitHub
)

// RetryPolicy declares a node's retry envelope.
type RetryPolicy = domain.RetryPolicy

// Duration is the string-friendly duration type used in authored
// definition fields ("5s", "100ms").
type Duration = domain.Duration

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy = domain.BackoffStrategy

const (
	BackoffLinear      BackoffStrategy = domain.BackoffLinear
	BackoffExponential BackoffStrategy = domain.BackoffExponential
)

// WorkflowExecutionResult is the terminal report of one execution.
type WorkflowExecutionResult = domain.WorkflowExecutionResult

// NodeExecutionResult is the per-node record inside an execution result.
type NodeExecutionResult = domain.NodeExecutionResult

// WorkflowContext is the mutable state shared along an execution.
type WorkflowContext = domain.WorkflowContext

// NodeStatus is a node's terminal disposition.
type NodeStatus = domain.NodeStatus

const (
	NodeStatusPending = domain.NodeStatusPending
	NodeStatusRunning = domain.NodeStatusRunning
	NodeStatusSuccess = domain.NodeStatusSuccess
	NodeStatusFailed  = domain.NodeStatusFailed
	NodeStatusSkipped = domain.NodeStatusSkipped
)

// WorkflowStatus is an execution's terminal disposition.
type WorkflowStatus = domain.WorkflowStatus

const (
	WorkflowStatusSuccess = domain.WorkflowStatusSuccess
	WorkflowStatusFailed  = domain.WorkflowStatusFailed
	WorkflowStatusPartial = domain.WorkflowStatusPartial
)

// Event types for lifecycle monitoring.

type EventType = domain.EventType

const (
	EventWorkflowStarted   EventType = domain.EventWorkflowStarted
	EventWorkflowCompleted EventType = domain.EventWorkflowCompleted
	EventWorkflowError     EventType = domain.EventWorkflowError
	EventNodeStarted       EventType = domain.EventNodeStarted
	EventNodeCompleted     EventType = domain.EventNodeCompleted
	EventNodeError         EventType = domain.EventNodeError
)

type WorkflowStartedEvent = domain.WorkflowStartedEvent
type WorkflowCompletedEvent = domain.WorkflowCompletedEvent
type WorkflowErrorEvent = domain.WorkflowErrorEvent
type NodeStartedEvent = domain.NodeStartedEvent
type NodeCompletedEvent = domain.NodeCompletedEvent
type NodeErrorEvent = domain.NodeErrorEvent

// ExecutionListener receives every lifecycle event with its type tag.
type ExecutionListener = ports.ExecutionListener

// ModelInfo describes a registered model.
type ModelInfo = ports.ModelInfo

// InferenceFunc performs inference for a registered model.
type InferenceFunc = models.InferenceFunc

// CustomExecutor is a host-provided execution routine for a custom node
// kind.
type CustomExecutor = ports.CustomExecutor

// VectorMatch is one search hit from a vector index.
type VectorMatch = ports.VectorMatch

// Embedder turns texts into vectors for the vector store. Nil selects a
// deterministic hash embedding suitable for local use and tests.
type Embedder = vector.Embedder

// Sentinel errors and classification helpers.

var (
	ErrNotFound           = domain.ErrNotFound
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrTimeout            = domain.ErrTimeout
	ErrCancelled          = domain.ErrCancelled
	ErrTooManyExecutions  = domain.ErrTooManyExecutions
	ErrUnknownNodeType    = domain.ErrUnknownNodeType
	ErrUnregisteredCustom = domain.ErrUnregisteredCustom
)

var (
	IsValidationError = domain.IsValidationError
	IsNodeConfigError = domain.IsNodeConfigError
	IsTimeout         = domain.IsTimeout
	IsCancelled       = domain.IsCancelled
	IsNotFound        = domain.IsNotFound
)

// New creates a Manager with the given configuration. A nil config uses
// DefaultConfig; an empty DataDir keeps storage in memory.
func New(config *Config) (*Manager, error) {
	return core.NewManager(config, nil)
}

// NewWithEmbedder creates a Manager whose vector store uses the given
// embedding routine instead of the built-in hash embedding.
func NewWithEmbedder(config *Config, embed Embedder) (*Manager, error) {
	return core.NewManager(config, embed)
}
