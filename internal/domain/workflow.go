package domain

import (
	"time"
)

type NodeType string

const (
	NodeTypeCondition        NodeType = "condition"
	NodeTypeLoop             NodeType = "loop"
	NodeTypeModel            NodeType = "model"
	NodeTypeDownload         NodeType = "download"
	NodeTypeScript           NodeType = "script"
	NodeTypeAPICall          NodeType = "api_call"
	NodeTypeGitHubAction     NodeType = "github_action"
	NodeTypeOSCommand        NodeType = "os_command"
	NodeTypeVectorGeneration NodeType = "vector_generation"
	NodeTypeContextInjection NodeType = "context_injection"
	NodeTypeNestedWorkflow   NodeType = "nested_workflow"
	NodeTypeParallel         NodeType = "parallel"
	NodeTypeCustom           NodeType = "custom"
)

// WorkflowDefinition is the authored form of a workflow. It is handed to the
// engine read-only; the engine never mutates it during a run.
type WorkflowDefinition struct {
	ID          string                 `json:"id" yaml:"id"`
	Name        string                 `json:"name" yaml:"name"`
	Version     string                 `json:"version" yaml:"version"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []NodeConfig           `json:"nodes" yaml:"nodes"`
	EntryNodes  []string               `json:"entry_nodes" yaml:"entry_nodes"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (d *WorkflowDefinition) NodeByID(id string) *NodeConfig {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

type RetryPolicy struct {
	MaxAttempts  int             `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay Duration        `json:"initial_delay" yaml:"initial_delay"`
	Backoff      BackoffStrategy `json:"backoff" yaml:"backoff"`
}

// Delay returns the wait before the attempt following the given one
// (attempt numbering starts at 1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := time.Duration(p.InitialDelay)
	if base <= 0 {
		base = time.Second
	}
	switch p.Backoff {
	case BackoffExponential:
		return base * time.Duration(1<<(attempt-1))
	default:
		return base * time.Duration(attempt)
	}
}

// NodeConfig is one unit of work in a workflow graph. Exactly one of the
// typed sub-configs is expected to be set, matching Type.
type NodeConfig struct {
	ID           string   `json:"id" yaml:"id"`
	Type         NodeType `json:"type" yaml:"type"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	Retry   *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`
	Timeout Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ContextOverrides is merged into context data before the node runs.
	ContextOverrides map[string]interface{} `json:"context_overrides,omitempty" yaml:"context_overrides,omitempty"`

	Condition        *ConditionConfig        `json:"condition,omitempty" yaml:"condition,omitempty"`
	Loop             *LoopConfig             `json:"loop,omitempty" yaml:"loop,omitempty"`
	Model            *ModelNodeConfig        `json:"model,omitempty" yaml:"model,omitempty"`
	Download         *DownloadConfig         `json:"download,omitempty" yaml:"download,omitempty"`
	Script           *ScriptNodeConfig       `json:"script,omitempty" yaml:"script,omitempty"`
	APICall          *APICallConfig          `json:"api_call,omitempty" yaml:"api_call,omitempty"`
	GitHubAction     *GitHubActionConfig     `json:"github_action,omitempty" yaml:"github_action,omitempty"`
	OSCommand        *OSCommandConfig        `json:"os_command,omitempty" yaml:"os_command,omitempty"`
	Vector           *VectorNodeConfig       `json:"vector,omitempty" yaml:"vector,omitempty"`
	ContextInjection *ContextInjectionConfig `json:"context_injection,omitempty" yaml:"context_injection,omitempty"`
	SubWorkflow      *SubWorkflowConfig      `json:"sub_workflow,omitempty" yaml:"sub_workflow,omitempty"`
	Parallel         *ParallelConfig         `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Custom           *CustomNodeConfig       `json:"custom,omitempty" yaml:"custom,omitempty"`
}

type ConditionConfig struct {
	Expression  string   `json:"expression" yaml:"expression"`
	TrueBranch  []string `json:"true_branch,omitempty" yaml:"true_branch,omitempty"`
	FalseBranch []string `json:"false_branch,omitempty" yaml:"false_branch,omitempty"`
}

type LoopConfig struct {
	// Source is a dot-path into the context that must resolve to an array.
	Source        string   `json:"source" yaml:"source"`
	Children      []string `json:"children" yaml:"children"`
	MaxIterations int      `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
}

type ModelNodeConfig struct {
	ModelID string   `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// InputMapping maps inference input names to context dot-paths.
	InputMapping map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`
	// OutputMapping maps context dot-paths to paths within the inference output.
	OutputMapping map[string]string      `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
	Params        map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

type DownloadSource string

const (
	DownloadSourceHuggingFace DownloadSource = "huggingface"
	DownloadSourceURL         DownloadSource = "url"
	DownloadSourceGitHub      DownloadSource = "github"
)

type DownloadConfig struct {
	Source   DownloadSource `json:"source" yaml:"source"`
	URL      string         `json:"url,omitempty" yaml:"url,omitempty"`
	Repo     string         `json:"repo,omitempty" yaml:"repo,omitempty"`
	Revision string         `json:"revision,omitempty" yaml:"revision,omitempty"`
	File     string         `json:"file,omitempty" yaml:"file,omitempty"`
	Dest     string         `json:"dest,omitempty" yaml:"dest,omitempty"`
}

type ScriptLanguage string

const (
	ScriptLanguageJavaScript ScriptLanguage = "javascript"
	ScriptLanguagePython     ScriptLanguage = "python"
	ScriptLanguageShell      ScriptLanguage = "shell"
)

type ScriptNodeConfig struct {
	Language      ScriptLanguage    `json:"language" yaml:"language"`
	Body          string            `json:"body" yaml:"body"`
	InputMapping  map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`
	OutputMapping map[string]string `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
}

type APICallConfig struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
	// OutputMapping maps context dot-paths to paths within the JSON response.
	OutputMapping map[string]string `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
}

type GitHubActionConfig struct {
	Owner    string            `json:"owner" yaml:"owner"`
	Repo     string            `json:"repo" yaml:"repo"`
	Workflow string            `json:"workflow" yaml:"workflow"`
	Ref      string            `json:"ref,omitempty" yaml:"ref,omitempty"`
	Inputs   map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

type OSCommandConfig struct {
	Command       string            `json:"command" yaml:"command"`
	Args          []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env           map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	WorkingDir    string            `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	CaptureOutput bool              `json:"capture_output,omitempty" yaml:"capture_output,omitempty"`
}

type VectorNodeConfig struct {
	IndexName      string `json:"index_name" yaml:"index_name"`
	SourcePath     string `json:"source_path" yaml:"source_path"`
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
	ChunkSize      int    `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap   int    `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`
}

type InjectionMode string

const (
	InjectionModeMerge   InjectionMode = "merge"
	InjectionModeReplace InjectionMode = "replace"
)

type ContextInjectionConfig struct {
	Mode InjectionMode          `json:"mode,omitempty" yaml:"mode,omitempty"`
	Data map[string]interface{} `json:"data" yaml:"data"`
}

type SubWorkflowConfig struct {
	WorkflowID string `json:"workflow_id" yaml:"workflow_id"`
	// InputMapping maps child data keys to parent context dot-paths.
	InputMapping map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`
	// OutputMapping maps parent context dot-paths to child output dot-paths.
	OutputMapping map[string]string `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
}

type ParallelConfig struct {
	Children []string `json:"children" yaml:"children"`
	// WaitForAll selects the join policy: all-settled when true,
	// first-success race when false.
	WaitForAll bool `json:"wait_for_all" yaml:"wait_for_all"`
}

type CustomNodeConfig struct {
	Kind   string                 `json:"kind" yaml:"kind"`
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}
