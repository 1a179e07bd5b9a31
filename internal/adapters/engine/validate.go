package engine

import (
	"github.com/osier-labs/weave/internal/domain"
)

// validateNodeConfig checks the minimal required fields for a node's type
// immediately before dispatch, so misconfiguration surfaces as a
// descriptive configuration error instead of a failure deep inside the
// type-specific routine.
func validateNodeConfig(node *domain.NodeConfig) error {
	fail := func(reason string) error {
		return domain.NewNodeConfigError(node.ID, node.Type, reason)
	}

	switch node.Type {
	case domain.NodeTypeCondition:
		if node.Condition == nil {
			return fail("condition config missing")
		}
		if node.Condition.Expression == "" {
			return fail("condition expression is required")
		}
	case domain.NodeTypeLoop:
		if node.Loop == nil {
			return fail("loop config missing")
		}
		if node.Loop.Source == "" {
			return fail("loop source path is required")
		}
		if len(node.Loop.Children) == 0 {
			return fail("loop requires at least one child node")
		}
	case domain.NodeTypeModel:
		if node.Model == nil {
			return fail("model config missing")
		}
		if node.Model.ModelID == "" && len(node.Model.Tags) == 0 {
			return fail("model node requires model_id or tags")
		}
	case domain.NodeTypeDownload:
		if node.Download == nil {
			return fail("download config missing")
		}
		switch node.Download.Source {
		case domain.DownloadSourceURL:
			if node.Download.URL == "" {
				return fail("url download requires url")
			}
		case domain.DownloadSourceHuggingFace, domain.DownloadSourceGitHub:
			if node.Download.Repo == "" {
				return fail("repository download requires repo")
			}
		default:
			return fail("unknown download source")
		}
	case domain.NodeTypeScript:
		if node.Script == nil {
			return fail("script config missing")
		}
		if node.Script.Body == "" {
			return fail("script body is required")
		}
		switch node.Script.Language {
		case domain.ScriptLanguageJavaScript, domain.ScriptLanguagePython, domain.ScriptLanguageShell:
		default:
			return fail("unknown script language")
		}
	case domain.NodeTypeAPICall:
		if node.APICall == nil {
			return fail("api_call config missing")
		}
		if node.APICall.URL == "" {
			return fail("api_call requires url")
		}
	case domain.NodeTypeGitHubAction:
		if node.GitHubAction == nil {
			return fail("github_action config missing")
		}
		if node.GitHubAction.Owner == "" || node.GitHubAction.Repo == "" || node.GitHubAction.Workflow == "" {
			return fail("github_action requires owner, repo and workflow")
		}
	case domain.NodeTypeOSCommand:
		if node.OSCommand == nil {
			return fail("os_command config missing")
		}
		if node.OSCommand.Command == "" {
			return fail("os_command requires command")
		}
	case domain.NodeTypeVectorGeneration:
		if node.Vector == nil {
			return fail("vector config missing")
		}
		if node.Vector.IndexName == "" || node.Vector.SourcePath == "" {
			return fail("vector_generation requires index_name and source_path")
		}
	case domain.NodeTypeContextInjection:
		if node.ContextInjection == nil {
			return fail("context_injection config missing")
		}
		if node.ContextInjection.Data == nil {
			return fail("context_injection requires data")
		}
	case domain.NodeTypeNestedWorkflow:
		if node.SubWorkflow == nil {
			return fail("sub_workflow config missing")
		}
		if node.SubWorkflow.WorkflowID == "" {
			return fail("nested_workflow requires workflow_id")
		}
	case domain.NodeTypeParallel:
		if node.Parallel == nil {
			return fail("parallel config missing")
		}
		if len(node.Parallel.Children) == 0 {
			return fail("parallel requires at least one child node")
		}
	case domain.NodeTypeCustom:
		if node.Custom == nil {
			return fail("custom config missing")
		}
		if node.Custom.Kind == "" {
			return fail("custom node requires kind")
		}
	default:
		return fail("unknown node type")
	}
	return nil
}
