package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.DataDir = ""
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerExecutesWorkflow(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterCustomNode("echo", func(ctx context.Context, _ map[string]interface{}, wctx *domain.WorkflowContext) (interface{}, error) {
		return wctx.Data["input"], nil
	}))

	def := &domain.WorkflowDefinition{
		ID: "echoing",
		Nodes: []domain.NodeConfig{
			{ID: "a", Type: domain.NodeTypeCustom, Custom: &domain.CustomNodeConfig{Kind: "echo"}},
		},
	}

	result, err := m.ExecuteWorkflow(context.Background(), def, map[string]interface{}{"input": "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusSuccess, result.Status)
	assert.Equal(t, "hi", result.Context.Outputs["a"])
}

func TestManagerSaveAndExecuteByID(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterCustomNode("ok", func(ctx context.Context, _ map[string]interface{}, _ *domain.WorkflowContext) (interface{}, error) {
		return "done", nil
	}))

	def := &domain.WorkflowDefinition{
		ID: "stored",
		Nodes: []domain.NodeConfig{
			{ID: "a", Type: domain.NodeTypeCustom, Custom: &domain.CustomNodeConfig{Kind: "ok"}},
		},
	}
	require.NoError(t, m.SaveWorkflow(context.Background(), def))

	result, err := m.ExecuteWorkflowByID(context.Background(), "stored", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusSuccess, result.Status)

	_, err = m.ExecuteWorkflowByID(context.Background(), "ghost", nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestManagerSaveRejectsInvalidDefinition(t *testing.T) {
	m := newTestManager(t)

	def := &domain.WorkflowDefinition{
		ID: "bad",
		Nodes: []domain.NodeConfig{
			{ID: "a", Type: domain.NodeTypeCustom, Dependencies: []string{"a"}, Custom: &domain.CustomNodeConfig{Kind: "x"}},
		},
	}
	err := m.SaveWorkflow(context.Background(), def)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestManagerExecutionHistory(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterCustomNode("ok", func(ctx context.Context, _ map[string]interface{}, _ *domain.WorkflowContext) (interface{}, error) {
		return "done", nil
	}))

	def := &domain.WorkflowDefinition{
		ID: "historic",
		Nodes: []domain.NodeConfig{
			{ID: "a", Type: domain.NodeTypeCustom, Custom: &domain.CustomNodeConfig{Kind: "ok"}},
		},
	}

	result, err := m.ExecuteWorkflow(context.Background(), def, nil)
	require.NoError(t, err)

	stored, err := m.ExecutionHistory(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, result.WorkflowID, stored.WorkflowID)
	assert.Equal(t, domain.WorkflowStatusSuccess, stored.Status)
}

func TestManagerModelNode(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterModel(ports.ModelInfo{
		ID:   "summarizer",
		Tags: []string{"text"},
	}, func(ctx context.Context, inputs, params map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"summary": "short"}, nil
	}))

	def := &domain.WorkflowDefinition{
		ID: "summarize",
		Nodes: []domain.NodeConfig{
			{
				ID:   "run",
				Type: domain.NodeTypeModel,
				Model: &domain.ModelNodeConfig{
					Tags:          []string{"text"},
					OutputMapping: map[string]string{"data.summary": "summary"},
				},
			},
		},
	}

	result, err := m.ExecuteWorkflow(context.Background(), def, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusSuccess, result.Status)
	assert.Equal(t, "short", result.Context.Data["summary"])
}

func TestManagerVectorNodeAndSearch(t *testing.T) {
	m := newTestManager(t)

	def := &domain.WorkflowDefinition{
		ID: "index-docs",
		Nodes: []domain.NodeConfig{
			{
				ID:   "index",
				Type: domain.NodeTypeVectorGeneration,
				Vector: &domain.VectorNodeConfig{
					IndexName:  "kb",
					SourcePath: "data.docs",
				},
			},
		},
	}

	result, err := m.ExecuteWorkflow(context.Background(), def, map[string]interface{}{
		"docs": []interface{}{
			"the engine validates graphs before running them",
			"badger persists definitions and execution history",
		},
	})
	require.NoError(t, err)
	require.Equal(t, domain.WorkflowStatusSuccess, result.Status)

	matches, err := m.SearchVectors(context.Background(), "kb", "validates graphs", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Chunk, "validates graphs")
}

func TestManagerNestedWorkflowThroughStore(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterCustomNode("shout", func(ctx context.Context, _ map[string]interface{}, wctx *domain.WorkflowContext) (interface{}, error) {
		return "LOUD", nil
	}))

	child := &domain.WorkflowDefinition{
		ID: "child",
		Nodes: []domain.NodeConfig{
			{ID: "c", Type: domain.NodeTypeCustom, Custom: &domain.CustomNodeConfig{Kind: "shout"}},
		},
	}
	require.NoError(t, m.SaveWorkflow(context.Background(), child))

	parent := &domain.WorkflowDefinition{
		ID: "parent",
		Nodes: []domain.NodeConfig{
			{
				ID:          "delegate",
				Type:        domain.NodeTypeNestedWorkflow,
				SubWorkflow: &domain.SubWorkflowConfig{WorkflowID: "child"},
			},
		},
	}

	result, err := m.ExecuteWorkflow(context.Background(), parent, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusSuccess, result.Status)
}

func TestManagerEventsExposed(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RegisterCustomNode("ok", func(ctx context.Context, _ map[string]interface{}, _ *domain.WorkflowContext) (interface{}, error) {
		return nil, nil
	}))

	var count int
	m.OnExecutionEvent(func(eventType domain.EventType, _ interface{}) {
		count++
	})

	def := &domain.WorkflowDefinition{
		ID: "observed",
		Nodes: []domain.NodeConfig{
			{ID: "a", Type: domain.NodeTypeCustom, Custom: &domain.CustomNodeConfig{Kind: "ok"}},
		},
	}
	_, err := m.ExecuteWorkflow(context.Background(), def, nil)
	require.NoError(t, err)

	// workflow_start, node_start, node_complete, workflow_complete
	assert.Equal(t, 4, count)
}

func TestManagerCloseIdempotent(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.DataDir = ""
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
