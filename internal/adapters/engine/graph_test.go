package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osier-labs/weave/internal/domain"
)

func defWithNodes(nodes ...domain.NodeConfig) *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{ID: "wf", Nodes: nodes}
}

func TestValidateDefinitionDuplicateID(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "a"},
		domain.NodeConfig{ID: "a"},
	)

	err := ValidateDefinition(def)
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.ValidationDuplicateNodeID, ve.Kind)
	assert.Equal(t, "a", ve.NodeID)
}

func TestValidateDefinitionDanglingDependency(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "a", Dependencies: []string{"ghost"}},
	)

	err := ValidateDefinition(def)
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.ValidationDanglingDependency, ve.Kind)
}

func TestValidateDefinitionCycle(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "a", Dependencies: []string{"c"}},
		domain.NodeConfig{ID: "b", Dependencies: []string{"a"}},
		domain.NodeConfig{ID: "c", Dependencies: []string{"b"}},
	)

	err := ValidateDefinition(def)
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.ValidationCycle, ve.Kind)
	assert.Contains(t, ve.Detail, "->")
}

func TestValidateDefinitionSelfCycle(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "a", Dependencies: []string{"a"}},
	)

	err := ValidateDefinition(def)
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.ValidationCycle, ve.Kind)
}

func TestValidateDefinitionInvalidEntryNode(t *testing.T) {
	def := defWithNodes(domain.NodeConfig{ID: "a"})
	def.EntryNodes = []string{"nope"}

	err := ValidateDefinition(def)
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.ValidationInvalidEntryNode, ve.Kind)
}

func TestValidateDefinitionOK(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "a"},
		domain.NodeConfig{ID: "b", Dependencies: []string{"a"}},
	)
	def.EntryNodes = []string{"a"}

	require.NoError(t, ValidateDefinition(def))
	// No side effects: validating twice gives the same answer.
	require.NoError(t, ValidateDefinition(def))
}

func TestTopologicalOrderDependenciesFirst(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "c", Dependencies: []string{"b"}},
		domain.NodeConfig{ID: "b", Dependencies: []string{"a"}},
		domain.NodeConfig{ID: "a"},
	)

	assert.Equal(t, []string{"a", "b", "c"}, TopologicalOrder(def))
}

func TestTopologicalOrderKeepsDeclarationOrder(t *testing.T) {
	// No ordering constraints at all: declaration order is preserved.
	def := defWithNodes(
		domain.NodeConfig{ID: "x"},
		domain.NodeConfig{ID: "y"},
		domain.NodeConfig{ID: "z"},
	)

	assert.Equal(t, []string{"x", "y", "z"}, TopologicalOrder(def))
}

func TestTopologicalOrderExcludesContainerChildren(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{
			ID:   "check",
			Type: domain.NodeTypeCondition,
			Condition: &domain.ConditionConfig{
				Expression:  "true",
				TrueBranch:  []string{"high"},
				FalseBranch: []string{"low"},
			},
		},
		domain.NodeConfig{ID: "high"},
		domain.NodeConfig{ID: "low"},
		domain.NodeConfig{
			ID:   "each",
			Type: domain.NodeTypeLoop,
			Loop: &domain.LoopConfig{Source: "data.items", Children: []string{"item"}},
		},
		domain.NodeConfig{ID: "item"},
		domain.NodeConfig{
			ID:       "fork",
			Type:     domain.NodeTypeParallel,
			Parallel: &domain.ParallelConfig{Children: []string{"left", "right"}},
		},
		domain.NodeConfig{ID: "left"},
		domain.NodeConfig{ID: "right"},
		domain.NodeConfig{ID: "tail", Dependencies: []string{"fork"}},
	)

	// Children run only through their parents, never as scheduled nodes.
	assert.Equal(t, []string{"check", "each", "fork", "tail"}, TopologicalOrder(def))
}

func TestTopologicalOrderDiamond(t *testing.T) {
	def := defWithNodes(
		domain.NodeConfig{ID: "a"},
		domain.NodeConfig{ID: "b", Dependencies: []string{"a"}},
		domain.NodeConfig{ID: "c", Dependencies: []string{"a"}},
		domain.NodeConfig{ID: "d", Dependencies: []string{"b", "c"}},
	)

	assert.Equal(t, []string{"a", "b", "c", "d"}, TopologicalOrder(def))
}
