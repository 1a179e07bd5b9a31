package engine

import (
	"fmt"
	"strings"

	"github.com/osier-labs/weave/internal/domain"
)

// ValidateDefinition checks a workflow's structure before any node runs.
// Checks run in a fixed order, each with its own error kind: duplicate ids,
// dangling dependencies, cycles, invalid entry nodes. Validation has no
// side effects; re-validating a valid workflow is a no-op.
func ValidateDefinition(def *domain.WorkflowDefinition) error {
	if def == nil {
		return domain.NewValidationError(domain.ValidationInvalidEntryNode, "", "workflow definition is nil")
	}

	ids := make(map[string]struct{}, len(def.Nodes))
	for i := range def.Nodes {
		id := def.Nodes[i].ID
		if _, dup := ids[id]; dup {
			return domain.NewValidationError(domain.ValidationDuplicateNodeID, id,
				fmt.Sprintf("node id %q declared more than once", id))
		}
		ids[id] = struct{}{}
	}

	for i := range def.Nodes {
		node := &def.Nodes[i]
		for _, dep := range node.Dependencies {
			if _, ok := ids[dep]; !ok {
				return domain.NewValidationError(domain.ValidationDanglingDependency, node.ID,
					fmt.Sprintf("dependency %q does not exist", dep))
			}
		}
	}

	if cycle := findCycle(def); len(cycle) > 0 {
		return domain.NewValidationError(domain.ValidationCycle, cycle[0],
			"dependency cycle: "+strings.Join(cycle, " -> "))
	}

	for _, entry := range def.EntryNodes {
		if _, ok := ids[entry]; !ok {
			return domain.NewValidationError(domain.ValidationInvalidEntryNode, entry,
				fmt.Sprintf("entry node %q does not exist", entry))
		}
	}

	return nil
}

const (
	colorWhite = 0
	colorGray  = 1
	colorBlack = 2
)

// findCycle runs DFS with a recursion stack over the dependency relation.
// A node revisited while still gray closes a cycle; the returned slice is
// the cycle path for the error message.
func findCycle(def *domain.WorkflowDefinition) []string {
	color := make(map[string]int, len(def.Nodes))
	var stack []string

	var visit func(node *domain.NodeConfig) []string
	visit = func(node *domain.NodeConfig) []string {
		color[node.ID] = colorGray
		stack = append(stack, node.ID)

		for _, dep := range node.Dependencies {
			depNode := def.NodeByID(dep)
			if depNode == nil {
				continue
			}
			switch color[dep] {
			case colorGray:
				for i, id := range stack {
					if id == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
				return []string{dep, node.ID, dep}
			case colorWhite:
				if cycle := visit(depNode); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node.ID] = colorBlack
		return nil
	}

	for i := range def.Nodes {
		if color[def.Nodes[i].ID] == colorWhite {
			if cycle := visit(&def.Nodes[i]); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalOrder computes the execution order: dependencies-first DFS
// visiting nodes in declaration order, so nodes with no ordering constraint
// between them keep their declared relative order. The result is
// deterministic for a given definition.
//
// Nodes referenced as condition branches, loop children or parallel
// children are excluded: they run only through their parent's dispatch,
// never as standalone scheduled nodes.
func TopologicalOrder(def *domain.WorkflowDefinition) []string {
	children := childNodeIDs(def)
	order := make([]string, 0, len(def.Nodes))
	visited := make(map[string]bool, len(def.Nodes))

	var visit func(node *domain.NodeConfig)
	visit = func(node *domain.NodeConfig) {
		if visited[node.ID] {
			return
		}
		if _, child := children[node.ID]; child {
			return
		}
		visited[node.ID] = true
		for _, dep := range node.Dependencies {
			if depNode := def.NodeByID(dep); depNode != nil {
				visit(depNode)
			}
		}
		order = append(order, node.ID)
	}

	for i := range def.Nodes {
		visit(&def.Nodes[i])
	}
	return order
}

// childNodeIDs collects every node id a condition, loop or parallel node
// names as a child.
func childNodeIDs(def *domain.WorkflowDefinition) map[string]struct{} {
	children := make(map[string]struct{})
	mark := func(ids []string) {
		for _, id := range ids {
			children[id] = struct{}{}
		}
	}
	for i := range def.Nodes {
		node := &def.Nodes[i]
		if node.Condition != nil {
			mark(node.Condition.TrueBranch)
			mark(node.Condition.FalseBranch)
		}
		if node.Loop != nil {
			mark(node.Loop.Children)
		}
		if node.Parallel != nil {
			mark(node.Parallel.Children)
		}
	}
	return children
}
