package domain

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// WorkflowContext is the mutable data bag threaded through one execution
// lineage. It is mutated in place on sequential paths; any branch that runs
// concurrently with another (parallel children, loop iterations) receives a
// deep clone, never the shared value.
type WorkflowContext struct {
	WorkflowID  string                 `json:"workflow_id"`
	ExecutionID string                 `json:"execution_id"`
	Data        map[string]interface{} `json:"data"`
	Variables   map[string]interface{} `json:"variables"`
	Outputs     map[string]interface{} `json:"outputs"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

func NewWorkflowContext(workflowID, executionID string, initial map[string]interface{}) *WorkflowContext {
	data := initial
	if data == nil {
		data = make(map[string]interface{})
	}
	return &WorkflowContext{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Data:        data,
		Variables:   make(map[string]interface{}),
		Outputs:     make(map[string]interface{}),
		Metadata:    make(map[string]interface{}),
	}
}

// view exposes the addressable roots for path resolution and expressions.
func (c *WorkflowContext) view() map[string]interface{} {
	return map[string]interface{}{
		"data":      c.Data,
		"outputs":   c.Outputs,
		"variables": c.Variables,
		"metadata":  c.Metadata,
	}
}

// ExpressionEnv is the allow-listed binding set handed to the expression
// evaluator: context (data), outputs, variables.
func (c *WorkflowContext) ExpressionEnv() map[string]interface{} {
	return map[string]interface{}{
		"context":   c.Data,
		"outputs":   c.Outputs,
		"variables": c.Variables,
	}
}

// Resolve walks a dot-separated path ("data.prompt", "outputs.a.score")
// into the context. It returns false on any missing intermediate and
// never panics.
func (c *WorkflowContext) Resolve(path string) (interface{}, bool) {
	return ResolvePath(c.view(), path)
}

// Set writes a value at a dot-separated path, creating intermediate maps
// as needed. The first segment must name one of the context roots; a write
// under an unknown root is an error, not a silent drop.
func (c *WorkflowContext) Set(path string, value interface{}) error {
	root, rest, qualified := strings.Cut(path, ".")
	var target map[string]interface{}
	switch root {
	case "data":
		target = c.Data
	case "outputs":
		target = c.Outputs
	case "variables":
		target = c.Variables
	case "metadata":
		target = c.Metadata
	default:
		return fmt.Errorf("unknown context root %q in path %q", root, path)
	}
	if !qualified {
		return fmt.Errorf("path %q names a context root, expected a field under it", path)
	}
	return SetPath(target, rest, value)
}

// Clone returns a structural deep copy via a JSON round-trip, matching the
// engine's persistence representation. Values that do not survive JSON
// (functions, channels) are not supported in context data.
func (c *WorkflowContext) Clone() (*WorkflowContext, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize context for clone: %w", err)
	}
	clone := &WorkflowContext{}
	if err := json.Unmarshal(raw, clone); err != nil {
		return nil, fmt.Errorf("failed to rebuild cloned context: %w", err)
	}
	if clone.Data == nil {
		clone.Data = make(map[string]interface{})
	}
	if clone.Variables == nil {
		clone.Variables = make(map[string]interface{})
	}
	if clone.Outputs == nil {
		clone.Outputs = make(map[string]interface{})
	}
	if clone.Metadata == nil {
		clone.Metadata = make(map[string]interface{})
	}
	return clone, nil
}

// Adopt takes over another lineage's mutable maps. Used to fold an
// isolated attempt's writes back into the parent after the attempt has
// finished; the other context must no longer be written to.
func (c *WorkflowContext) Adopt(other *WorkflowContext) {
	c.Data = other.Data
	c.Variables = other.Variables
	c.Outputs = other.Outputs
	c.Metadata = other.Metadata
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate replaces every {{path}} occurrence in the template with the
// stringified resolved value. Missing paths render as the empty string:
// workflows are user-authored and a typo in a display string should not
// hard-fail the node.
func (c *WorkflowContext) Interpolate(template string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := c.Resolve(path)
		if !ok || value == nil {
			return ""
		}
		return Stringify(value)
	})
}

// ResolvePath walks a dot-separated path into nested maps. Numeric segments
// index into slices.
func ResolvePath(root map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var current interface{} = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := parseIndex(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetPath writes value at a dot-separated path, creating intermediate
// objects as needed. Existing non-map intermediates are replaced.
func SetPath(root map[string]interface{}, path string, value interface{}) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	segments := strings.Split(path, ".")
	current := root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
	return nil
}

// Stringify renders a value for interpolation: strings pass through,
// everything else goes through JSON.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

func parseIndex(segment string) (int, error) {
	idx := 0
	if segment == "" {
		return -1, fmt.Errorf("empty index")
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return -1, fmt.Errorf("not an index: %s", segment)
		}
		idx = idx*10 + int(r-'0')
	}
	return idx, nil
}
