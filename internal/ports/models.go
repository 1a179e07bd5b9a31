package ports

import (
	"context"
)

type ModelInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Tags        []string          `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ModelProvider resolves models and runs inference. Inference is an opaque
// async operation from the engine's point of view; implementations must be
// safe for concurrent use across executions.
type ModelProvider interface {
	GetModel(ctx context.Context, id string) (*ModelInfo, error)

	// SelectByTags prefers a model matching every tag exactly; otherwise
	// it falls back to the model with the most overlapping tags. No
	// overlap at all is an error.
	SelectByTags(ctx context.Context, tags []string) (*ModelInfo, error)

	RunInference(ctx context.Context, modelID string, inputs map[string]interface{}, params map[string]interface{}) (interface{}, error)
}
