package models

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// InferenceFunc performs inference for a registered model.
type InferenceFunc func(ctx context.Context, inputs map[string]interface{}, params map[string]interface{}) (interface{}, error)

type registered struct {
	info  ports.ModelInfo
	infer InferenceFunc
}

// Registry is an in-memory model catalog. Hosts register models with an
// inference routine; model nodes resolve them by id or tag set.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	models map[string]*registered
	order  []string
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With("component", "model-registry"),
		models: make(map[string]*registered),
	}
}

func (r *Registry) Register(info ports.ModelInfo, infer InferenceFunc) error {
	if info.ID == "" {
		return fmt.Errorf("model id is required: %w", domain.ErrInvalidConfig)
	}
	if infer == nil {
		return fmt.Errorf("model %q has no inference routine: %w", info.ID, domain.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[info.ID]; !exists {
		r.order = append(r.order, info.ID)
	}
	r.models[info.ID] = &registered{info: info, infer: infer}
	r.logger.Debug("model registered", "model_id", info.ID, "tags", info.Tags)
	return nil
}

func (r *Registry) GetModel(ctx context.Context, id string) (*ports.ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", id, domain.ErrNotFound)
	}
	info := m.info
	return &info, nil
}

// SelectByTags prefers a model carrying every requested tag; with no exact
// match it falls back to the highest tag overlap, in registration order on
// ties. Zero overlap everywhere is an error.
func (r *Registry) SelectByTags(ctx context.Context, tags []string) (*ports.ModelInfo, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags given: %w", domain.ErrInvalidConfig)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *registered
	bestOverlap := 0
	for _, id := range r.order {
		m := r.models[id]
		overlap := tagOverlap(m.info.Tags, tags)
		if overlap == len(tags) {
			info := m.info
			return &info, nil
		}
		if overlap > bestOverlap {
			best = m
			bestOverlap = overlap
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no model matches tags %v: %w", tags, domain.ErrNotFound)
	}
	info := best.info
	return &info, nil
}

func (r *Registry) RunInference(ctx context.Context, modelID string, inputs map[string]interface{}, params map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	m, ok := r.models[modelID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("model %q: %w", modelID, domain.ErrNotFound)
	}
	return m.infer(ctx, inputs, params)
}

func tagOverlap(have, want []string) int {
	set := make(map[string]struct{}, len(have))
	for _, tag := range have {
		set[tag] = struct{}{}
	}
	count := 0
	for _, tag := range want {
		if _, ok := set[tag]; ok {
			count++
		}
	}
	return count
}
