package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/osier-labs/weave/internal/adapters/engine"
	"github.com/osier-labs/weave/internal/adapters/events"
	"github.com/osier-labs/weave/internal/adapters/httpexec"
	"github.com/osier-labs/weave/internal/adapters/models"
	"github.com/osier-labs/weave/internal/adapters/registry"
	"github.com/osier-labs/weave/internal/adapters/script"
	"github.com/osier-labs/weave/internal/adapters/storage"
	"github.com/osier-labs/weave/internal/adapters/vector"
	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Manager owns the engine and all of its collaborators. One Manager serves
// any number of concurrent executions; Close releases the storage.
type Manager struct {
	cfg    *domain.Config
	logger *slog.Logger

	db      *badger.DB
	store   *storage.BadgerStore
	events  *events.Manager
	models  *models.Registry
	vectors *vector.Store
	custom  *registry.Registry
	engine  *engine.Engine

	mu     sync.Mutex
	closed bool
}

// NewManager wires the full adapter graph. An empty DataDir keeps badger
// in memory, which is what tests and short-lived embedders want. A nil
// embedder falls back to the deterministic hash embedding.
func NewManager(cfg *domain.Config, embed vector.Embedder) (*Manager, error) {
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	if cfg.DataDir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := storage.NewBadgerStore(db, logger)
	eventManager := events.NewManager(logger)
	modelRegistry := models.NewRegistry(logger)
	vectorStore := vector.NewStore(db, cfg.Vector, embed, logger)
	customRegistry := registry.NewRegistry()

	executor := engine.NewNodeExecutor(cfg.Engine, logger, engine.ExecutorDeps{
		Models:    modelRegistry,
		Vectors:   vectorStore,
		Store:     store,
		Scripts:   script.NewRunner(cfg.Script, logger),
		Commands:  script.NewCommandRunner(logger),
		Downloads: httpexec.NewDownloader(cfg.HTTP, logger),
		Actions:   httpexec.NewActionDispatcher(cfg.HTTP, cfg.GitHub, logger),
		Custom:    customRegistry,
		HTTP:      httpexec.NewClient(cfg.HTTP, logger),
	})
	eng := engine.NewEngine(cfg.Engine, logger, eventManager, store, executor)

	return &Manager{
		cfg:     cfg,
		logger:  logger.With("component", "manager"),
		db:      db,
		store:   store,
		events:  eventManager,
		models:  modelRegistry,
		vectors: vectorStore,
		custom:  customRegistry,
		engine:  eng,
	}, nil
}

// ExecuteWorkflow runs a definition to completion and returns its result.
func (m *Manager) ExecuteWorkflow(ctx context.Context, def *domain.WorkflowDefinition, initial map[string]interface{}) (*domain.WorkflowExecutionResult, error) {
	return m.engine.Execute(ctx, def, initial)
}

// ExecuteWorkflowByID loads a stored definition and runs it.
func (m *Manager) ExecuteWorkflowByID(ctx context.Context, workflowID string, initial map[string]interface{}) (*domain.WorkflowExecutionResult, error) {
	def, err := m.store.LoadDefinition(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return m.engine.Execute(ctx, def, initial)
}

// SaveWorkflow persists a definition for later execution and for nested
// workflow nodes to resolve.
func (m *Manager) SaveWorkflow(ctx context.Context, def *domain.WorkflowDefinition) error {
	if err := engine.ValidateDefinition(def); err != nil {
		return err
	}
	return m.store.SaveDefinition(ctx, def)
}

// LoadWorkflow fetches a stored definition by id.
func (m *Manager) LoadWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowDefinition, error) {
	return m.store.LoadDefinition(ctx, workflowID)
}

// LoadWorkflowFile parses and persists a JSON or YAML definition file.
func (m *Manager) LoadWorkflowFile(ctx context.Context, path string) (*domain.WorkflowDefinition, error) {
	def, err := storage.LoadDefinitionFile(path)
	if err != nil {
		return nil, err
	}
	if err := m.SaveWorkflow(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// ExecutionHistory returns the stored result of a finished execution.
func (m *Manager) ExecutionHistory(ctx context.Context, executionID string) (*domain.WorkflowExecutionResult, error) {
	return m.store.LoadExecution(ctx, executionID)
}

// CancelExecution requests cooperative cancellation of an active run.
func (m *Manager) CancelExecution(executionID string) error {
	return m.engine.Cancel(executionID)
}

// ActiveExecutions lists the ids of runs currently in flight.
func (m *Manager) ActiveExecutions() []string {
	return m.engine.ActiveExecutions()
}

// NodeByID looks a node up inside an active execution's definition.
func (m *Manager) NodeByID(executionID, nodeID string) (*domain.NodeConfig, error) {
	return m.engine.NodeByID(executionID, nodeID)
}

// RegisterModel adds a model to the catalog used by model nodes.
func (m *Manager) RegisterModel(info ports.ModelInfo, infer models.InferenceFunc) error {
	return m.models.Register(info, infer)
}

// RegisterCustomNode adds an executor for a custom node kind.
func (m *Manager) RegisterCustomNode(kind string, executor ports.CustomExecutor) error {
	return m.custom.Register(kind, executor)
}

// SearchVectors queries a vector index built by a vector_generation node.
func (m *Manager) SearchVectors(ctx context.Context, index, query string, k int) ([]ports.VectorMatch, error) {
	return m.vectors.Search(ctx, index, query, k)
}

// Events exposes the lifecycle event stream for subscription.
func (m *Manager) Events() ports.EventsPort {
	return m.events
}

// OnExecutionEvent subscribes a catch-all listener to every lifecycle
// event.
func (m *Manager) OnExecutionEvent(listener ports.ExecutionListener) {
	m.events.Subscribe(listener)
}

// Close releases storage. Active executions should be cancelled or allowed
// to finish first.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if active := m.engine.ActiveExecutions(); len(active) > 0 {
		m.logger.Warn("closing with active executions", "count", len(active))
	}
	return m.db.Close()
}
