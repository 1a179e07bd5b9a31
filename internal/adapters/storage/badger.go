package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
	"github.com/goccy/go-json"

	"github.com/osier-labs/weave/internal/domain"
)

const (
	definitionPrefix = "workflow:definition:"
	executionPrefix  = "workflow:execution:"
)

// BadgerStore keeps workflow definitions and execution history in a badger
// keyspace. Definitions live under workflow:definition:<id>, execution
// results under workflow:execution:<execution-id>.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

func NewBadgerStore(db *badger.DB, logger *slog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With("component", "workflow-store"),
	}
}

func (s *BadgerStore) SaveDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("definition id is required: %w", domain.ErrInvalidConfig)
	}
	return s.put(definitionPrefix+def.ID, def)
}

func (s *BadgerStore) LoadDefinition(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	if err := s.get(definitionPrefix+id, &def); err != nil {
		return nil, fmt.Errorf("definition %q: %w", id, err)
	}
	return &def, nil
}

func (s *BadgerStore) SaveExecution(ctx context.Context, result *domain.WorkflowExecutionResult) error {
	if result.ExecutionID == "" {
		return fmt.Errorf("execution id is required: %w", domain.ErrInvalidConfig)
	}
	return s.put(executionPrefix+result.ExecutionID, result)
}

func (s *BadgerStore) LoadExecution(ctx context.Context, executionID string) (*domain.WorkflowExecutionResult, error) {
	var result domain.WorkflowExecutionResult
	if err := s.get(executionPrefix+executionID, &result); err != nil {
		return nil, fmt.Errorf("execution %q: %w", executionID, err)
	}
	return &result, nil
}

// ListDefinitionIDs enumerates stored definition ids with a keys-only scan.
func (s *BadgerStore) ListDefinitionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(definitionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[len(definitionPrefix):])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *BadgerStore) put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) get(key string, out interface{}) error {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}
