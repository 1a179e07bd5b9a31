package events

import (
	"log/slog"
	"sync"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Manager fans execution lifecycle events out to registered handlers.
// Delivery is synchronous and in registration order, so a subscriber sees
// events exactly as the engine produced them; a panicking handler is
// recovered and logged without affecting the run or other handlers.
type Manager struct {
	logger *slog.Logger

	mu                        sync.RWMutex
	workflowStartedHandlers   []func(*domain.WorkflowStartedEvent)
	workflowCompletedHandlers []func(*domain.WorkflowCompletedEvent)
	workflowErrorHandlers     []func(*domain.WorkflowErrorEvent)
	nodeStartedHandlers       []func(*domain.NodeStartedEvent)
	nodeCompletedHandlers     []func(*domain.NodeCompletedEvent)
	nodeErrorHandlers         []func(*domain.NodeErrorEvent)
	listeners                 []ports.ExecutionListener
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger.With("component", "event-manager"),
	}
}

func (m *Manager) OnWorkflowStarted(handler func(*domain.WorkflowStartedEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflowStartedHandlers = append(m.workflowStartedHandlers, handler)
}

func (m *Manager) OnWorkflowCompleted(handler func(*domain.WorkflowCompletedEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflowCompletedHandlers = append(m.workflowCompletedHandlers, handler)
}

func (m *Manager) OnWorkflowError(handler func(*domain.WorkflowErrorEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflowErrorHandlers = append(m.workflowErrorHandlers, handler)
}

func (m *Manager) OnNodeStarted(handler func(*domain.NodeStartedEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeStartedHandlers = append(m.nodeStartedHandlers, handler)
}

func (m *Manager) OnNodeCompleted(handler func(*domain.NodeCompletedEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeCompletedHandlers = append(m.nodeCompletedHandlers, handler)
}

func (m *Manager) OnNodeError(handler func(*domain.NodeErrorEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeErrorHandlers = append(m.nodeErrorHandlers, handler)
}

// Subscribe registers a catch-all listener that receives every event with
// its type tag.
func (m *Manager) Subscribe(listener ports.ExecutionListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) EmitWorkflowStarted(event *domain.WorkflowStartedEvent) {
	m.mu.RLock()
	handlers := make([]func(*domain.WorkflowStartedEvent), len(m.workflowStartedHandlers))
	copy(handlers, m.workflowStartedHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		h := handler
		m.safeCall(func() { h(event) })
	}
	m.notifyListeners(domain.EventWorkflowStarted, event)
}

func (m *Manager) EmitWorkflowCompleted(event *domain.WorkflowCompletedEvent) {
	m.mu.RLock()
	handlers := make([]func(*domain.WorkflowCompletedEvent), len(m.workflowCompletedHandlers))
	copy(handlers, m.workflowCompletedHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		h := handler
		m.safeCall(func() { h(event) })
	}
	m.notifyListeners(domain.EventWorkflowCompleted, event)
}

func (m *Manager) EmitWorkflowError(event *domain.WorkflowErrorEvent) {
	m.mu.RLock()
	handlers := make([]func(*domain.WorkflowErrorEvent), len(m.workflowErrorHandlers))
	copy(handlers, m.workflowErrorHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		h := handler
		m.safeCall(func() { h(event) })
	}
	m.notifyListeners(domain.EventWorkflowError, event)
}

func (m *Manager) EmitNodeStarted(event *domain.NodeStartedEvent) {
	m.mu.RLock()
	handlers := make([]func(*domain.NodeStartedEvent), len(m.nodeStartedHandlers))
	copy(handlers, m.nodeStartedHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		h := handler
		m.safeCall(func() { h(event) })
	}
	m.notifyListeners(domain.EventNodeStarted, event)
}

func (m *Manager) EmitNodeCompleted(event *domain.NodeCompletedEvent) {
	m.mu.RLock()
	handlers := make([]func(*domain.NodeCompletedEvent), len(m.nodeCompletedHandlers))
	copy(handlers, m.nodeCompletedHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		h := handler
		m.safeCall(func() { h(event) })
	}
	m.notifyListeners(domain.EventNodeCompleted, event)
}

func (m *Manager) EmitNodeError(event *domain.NodeErrorEvent) {
	m.mu.RLock()
	handlers := make([]func(*domain.NodeErrorEvent), len(m.nodeErrorHandlers))
	copy(handlers, m.nodeErrorHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		h := handler
		m.safeCall(func() { h(event) })
	}
	m.notifyListeners(domain.EventNodeError, event)
}

func (m *Manager) notifyListeners(eventType domain.EventType, event interface{}) {
	m.mu.RLock()
	listeners := make([]ports.ExecutionListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		l := listener
		m.safeCall(func() { l(eventType, event) })
	}
}

func (m *Manager) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event handler panicked", "panic", r)
		}
	}()
	fn()
}
