package domain

import (
	"time"
)

type EventType string

const (
	EventWorkflowStarted   EventType = "workflow_start"
	EventWorkflowCompleted EventType = "workflow_complete"
	EventWorkflowError     EventType = "workflow_error"
	EventNodeStarted       EventType = "node_start"
	EventNodeCompleted     EventType = "node_complete"
	EventNodeError         EventType = "node_error"
)

type WorkflowStartedEvent struct {
	WorkflowID  string                 `json:"workflow_id"`
	ExecutionID string                 `json:"execution_id"`
	StartedAt   time.Time              `json:"started_at"`
	EntryNodes  []string               `json:"entry_nodes"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type WorkflowCompletedEvent struct {
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Status      WorkflowStatus `json:"status"`
	CompletedAt time.Time      `json:"completed_at"`
	Duration    time.Duration  `json:"duration"`
	NodeCount   int            `json:"node_count"`
}

type WorkflowErrorEvent struct {
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
	Error       string    `json:"error"`
	FailedNodes []string  `json:"failed_nodes,omitempty"`
	FailedAt    time.Time `json:"failed_at"`
}

type NodeStartedEvent struct {
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	NodeType    NodeType  `json:"node_type"`
	StartedAt   time.Time `json:"started_at"`
	Attempt     int       `json:"attempt"`
}

type NodeCompletedEvent struct {
	WorkflowID  string        `json:"workflow_id"`
	ExecutionID string        `json:"execution_id"`
	NodeID      string        `json:"node_id"`
	NodeType    NodeType      `json:"node_type"`
	Output      interface{}   `json:"output,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Attempts    int           `json:"attempts"`
}

// NodeErrorEvent is emitted once per failed attempt; Recoverable reports
// whether another attempt will follow.
type NodeErrorEvent struct {
	WorkflowID  string        `json:"workflow_id"`
	ExecutionID string        `json:"execution_id"`
	NodeID      string        `json:"node_id"`
	NodeType    NodeType      `json:"node_type"`
	Error       string        `json:"error"`
	FailedAt    time.Time     `json:"failed_at"`
	Duration    time.Duration `json:"duration"`
	Attempt     int           `json:"attempt"`
	Recoverable bool          `json:"recoverable"`
}
