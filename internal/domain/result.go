package domain

import (
	"time"
)

type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusFailed  NodeStatus = "failed"
	NodeStatusSkipped NodeStatus = "skipped"
)

type WorkflowStatus string

const (
	WorkflowStatusSuccess WorkflowStatus = "success"
	WorkflowStatusFailed  WorkflowStatus = "failed"
	WorkflowStatusPartial WorkflowStatus = "partial"
)

// NodeExecutionResult records one node's terminal outcome within a run.
// It is created when the node starts and never mutated after the run ends.
type NodeExecutionResult struct {
	NodeID    string        `json:"node_id"`
	Status    NodeStatus    `json:"status"`
	Output    interface{}   `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
}

// WorkflowExecutionResult is the terminal aggregate of one ExecuteWorkflow
// call. ExecutionID is fresh per call so concurrent runs of the same
// definition never collide.
type WorkflowExecutionResult struct {
	WorkflowID  string                          `json:"workflow_id"`
	ExecutionID string                          `json:"execution_id"`
	Status      WorkflowStatus                  `json:"status"`
	NodeResults map[string]*NodeExecutionResult `json:"node_results"`
	StartTime   time.Time                       `json:"start_time"`
	EndTime     time.Time                       `json:"end_time"`
	Duration    time.Duration                   `json:"duration"`
	Context     *WorkflowContext                `json:"context,omitempty"`
}
