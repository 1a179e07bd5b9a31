package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrTimeout            = errors.New("operation timeout")
	ErrCancelled          = errors.New("execution cancelled")
	ErrTooManyExecutions  = errors.New("too many concurrent executions")
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrUnregisteredCustom = errors.New("unregistered custom node type")
)

type ValidationKind string

const (
	ValidationDuplicateNodeID    ValidationKind = "duplicate_node_id"
	ValidationDanglingDependency ValidationKind = "dangling_dependency"
	ValidationCycle              ValidationKind = "cycle"
	ValidationInvalidEntryNode   ValidationKind = "invalid_entry_node"
)

// ValidationError is raised before any node executes and is fatal to the
// whole run.
type ValidationError struct {
	Kind   ValidationKind
	NodeID string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("workflow validation failed (%s) at node %q: %s", e.Kind, e.NodeID, e.Detail)
	}
	return fmt.Sprintf("workflow validation failed (%s): %s", e.Kind, e.Detail)
}

func NewValidationError(kind ValidationKind, nodeID, detail string) *ValidationError {
	return &ValidationError{Kind: kind, NodeID: nodeID, Detail: detail}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NodeConfigError marks a node missing required fields for its type. It is
// raised at dispatch time and treated as that node's failure, not a
// whole-run abort.
type NodeConfigError struct {
	NodeID string
	Type   NodeType
	Reason string
}

func (e *NodeConfigError) Error() string {
	return fmt.Sprintf("node %q (%s) misconfigured: %s", e.NodeID, e.Type, e.Reason)
}

func NewNodeConfigError(nodeID string, nodeType NodeType, reason string) *NodeConfigError {
	return &NodeConfigError{NodeID: nodeID, Type: nodeType, Reason: reason}
}

func IsNodeConfigError(err error) bool {
	var ce *NodeConfigError
	return errors.As(err, &ce)
}

// NodeError wraps any failure from a node's type-specific logic with the
// originating node id for traceability.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func NewNodeError(nodeID string, err error) *NodeError {
	return &NodeError{NodeID: nodeID, Err: err}
}

// TimeoutError marks a node that exceeded its configured timeout. It counts
// as one failed attempt and is eligible for retry.
type TimeoutError struct {
	NodeID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %q timed out after %s", e.NodeID, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// PanicError carries a recovered panic out of a node executor as an
// ordinary node failure.
type PanicError struct {
	NodeID     string
	PanicValue interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %q panicked: %v", e.NodeID, e.PanicValue)
}
