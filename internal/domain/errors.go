package domain

import (
	"errors"
	"fmt"
)

type StorageError struct {
	Type    ErrorType
	Key     string
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}

type ErrorType int

const (
	ErrKeyNotFound ErrorType = iota
	ErrCorrupted
	ErrStorageClosed
)

func NewKeyNotFoundError(key string) *StorageError {
	return &StorageError{
		Type:    ErrKeyNotFound,
		Key:     key,
		Message: "key not found: " + key,
	}
}

var (
	ErrClosed          = errors.New("provider is closed")
	ErrNotFound        = errors.New("resource not found")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// FlowError carries the flow and node context of an orchestration failure so
// the pipeline layer can format a single caller-facing message.
type FlowError struct {
	FlowID string
	NodeID string
	Op     string
	Err    error
}

func (e *FlowError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("flow %s node %s: %s: %v", e.FlowID, e.NodeID, e.Op, e.Err)
	}
	return fmt.Sprintf("flow %s: %s: %v", e.FlowID, e.Op, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func NewFlowError(flowID, nodeID, op string, err error) *FlowError {
	return &FlowError{FlowID: flowID, NodeID: nodeID, Op: op, Err: err}
}

// NodePanicError marks an executor panic that was converted into a failed
// node execution instead of crashing the run.
type NodePanicError struct {
	NodeID     string
	PanicValue interface{}
}

func (e *NodePanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.PanicValue)
}

func NewNodePanicError(nodeID string, panicValue interface{}) *NodePanicError {
	return &NodePanicError{NodeID: nodeID, PanicValue: panicValue}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsFlowError(err error) bool {
	var flowErr *FlowError
	return errors.As(err, &flowErr)
}

func IsUnknownNodeType(err error) bool {
	return errors.Is(err, ErrUnknownNodeType)
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Type == ErrKeyNotFound
	}
	return errors.Is(err, ErrNotFound)
}

func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Type == ErrStorageClosed
	}
	return errors.Is(err, ErrClosed)
}
