package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGraph   = errors.New("workflow: invalid graph")
	ErrWorkflowState  = errors.New("workflow: missing or invalid state field")
	ErrUnroutedBranch = errors.New("workflow: router returned an undeclared destination")
	ErrMaxSteps       = errors.New("workflow: step limit exceeded")
	ErrUnknownNode    = errors.New("workflow: unknown node")
	ErrNoCheckpoint   = errors.New("workflow: no checkpoint")
	ErrNoStore        = errors.New("workflow: no checkpoint store configured")
)

// NodeError reports which node of which graph failed.
type NodeError struct {
	Graph string
	Node  string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("workflow %s: node %s: %v", e.Graph, e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// MissingField builds an ErrWorkflowState error for a router or node that
// found a required field unset.
func MissingField(field string) error {
	return fmt.Errorf("%w: %s is not set", ErrWorkflowState, field)
}
