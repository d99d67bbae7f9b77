// Package delay provides the timed wait node.
package delay

import (
	"context"
	"errors"
	"time"

	"github.com/zapflow/zapflow/pkg/models"
)

// DelayNode suspends the execution until a timer elapses. The wall-clock wait
// is owned by the external timer service; this node only records when the
// execution becomes due. The timer signal resumes at the node after this one,
// so a delay node is never re-entered.
type DelayNode struct {
	id       string
	duration time.Duration
}

// NewDelayNode creates a new delay node.
func NewDelayNode(id string, config map[string]any) (*DelayNode, error) {
	seconds, ok := config["seconds"].(float64)
	if !ok || seconds <= 0 {
		return nil, errors.New("missing or non-positive required field 'seconds'")
	}

	return &DelayNode{
		id:       id,
		duration: time.Duration(seconds * float64(time.Second)),
	}, nil
}

// ID returns the node ID.
func (n *DelayNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *DelayNode) Type() string {
	return models.NodeTypeDelay
}

// Execute suspends with the instant the timer should fire.
func (n *DelayNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	resumeAt := ec.Now.Add(n.duration).Unix()

	result := models.Suspend()
	result.ResumeAt = &resumeAt

	return result, nil
}
