// Package random provides the weighted A/B split node.
package random

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"

	"github.com/zapflow/zapflow/pkg/models"
)

// RandomNode picks one outgoing branch with probability proportional to the
// edge weights declared on the flow graph.
type RandomNode struct {
	id   string
	pick func(total float64) float64
}

// NewRandomNode creates a new random node.
func NewRandomNode(id string, _ map[string]any) (*RandomNode, error) {
	return &RandomNode{
		id: id,
		pick: func(total float64) float64 {
			return rand.Float64() * total
		},
	}, nil
}

// ID returns the node ID.
func (n *RandomNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *RandomNode) Type() string {
	return models.NodeTypeRandom
}

// Execute draws a branch proportionally to the declared edge weights.
func (n *RandomNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	if len(ec.BranchWeights) == 0 {
		return nil, errors.New("random node has no weighted branches")
	}

	// Stable iteration order so the draw maps to branches deterministically.
	labels := make([]string, 0, len(ec.BranchWeights))
	for label := range ec.BranchWeights {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	total := 0.0
	for _, label := range labels {
		total += ec.BranchWeights[label]
	}

	if total <= 0 {
		return nil, errors.New("random node branch weights sum to zero")
	}

	draw := n.pick(total)

	for _, label := range labels {
		draw -= ec.BranchWeights[label]
		if draw < 0 {
			return models.ContinueTo(label), nil
		}
	}

	return models.ContinueTo(labels[len(labels)-1]), nil
}
