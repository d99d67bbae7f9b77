// Package jump provides the cross-flow transfer node.
package jump

import (
	"context"
	"errors"

	"github.com/zapflow/zapflow/pkg/models"
)

// JumpNode transfers the execution to another flow. The target's current
// published version is loaded by the executor and the conversation is
// re-pinned to it.
type JumpNode struct {
	id     string
	flowID string
	nodeID string
}

// NewJumpNode creates a new jump node.
func NewJumpNode(id string, config map[string]any) (*JumpNode, error) {
	flowID, ok := config["flow_id"].(string)
	if !ok || flowID == "" {
		return nil, errors.New("missing required field 'flow_id'")
	}

	node := &JumpNode{id: id, flowID: flowID}

	if nodeID, ok := config["node_id"].(string); ok {
		node.nodeID = nodeID
	}

	return node, nil
}

// ID returns the node ID.
func (n *JumpNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *JumpNode) Type() string {
	return models.NodeTypeJump
}

// Execute requests the transfer.
func (n *JumpNode) Execute(_ context.Context, _ models.ExecutionContext) (*models.StepResult, error) {
	result := models.Continue()
	result.JumpToFlowID = n.flowID
	result.JumpToNodeID = n.nodeID

	return result, nil
}
