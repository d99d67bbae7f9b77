package flow

import "github.com/zapflow/zapflow/pkg/models"

// Graph is the index-referenced adjacency view of a flow definition. It holds
// no pointers between nodes, only node IDs, so a compiled published flow is
// immutable and safely shared across concurrent executions.
type Graph struct {
	flow     *models.Flow
	nodes    map[string]*models.FlowNode
	outgoing map[string][]*models.Edge
	indegree map[string]int
}

// Compile builds the adjacency index for a flow definition.
func Compile(f *models.Flow) *Graph {
	g := &Graph{
		flow:     f,
		nodes:    make(map[string]*models.FlowNode, len(f.Nodes)),
		outgoing: make(map[string][]*models.Edge, len(f.Nodes)),
		indegree: make(map[string]int, len(f.Nodes)),
	}

	for _, node := range f.Nodes {
		g.nodes[node.ID] = node
		g.indegree[node.ID] = 0
	}

	for _, edge := range f.Edges {
		g.outgoing[edge.SourceID] = append(g.outgoing[edge.SourceID], edge)
		g.indegree[edge.TargetID]++
	}

	return g
}

// Flow returns the underlying definition.
func (g *Graph) Flow() *models.Flow {
	return g.flow
}

// Node returns a node by ID, or nil.
func (g *Graph) Node(id string) *models.FlowNode {
	return g.nodes[id]
}

// Outgoing returns the outgoing edges of a node in declaration order.
func (g *Graph) Outgoing(nodeID string) []*models.Edge {
	return g.outgoing[nodeID]
}

// Branches returns the labels of a node's outgoing edges.
func (g *Graph) Branches(nodeID string) []string {
	edges := g.outgoing[nodeID]
	labels := make([]string, 0, len(edges))

	for _, edge := range edges {
		if edge.Label != "" {
			labels = append(labels, edge.Label)
		}
	}

	return labels
}

// BranchWeights returns the labeled outgoing edges of a node with their
// declared weights.
func (g *Graph) BranchWeights(nodeID string) map[string]float64 {
	edges := g.outgoing[nodeID]
	weights := make(map[string]float64, len(edges))

	for _, edge := range edges {
		if edge.Label != "" {
			weights[edge.Label] = edge.Weight
		}
	}

	return weights
}

// Next returns the outgoing edge matching the given branch label. An empty
// label and the default label are interchangeable.
func (g *Graph) Next(nodeID, label string) (*models.Edge, bool) {
	for _, edge := range g.outgoing[nodeID] {
		if edge.Label == label {
			return edge, true
		}

		if label == "" && edge.Label == models.EdgeLabelDefault {
			return edge, true
		}

		if label == models.EdgeLabelDefault && edge.Label == "" {
			return edge, true
		}
	}

	return nil, false
}

// InDegree returns the number of edges targeting a node.
func (g *Graph) InDegree(nodeID string) int {
	return g.indegree[nodeID]
}
