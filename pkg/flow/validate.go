package flow

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zapflow/zapflow/pkg/models"
)

// SchemaProvider exposes per-node-type configuration schemas. Implemented by
// the node registry.
type SchemaProvider interface {
	NodeSchema(nodeType string) (map[string]any, bool)
}

// Validator performs publish-time validation of a flow definition. Flows that
// fail validation cannot be published, so none of these problems exist at
// runtime.
type Validator struct {
	schemas SchemaProvider
}

// NewValidator creates a flow validator backed by the given schema provider.
func NewValidator(schemas SchemaProvider) *Validator {
	return &Validator{schemas: schemas}
}

// Validate checks the structural invariants of a flow graph and returns a
// ValidationError listing every problem found.
func (v *Validator) Validate(f *models.Flow) error {
	issues := make([]string, 0)

	graph := Compile(f)

	issues = append(issues, v.checkStart(f, graph)...)
	issues = append(issues, v.checkEdges(f, graph)...)
	issues = append(issues, v.checkNodes(f, graph)...)

	if len(issues) > 0 {
		return &ValidationError{FlowID: f.ID, Issues: issues}
	}

	return nil
}

// checkStart enforces exactly one start node, with in-degree 0.
func (v *Validator) checkStart(f *models.Flow, graph *Graph) []string {
	issues := make([]string, 0)
	starts := 0

	for _, node := range f.Nodes {
		if node.Type != models.NodeTypeStart {
			continue
		}

		starts++

		if graph.InDegree(node.ID) != 0 {
			issues = append(issues, fmt.Sprintf("start node %s has incoming edges", node.ID))
		}
	}

	if starts != 1 {
		issues = append(issues, fmt.Sprintf("flow must have exactly one start node, found %d", starts))
	}

	return issues
}

func (v *Validator) checkEdges(f *models.Flow, graph *Graph) []string {
	issues := make([]string, 0)

	for _, edge := range f.Edges {
		if graph.Node(edge.SourceID) == nil {
			issues = append(issues, fmt.Sprintf("edge %s references unknown source node %s", edge.ID, edge.SourceID))
		}

		if graph.Node(edge.TargetID) == nil {
			issues = append(issues, fmt.Sprintf("edge %s references unknown target node %s", edge.ID, edge.TargetID))
		}
	}

	return issues
}

func (v *Validator) checkNodes(f *models.Flow, graph *Graph) []string {
	issues := make([]string, 0)

	for _, node := range f.Nodes {
		schema, known := v.schemas.NodeSchema(node.Type)
		if !known && node.Type != models.NodeTypeStart {
			issues = append(issues, fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type))

			continue
		}

		if known {
			issues = append(issues, v.checkConfig(node, schema)...)
		}

		// end suspends nothing and handoff may legitimately be a dead end;
		// everything else needs a way forward.
		if node.Type != models.NodeTypeEnd && node.Type != models.NodeTypeHandoff &&
			len(graph.Outgoing(node.ID)) == 0 {
			issues = append(issues, fmt.Sprintf("node %s (%s) has no outgoing edges", node.ID, node.Type))
		}

		switch node.Type {
		case models.NodeTypeCondition:
			issues = append(issues, v.checkCondition(node, graph)...)
		case models.NodeTypeRandom:
			issues = append(issues, v.checkRandom(node, graph)...)
		}
	}

	return issues
}

func (v *Validator) checkConfig(node *models.FlowNode, schema map[string]any) []string {
	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return []string{fmt.Sprintf("node %s config could not be validated: %v", node.ID, err)}
	}

	issues := make([]string, 0)

	for _, desc := range result.Errors() {
		issues = append(issues, fmt.Sprintf("node %s config: %s", node.ID, desc.String()))
	}

	return issues
}

// checkCondition verifies every declared predicate outcome has a matching
// labeled edge and that operand types are coherent. An unmatched outcome is a
// validation error here, never a runtime one.
func (v *Validator) checkCondition(node *models.FlowNode, graph *Graph) []string {
	issues := make([]string, 0)

	predicates, err := ConditionPredicates(node.Config)
	if err != nil {
		return []string{fmt.Sprintf("node %s: %v", node.ID, err)}
	}

	for _, predicate := range predicates {
		if _, ok := graph.Next(node.ID, predicate.Branch); !ok {
			issues = append(issues,
				fmt.Sprintf("node %s declares outcome %q with no matching edge", node.ID, predicate.Branch))
		}

		if predicate.Type == "number" {
			if _, err := strconv.ParseFloat(predicate.Value, 64); err != nil {
				issues = append(issues,
					fmt.Sprintf("node %s predicate on %q: value %q is not numeric", node.ID, predicate.Variable, predicate.Value))
			}
		}
	}

	return issues
}

func (v *Validator) checkRandom(node *models.FlowNode, graph *Graph) []string {
	issues := make([]string, 0)
	edges := graph.Outgoing(node.ID)

	total := 0.0

	for _, edge := range edges {
		if edge.Weight < 0 {
			issues = append(issues, fmt.Sprintf("node %s edge %s has negative weight", node.ID, edge.ID))
		}

		total += edge.Weight
	}

	if len(edges) > 0 && total <= 0 {
		issues = append(issues, fmt.Sprintf("node %s has no positive edge weights", node.ID))
	}

	return issues
}

// ConditionPredicate is one typed comparison evaluated by a condition node.
// Operand types are explicit; there is no implicit coercion between string
// and numeric comparisons.
type ConditionPredicate struct {
	Variable string `json:"variable"`
	Operator string `json:"operator"` // eq, neq, gt, gte, lt, lte, contains
	Value    string `json:"value"`
	Type     string `json:"type"` // string | number
	Branch   string `json:"branch"`
}

// ConditionPredicates extracts the typed predicate list from a condition
// node's generic config map.
func ConditionPredicates(config map[string]any) ([]ConditionPredicate, error) {
	raw, ok := config["predicates"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'predicates'")
	}

	// Round-trip through JSON to get typed predicates out of the generic
	// config map.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid predicates: %w", err)
	}

	var predicates []ConditionPredicate

	err = json.Unmarshal(data, &predicates)
	if err != nil {
		return nil, fmt.Errorf("invalid predicates: %w", err)
	}

	return predicates, nil
}
