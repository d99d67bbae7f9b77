// Package condition provides the branching node: typed predicates evaluated
// in declaration order against the conversation variables.
package condition

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/models"
)

// ConditionNode evaluates its predicates top to bottom and follows the branch
// of the first match. When nothing matches it follows the default edge, and
// faults if none is declared.
type ConditionNode struct {
	id         string
	predicates []flow.ConditionPredicate
}

// NewConditionNode creates a new condition node.
func NewConditionNode(id string, config map[string]any) (*ConditionNode, error) {
	predicates, err := flow.ConditionPredicates(config)
	if err != nil {
		return nil, err
	}

	return &ConditionNode{id: id, predicates: predicates}, nil
}

// ID returns the node ID.
func (n *ConditionNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ConditionNode) Type() string {
	return models.NodeTypeCondition
}

// Execute selects the branch of the first matching predicate.
func (n *ConditionNode) Execute(_ context.Context, ec models.ExecutionContext) (*models.StepResult, error) {
	for _, predicate := range n.predicates {
		match, err := n.evaluate(predicate, ec)
		if err != nil {
			return nil, err
		}

		if match {
			return models.ContinueTo(predicate.Branch), nil
		}
	}

	if ec.HasBranch(models.EdgeLabelDefault) {
		return models.ContinueTo(models.EdgeLabelDefault), nil
	}

	return nil, fmt.Errorf("no predicate matched and no default branch is declared")
}

func (n *ConditionNode) evaluate(predicate flow.ConditionPredicate, ec models.ExecutionContext) (bool, error) {
	value, bound := ec.Variable(predicate.Variable)
	if !bound {
		return false, nil
	}

	if predicate.Type == "number" {
		return evaluateNumber(predicate, value)
	}

	return evaluateString(predicate, value)
}

func evaluateNumber(predicate flow.ConditionPredicate, value any) (bool, error) {
	left, ok := asNumber(value)
	if !ok {
		return false, nil
	}

	right, err := strconv.ParseFloat(predicate.Value, 64)
	if err != nil {
		return false, fmt.Errorf("predicate on %q: value %q is not numeric", predicate.Variable, predicate.Value)
	}

	switch predicate.Operator {
	case "eq":
		return left == right, nil
	case "neq":
		return left != right, nil
	case "gt":
		return left > right, nil
	case "gte":
		return left >= right, nil
	case "lt":
		return left < right, nil
	case "lte":
		return left <= right, nil
	default:
		return false, fmt.Errorf("unknown numeric operator %q", predicate.Operator)
	}
}

func evaluateString(predicate flow.ConditionPredicate, value any) (bool, error) {
	left := fmt.Sprintf("%v", value)

	switch predicate.Operator {
	case "eq":
		return left == predicate.Value, nil
	case "neq":
		return left != predicate.Value, nil
	case "contains":
		return strings.Contains(left, predicate.Value), nil
	default:
		return false, fmt.Errorf("unknown string operator %q", predicate.Operator)
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
