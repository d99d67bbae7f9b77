// Package registry holds the node factories available to the engine. It
// serves two callers: the executor creating node instances at runtime and
// the publish-time validator looking up config schemas.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapflow/zapflow/pkg/protocol"
)

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

func (r *Registry) RegisterNode(nodeFactory protocol.NodeFactory) {
	r.nodeFactories[nodeFactory.ID()] = nodeFactory
}

// CreateNode instantiates a node of the given type with its config.
// Implements the executor's node provider.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.Create(ctx, id, config)
}

// NodeSchema returns the config schema for a node type. Implements the
// validator's schema provider.
func (r *Registry) NodeSchema(nodeType string) (map[string]any, bool) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, false
	}

	return factory.Schema(), true
}

// NodeTypes returns the registered node type IDs.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.nodeFactories))
	for nodeType := range r.nodeFactories {
		types = append(types, nodeType)
	}

	return types
}

// Factories returns every registered node factory.
func (r *Registry) Factories() []protocol.NodeFactory {
	factories := make([]protocol.NodeFactory, 0, len(r.nodeFactories))
	for _, factory := range r.nodeFactories {
		factories = append(factories, factory)
	}

	return factories
}
