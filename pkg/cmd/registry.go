package cmd

import (
	"database/sql"
	"log/slog"

	"github.com/zapflow/zapflow/pkg/collaborators"
	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/registry"
)

// NewRegistry wires the built-in node types with the default collaborators:
// event bus backed dispatch and handoff, JSON-over-HTTP calls, template
// expression evaluation and, when a customer database handle is given, SQL
// queries.
func NewRegistry(log *slog.Logger, eventBus eventbus.EventBus, customerDB *sql.DB) *registry.Registry {
	deps := registry.Collaborators{
		HTTP:    collaborators.NewHTTPClient(),
		Scripts: collaborators.NewTemplateScriptRunner(),
		Humans:  collaborators.NewBusHumanQueue(eventBus),
	}

	if customerDB != nil {
		deps.Queries = collaborators.NewSQLQueryExecutor(customerDB)
	}

	return registry.NewDefaultRegistry(log, deps)
}
