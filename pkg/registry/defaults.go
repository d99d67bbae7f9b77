package registry

import (
	"log/slog"

	"github.com/zapflow/zapflow/pkg/nodes/apicall"
	"github.com/zapflow/zapflow/pkg/nodes/buttons"
	"github.com/zapflow/zapflow/pkg/nodes/condition"
	"github.com/zapflow/zapflow/pkg/nodes/dbquery"
	"github.com/zapflow/zapflow/pkg/nodes/delay"
	"github.com/zapflow/zapflow/pkg/nodes/end"
	"github.com/zapflow/zapflow/pkg/nodes/handoff"
	"github.com/zapflow/zapflow/pkg/nodes/jump"
	"github.com/zapflow/zapflow/pkg/nodes/listmenu"
	"github.com/zapflow/zapflow/pkg/nodes/message"
	"github.com/zapflow/zapflow/pkg/nodes/question"
	"github.com/zapflow/zapflow/pkg/nodes/random"
	"github.com/zapflow/zapflow/pkg/nodes/script"
	"github.com/zapflow/zapflow/pkg/nodes/setvariable"
	"github.com/zapflow/zapflow/pkg/nodes/start"
	"github.com/zapflow/zapflow/pkg/nodes/watemplate"
	"github.com/zapflow/zapflow/pkg/protocol"
)

// Collaborators are the external services side-effecting nodes depend on.
type Collaborators struct {
	HTTP    protocol.HTTPExecutor
	Queries protocol.QueryExecutor
	Scripts protocol.ScriptRunner
	Humans  protocol.HumanQueue
}

// NewDefaultRegistry creates a registry with every built-in node type
// registered.
func NewDefaultRegistry(log *slog.Logger, deps Collaborators) *Registry {
	reg := NewRegistry(log)

	reg.RegisterNode(start.NewStartNodeFactory())
	reg.RegisterNode(message.NewMessageNodeFactory())
	reg.RegisterNode(question.NewQuestionNodeFactory())
	reg.RegisterNode(condition.NewConditionNodeFactory())
	reg.RegisterNode(delay.NewDelayNodeFactory())
	reg.RegisterNode(random.NewRandomNodeFactory())
	reg.RegisterNode(setvariable.NewSetVariableNodeFactory())
	reg.RegisterNode(jump.NewJumpNodeFactory())
	reg.RegisterNode(end.NewEndNodeFactory())
	reg.RegisterNode(watemplate.NewTemplateNodeFactory())
	reg.RegisterNode(buttons.NewButtonsNodeFactory())
	reg.RegisterNode(listmenu.NewListMenuNodeFactory())
	reg.RegisterNode(apicall.NewAPICallNodeFactory(deps.HTTP))
	reg.RegisterNode(dbquery.NewDatabaseQueryNodeFactory(deps.Queries))
	reg.RegisterNode(script.NewScriptNodeFactory(deps.Scripts))
	reg.RegisterNode(handoff.NewHandoffNodeFactory(deps.Humans))

	return reg
}
