package listmenu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/models"
)

func menuConfig() map[string]any {
	return map[string]any{
		"text":     "Pick a department",
		"variable": "department",
		"rows": []any{
			map[string]any{"id": "sales", "title": "Sales"},
			map[string]any{"id": "support", "title": "Support", "description": "Technical help"},
		},
	}
}

func reply(text string) *models.InboundMessage {
	return &models.InboundMessage{
		OrganizationID: "org",
		ContactID:      "contact",
		Kind:           models.MessageKindText,
		Text:           text,
	}
}

func TestNewListMenuNode_RequiresTextAndRows(t *testing.T) {
	_, err := NewListMenuNode("menu", map[string]any{"rows": []any{}})
	assert.Error(t, err)

	_, err = NewListMenuNode("menu", map[string]any{"text": "Pick"})
	assert.Error(t, err)
}

func TestNewListMenuNode_CapsAtTenRows(t *testing.T) {
	rows := make([]any, 11)
	for i := range rows {
		rows[i] = map[string]any{"id": string(rune('a' + i)), "title": "Row"}
	}

	_, err := NewListMenuNode("menu", map[string]any{"text": "Pick", "rows": rows})

	assert.Error(t, err)
}

func TestExecute_FirstEntryOffersMenu(t *testing.T) {
	node, err := NewListMenuNode("menu", menuConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuspend, result.Outcome)
	require.Len(t, result.Outbound, 1)
	assert.Equal(t, "Pick a department", result.Outbound[0].Text)
	assert.Len(t, result.Outbound[0].Options, 2)
}

func TestExecute_PickByIDSelectsBranchAndBinds(t *testing.T) {
	node, err := NewListMenuNode("menu", menuConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply:    reply("support"),
		Branches: []string{"sales", "support"},
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeContinue, result.Outcome)
	assert.Equal(t, "support", result.Branch)
	assert.Equal(t, "support", result.Bindings["department"])
}

func TestExecute_PickByTitleIsCaseInsensitive(t *testing.T) {
	node, err := NewListMenuNode("menu", menuConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply:    reply("  SALES  "),
		Branches: []string{"sales", "support"},
	})

	require.NoError(t, err)
	assert.Equal(t, "sales", result.Branch)
}

func TestExecute_UnrecognizedPickReoffers(t *testing.T) {
	node, err := NewListMenuNode("menu", menuConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply: reply("billing"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuspend, result.Outcome)
	assert.True(t, result.InvalidReply)
}

func TestExecute_PickWithoutMatchingBranchContinuesUnlabeled(t *testing.T) {
	node, err := NewListMenuNode("menu", menuConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply: reply("sales"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeContinue, result.Outcome)
	assert.Empty(t, result.Branch)
	assert.Equal(t, "sales", result.Bindings["department"])
}
