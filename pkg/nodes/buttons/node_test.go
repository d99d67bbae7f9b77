package buttons

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/models"
)

func sizeConfig() map[string]any {
	return map[string]any{
		"text":     "Pick a size",
		"variable": "size",
		"buttons": []any{
			map[string]any{"id": "s", "title": "Small"},
			map[string]any{"id": "l", "title": "Large"},
		},
	}
}

func reply(text string) *models.InboundMessage {
	return &models.InboundMessage{Text: text, Kind: models.MessageKindInteractive}
}

func TestNewButtonsNode_EnforcesProviderCap(t *testing.T) {
	_, err := NewButtonsNode("pick", map[string]any{
		"text": "Too many",
		"buttons": []any{
			map[string]any{"id": "1", "title": "One"},
			map[string]any{"id": "2", "title": "Two"},
			map[string]any{"id": "3", "title": "Three"},
			map[string]any{"id": "4", "title": "Four"},
		},
	})

	assert.Error(t, err)
}

func TestExecute_FirstEntryOffersButtonsAndSuspends(t *testing.T) {
	node, err := NewButtonsNode("pick", sizeConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuspend, result.Outcome)
	require.Len(t, result.Outbound, 1)
	assert.Equal(t, "Pick a size", result.Outbound[0].Text)
	require.Len(t, result.Outbound[0].Options, 2)
	assert.Equal(t, "s", result.Outbound[0].Options[0].ID)
}

func TestExecute_TapByIDSelectsBranchAndBinds(t *testing.T) {
	node, err := NewButtonsNode("pick", sizeConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply:    reply("l"),
		Branches: []string{"s", "l"},
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeContinue, result.Outcome)
	assert.Equal(t, "l", result.Branch)
	assert.Equal(t, "l", result.Bindings["size"])
}

func TestExecute_TapByTitleIsCaseInsensitive(t *testing.T) {
	node, err := NewButtonsNode("pick", sizeConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply:    reply("LARGE"),
		Branches: []string{"s", "l"},
	})

	require.NoError(t, err)
	assert.Equal(t, "l", result.Branch)
}

func TestExecute_NoMatchingBranchContinuesUnlabeled(t *testing.T) {
	node, err := NewButtonsNode("pick", sizeConfig())
	require.NoError(t, err)

	// Selection bound but the graph routes every tap the same way.
	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply: reply("s"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeContinue, result.Outcome)
	assert.Empty(t, result.Branch)
	assert.Equal(t, "s", result.Bindings["size"])
}

func TestExecute_UnrecognizedTapReoffers(t *testing.T) {
	node, err := NewButtonsNode("pick", sizeConfig())
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), models.ExecutionContext{
		Reply: reply("banana"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuspend, result.Outcome)
	assert.True(t, result.InvalidReply)
}
