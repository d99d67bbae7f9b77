package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapflow/zapflow/pkg/models"
)

func TestRender_PlainString(t *testing.T) {
	result, err := Render("hello", nil)

	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestRender_VariableInterpolation(t *testing.T) {
	data := map[string]any{"variables": map[string]any{"name": "Ana"}}

	result, err := Render("Oi {{.variables.name}}!", data)

	require.NoError(t, err)
	assert.Equal(t, "Oi Ana!", result)
}

func TestRender_NumericCoercion(t *testing.T) {
	data := map[string]any{"variables": map[string]any{"age": 42}}

	result, err := Render("{{.variables.age}}", data)

	require.NoError(t, err)
	assert.Equal(t, 42.0, result)
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := Render("{{.variables.", nil)

	assert.Error(t, err)
}

func TestRenderString_WithContext(t *testing.T) {
	ec := &models.ExecutionContext{
		ContactID: "5511999990000",
		Variables: map[string]any{"order": "A-19"},
	}

	out, err := RenderString("Pedido {{.vars.order}} confirmado", ec)

	require.NoError(t, err)
	assert.Equal(t, "Pedido A-19 confirmado", out)
}

func TestRender_Funcs(t *testing.T) {
	result, err := Render(`{{upper "oi"}}`, nil)

	require.NoError(t, err)
	assert.Equal(t, "OI", result)
}
