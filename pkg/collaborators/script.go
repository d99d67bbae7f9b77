package collaborators

import (
	"context"

	"github.com/zapflow/zapflow/pkg/template"
)

// TemplateScriptRunner evaluates script node expressions with the template
// engine, the same evaluation model used everywhere else in flow configs.
// Expressions are Go template actions over the bound variables.
type TemplateScriptRunner struct{}

// NewTemplateScriptRunner creates the default script runner.
func NewTemplateScriptRunner() *TemplateScriptRunner {
	return &TemplateScriptRunner{}
}

// Run renders the expression against the variables and returns the result
// with numeric and boolean output coerced to native types.
func (r *TemplateScriptRunner) Run(_ context.Context, source string, variables map[string]any) (any, error) {
	return template.Render(source, map[string]any{
		"variables": variables,
		"vars":      variables,
	})
}
