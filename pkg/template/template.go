// Package template provides templating for message bodies and node
// configuration values, interpolating collected conversation variables.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/zapflow/zapflow/pkg/models"
)

// RenderWithContext renders input against a node execution context. Bindings
// are exposed as both .variables and .vars; .contact carries the contact
// identity for personalization.
func RenderWithContext(input string, ec *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"variables": ec.Variables,
		"vars":      ec.Variables,
		"contact": map[string]any{
			"id":           ec.ContactID,
			"organization": ec.OrganizationID,
		},
		"flow": map[string]any{
			"id":      ec.FlowID,
			"version": ec.FlowVersion,
		},
	}

	return Render(input, data)
}

// RenderString is RenderWithContext constrained to a string result, for
// message bodies and template parameters.
func RenderString(input string, ec *models.ExecutionContext) (string, error) {
	result, err := RenderWithContext(input, ec)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%v", result), nil
}

// Render executes a Go text template over data. Results that look like
// numbers or booleans are coerced so rendered values can feed typed
// comparisons.
func Render(templateStr string, data any) (any, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := template.
		New("flow").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"trim":  strings.TrimSpace,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
