package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplateSubstitutesAllPlaceholders(t *testing.T) {
	vars := TemplateVars{
		Header: map[int]string{1: "John"},
		Body:   map[int]string{1: "12345", 2: "99.99"},
	}

	rendered, err := RenderTemplate("order_update",
		"Hello {{1}}", "Your order {{1}} totals ${{2}}", "", vars)
	assert.NoError(t, err)

	assert.Equal(t, "Hello John", rendered.Header)
	assert.Equal(t, "Your order 12345 totals $99.99", rendered.Body)
	assert.Empty(t, rendered.Footer)

	content := FlattenContent(rendered)
	assert.NotRegexp(t, `\{\{\d+\}\}`, content)
	assert.Equal(t, "Hello John\nYour order 12345 totals $99.99", content)
}

func TestRenderTemplateMissingVariableFails(t *testing.T) {
	_, err := RenderTemplate("order_update", "", "Order {{1}} for {{2}}",
		"", TemplateVars{Body: map[int]string{1: "12345"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "{{2}}")
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	rendered, err := RenderTemplate("welcome", "", "Welcome aboard", "See you soon", TemplateVars{})
	assert.NoError(t, err)
	assert.Equal(t, "Welcome aboard", rendered.Body)
	assert.Equal(t, "Welcome aboard\nSee you soon", FlattenContent(rendered))
}

func TestRenderTemplateRepeatedPlaceholder(t *testing.T) {
	rendered, err := RenderTemplate("repeat", "", "{{1}} and {{1}} again",
		"", TemplateVars{Body: map[int]string{1: "x"}})
	assert.NoError(t, err)
	assert.Equal(t, "x and x again", rendered.Body)
}
