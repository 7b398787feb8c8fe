package provider

import (
	"fmt"
	"regexp"
	"strconv"

	"ChatDesk/server/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\d+)\}\}`)

// TemplateVars holds positional placeholder values grouped per component,
// the way the provider's send API expects them.
type TemplateVars struct {
	Header map[int]string `json:"header,omitempty"`
	Body   map[int]string `json:"body,omitempty"`
	Footer map[int]string `json:"footer,omitempty"`
}

// RenderTemplate substitutes every {{n}} placeholder in the component texts.
// The result is what gets stored as message content; a placeholder with no
// matching variable fails the render so an unresolved {{n}} can never reach
// the store.
func RenderTemplate(name, headerText, bodyText, footerText string, vars TemplateVars) (*models.TemplateRender, error) {
	header, err := substitute(headerText, vars.Header)
	if err != nil {
		return nil, fmt.Errorf("template %s header: %w", name, err)
	}
	body, err := substitute(bodyText, vars.Body)
	if err != nil {
		return nil, fmt.Errorf("template %s body: %w", name, err)
	}
	footer, err := substitute(footerText, vars.Footer)
	if err != nil {
		return nil, fmt.Errorf("template %s footer: %w", name, err)
	}

	return &models.TemplateRender{
		Name:   name,
		Header: header,
		Body:   body,
		Footer: footer,
	}, nil
}

func substitute(text string, vars map[int]string) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		n, _ := strconv.Atoi(placeholderPattern.FindStringSubmatch(match)[1])
		value, ok := vars[n]
		if !ok {
			missing = match
			return match
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("unresolved placeholder %s", missing)
	}
	return rendered, nil
}

// FlattenContent joins the rendered components into the single content
// string stored on the message row.
func FlattenContent(tpl *models.TemplateRender) string {
	content := tpl.Body
	if tpl.Header != "" {
		content = tpl.Header + "\n" + content
	}
	if tpl.Footer != "" {
		content = content + "\n" + tpl.Footer
	}
	return content
}
