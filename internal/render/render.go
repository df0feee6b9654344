// Package render fills document templates with a flat placeholder
// mapping. It is the template engine collaborator of the workflow: the
// orchestrator only depends on the Renderer interface.
package render

import (
	"bytes"
	"text/template"

	"github.com/medienwerk/credsheet/internal/models"
)

// Renderer fills a template with context values.
type Renderer interface {
	Render(templateBytes []byte, context map[string]string) ([]byte, error)
}

// TextRenderer renders Go text templates. In strict mode any placeholder
// missing from the context fails the render; otherwise missing values
// resolve to empty strings.
type TextRenderer struct {
	Strict bool
}

// NewRenderer returns a strict TextRenderer. The workflow always treats
// unresolved mandatory placeholders as a render failure.
func NewRenderer() *TextRenderer {
	return &TextRenderer{Strict: true}
}

// Render parses templateBytes and executes it with context. Failures are
// reported as TemplateRenderError.
func (r *TextRenderer) Render(templateBytes []byte, context map[string]string) ([]byte, error) {
	missing := "missingkey=zero"
	if r.Strict {
		missing = "missingkey=error"
	}

	tmpl, err := template.New("document").Option(missing).Parse(string(templateBytes))
	if err != nil {
		return nil, &models.TemplateRenderError{Message: err.Error()}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return nil, &models.TemplateRenderError{Message: err.Error()}
	}
	return buf.Bytes(), nil
}
