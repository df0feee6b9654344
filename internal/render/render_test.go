package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medienwerk/credsheet/internal/models"
)

func TestRender(t *testing.T) {
	r := NewRenderer()
	tmpl := []byte("Mailbox: {{.primary_email}} / {{.primary_email_password}}")
	out, err := r.Render(tmpl, map[string]string{
		"primary_email":          "info@acme.test",
		"primary_email_password": "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mailbox: info@acme.test / pw", string(out))
}

func TestRender_UnresolvedPlaceholderStrict(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render([]byte("{{.no_such_key}}"), map[string]string{"a": "b"})
	require.Error(t, err)
	var renderErr *models.TemplateRenderError
	assert.ErrorAs(t, err, &renderErr)
}

func TestRender_UnresolvedPlaceholderLenient(t *testing.T) {
	r := &TextRenderer{Strict: false}
	out, err := r.Render([]byte("[{{.no_such_key}}]"), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestRender_MalformedTemplate(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render([]byte("{{.unclosed"), nil)
	require.Error(t, err)
	var renderErr *models.TemplateRenderError
	assert.ErrorAs(t, err, &renderErr)
}
