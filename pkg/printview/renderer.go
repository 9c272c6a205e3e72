package printview

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tpl
var templateFS embed.FS

const defaultTemplate = "report.html.tpl"

// Renderer renders built documents through pongo2 templates. The embedded
// default produces a self-contained printable HTML page; callers can supply
// their own template set to restyle it.
type Renderer struct {
	set  *pongo2.TemplateSet
	name string
}

// RendererOption customises the Renderer.
type RendererOption func(*Renderer)

// WithTemplateFS loads templates from a custom fs.FS instead of the embedded
// defaults.
func WithTemplateFS(fsys fs.FS) RendererOption {
	return func(r *Renderer) {
		if fsys != nil {
			r.set = pongo2.NewSet("printview", pongo2.NewFSLoader(fsys))
		}
	}
}

// WithTemplate selects a template name within the loaded set.
func WithTemplate(name string) RendererOption {
	return func(r *Renderer) {
		if name != "" {
			r.name = name
		}
	}
}

// NewRenderer constructs a Renderer with the embedded report template.
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("printview: embedded templates: %w", err)
	}
	r := &Renderer{
		set:  pongo2.NewSet("printview", pongo2.NewFSLoader(sub)),
		name: defaultTemplate,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r, nil
}

// Render produces the printable surface for a built document.
func (r *Renderer) Render(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("printview: document is nil")
	}
	tmpl, err := r.set.FromFile(r.name)
	if err != nil {
		return "", fmt.Errorf("printview: load template %q: %w", r.name, err)
	}
	out, err := tmpl.Execute(pongo2.Context{
		"title":       doc.Title,
		"headers":     doc.Headers,
		"groups":      doc.Groups,
		"grandTotals": doc.GrandTotals,
		"generatedAt": doc.GeneratedAt,
	})
	if err != nil {
		return "", fmt.Errorf("printview: render: %w", err)
	}
	return out, nil
}
