package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"lojaonline/internal/models"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages rendered by the storefront. Each one is parsed together with base.html.
var pages = []string{
	"home.html",
	"products.html",
	"product.html",
	"register.html",
	"login.html",
	"profile.html",
	"cart.html",
	"checkout.html",
	"order.html",
	"orders.html",
	"error.html",
}

// TemplateFuncs are available to every page.
var TemplateFuncs = template.FuncMap{
	"brl": models.FormatBRL,
	"date": func(t time.Time) string {
		return t.Local().Format("02/01/2006 15:04")
	},
}

// HTMLRenderer keeps a separate template set for every page.
type HTMLRenderer struct {
	Templates map[string]*template.Template
}

// LoadTemplates parses every page with the shared layout.
func LoadTemplates(fsys fs.FS) (*HTMLRenderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(TemplateFuncs).ParseFS(fsys, "templates/"+name, "templates/base.html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &HTMLRenderer{Templates: templates}, nil
}

// DefaultRenderer loads the embedded templates.
func DefaultRenderer() (*HTMLRenderer, error) {
	return LoadTemplates(templateFS)
}

// Instance implements render.HTMLRender.
func (r *HTMLRenderer) Instance(name string, data interface{}) render.Render {
	tmpl, ok := r.Templates[name]
	if !ok {
		return render.String{Format: "template %s not found", Data: []interface{}{name}}
	}
	return render.HTML{
		Template: tmpl,
		Data:     data,
	}
}
