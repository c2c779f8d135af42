package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/cdb-lab/product-radar/internal/catalog"
	db "github.com/cdb-lab/product-radar/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template function helpers.
var templateFuncs = template.FuncMap{
	"join": func(items []string, sep string) string {
		return strings.Join(items, sep)
	},
}

// Renderer handles HTML template rendering.
type Renderer struct {
	pages map[string]*template.Template
}

// Page template names.
const (
	tmplLanding   = "landing.html"
	tmplLogin     = "login.html"
	tmplDashboard = "dashboard.html"
	tmplProduct   = "product.html"
	tmplError     = "error.html"
)

// NewRenderer parses the embedded page templates.
func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)

	for _, name := range []string{tmplLanding, tmplLogin, tmplDashboard, tmplProduct, tmplError} {
		tmpl, err := template.New(name).
			Funcs(templateFuncs).
			ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		pages[name] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

func (r *Renderer) render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	return nil
}

// LandingData feeds the public teaser page.
type LandingData struct {
	WeekLabel string
	Products  []catalog.Product
	SignedIn  bool
}

// LoginData feeds the sign-in page.
type LoginData struct {
	Message   string
	Error     string
	MagicLink string // shown in local development only
}

// DashboardData feeds the authenticated dashboard.
type DashboardData struct {
	Email      string
	WeekLabel  string
	Products   []catalog.Product
	Criteria   catalog.Criteria
	Categories []string
	Sources    []string
	Total      int
}

// ProductData feeds the per-product analysis page.
type ProductData struct {
	Email  string
	Detail ProductDetailView
}

// ErrorData feeds the error page.
type ErrorData struct {
	Code      int
	Title     string
	Message   string
	BackURL   string
	BackLabel string
}

// RenderLanding renders the public teaser page.
func (r *Renderer) RenderLanding(w io.Writer, data *LandingData) error {
	return r.render(w, tmplLanding, data)
}

// RenderLogin renders the sign-in page.
func (r *Renderer) RenderLogin(w io.Writer, data *LoginData) error {
	return r.render(w, tmplLogin, data)
}

// RenderDashboard renders the authenticated dashboard.
func (r *Renderer) RenderDashboard(w io.Writer, data *DashboardData) error {
	return r.render(w, tmplDashboard, data)
}

// RenderProduct renders the product analysis page.
func (r *Renderer) RenderProduct(w io.Writer, data *ProductData) error {
	return r.render(w, tmplProduct, data)
}

// RenderError renders an error page.
func (r *Renderer) RenderError(w io.Writer, data *ErrorData) error {
	return r.render(w, tmplError, data)
}

// WeekLabel formats a run date as the French week heading, e.g.
// "Semaine du 23/08/2026". An unparseable or empty date yields an
// empty label rather than a broken heading.
func WeekLabel(runDate string) string {
	if runDate == "" {
		return ""
	}

	parsed, err := time.Parse(db.DateLayout, runDate)
	if err != nil {
		return ""
	}

	return "Semaine du " + parsed.Format("02/01/2006")
}
