package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"job_portal/internal/domain/models"

	"github.com/labstack/echo/v4"
)

//go:embed templates
var templateFS embed.FS

// Page is the data every template receives. Identity is filled from the
// request when the handler leaves it empty, so the layout can branch on it.
type Page struct {
	Title     string
	Identity  *models.Identity
	Error     string
	Email     string
	ReturnURL string
	Status    int
	Message   string
}

type Renderer struct {
	templates map[string]*template.Template
}

func New() (*Renderer, error) {
	const op = "views.New"

	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", p)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, p, err)
		}
		r.templates[strings.TrimSuffix(path.Base(p), ".html")] = tmpl
	}

	return r, nil
}

func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}

	return r
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("views: template %q not found", name)
	}

	if page, ok := data.(*Page); ok && page.Identity == nil && c != nil {
		if identity, ok := models.IdentityFromContext(c.Request().Context()); ok {
			page.Identity = &identity
		}
	}

	return tmpl.ExecuteTemplate(w, "layout", data)
}

var fallback = MustNew()

// RenderError writes the shared error page with the given status. It works
// even when the echo instance has no renderer configured.
func RenderError(c echo.Context, status int, message string) error {
	page := &Page{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	}

	renderer := c.Echo().Renderer
	if renderer == nil {
		renderer = fallback
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, "error", page, c); err != nil {
		return err
	}

	return c.HTMLBlob(status, buf.Bytes())
}
