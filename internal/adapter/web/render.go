package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/upload"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home", "category", "detail", "upload", "posted", "login", "register", "notfound"}

type renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
	minifier *minify.M
}

var funcs = template.FuncMap{
	"categoryLabel": render.CategoryLabel,
	"categories":    func() []domain.Category { return domain.Categories },
	"seconds":       func(d time.Duration) string { return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) },
}

func newRenderer(minifyHTML bool) (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	partials, err := template.New("partials").Funcs(funcs).ParseFS(templateFS, "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse partials: %w", err)
	}
	r.partials = partials

	if minifyHTML {
		m := minify.New()
		m.AddFunc("text/css", css.Minify)
		m.AddFunc("application/javascript", js.Minify)
		m.Add("text/html", &html.Minifier{KeepDocumentTags: true, KeepEndTags: true})
		r.minifier = m
	}
	return r, nil
}

// page renders a full document through layout.html.
func (r *renderer) page(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return r.write(w, &buf)
}

// fragment renders one partial to a string, for the live feed stream.
func (r *renderer) fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.partials.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	if r.minifier == nil {
		return strings.TrimSpace(buf.String()), nil
	}
	out, err := r.minifier.String("text/html", buf.String())
	if err != nil {
		return strings.TrimSpace(buf.String()), nil
	}
	return out, nil
}

func (r *renderer) write(w io.Writer, buf *bytes.Buffer) error {
	if r.minifier == nil {
		_, err := buf.WriteTo(w)
		return err
	}
	return r.minifier.Minify("text/html", w, buf)
}

// pageData is shared by every page template.
type pageData struct {
	Title    string
	Session  *session.Session
	Notices  []upload.Notice
	Category domain.Category
}

func (s *Server) base(r *http.Request, title string) pageData {
	return pageData{Title: title, Session: currentSession(r)}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data any) {
	if err := s.views.page(w, status, name, data); err != nil {
		s.logger.Error("page render failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "Something went wrong.", http.StatusInternalServerError)
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusNotFound, "notfound", s.base(r, "Not found"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a failure to the HTTP status shown with its message.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindCredential, apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindInteractionCancelled:
		return http.StatusBadRequest
	case apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
