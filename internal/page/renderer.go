// Package page turns post data into complete HTML documents using
// html/template. Default templates are embedded; any of them can be replaced
// by a file of the same name in an override directory.
package page

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// Name identifies a page template.
type Name string

const (
	NameLayout  Name = "layout.html"
	NameList    Name = "list.html"
	NamePost    Name = "post.html"
	NameArchive Name = "archive.html"
)

var pageNames = []Name{NameList, NamePost, NameArchive}

// ErrUnknownTemplate is returned when RenderPage is asked for a template that
// was never loaded.
var ErrUnknownTemplate = errors.New("unknown page template")

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Renderer executes page templates inside the layout. It is safe for
// concurrent use once constructed.
type Renderer struct {
	layout *template.Template
	pages  map[Name]*template.Template
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*rendererOptions)

type rendererOptions struct {
	dir    string
	logger *slog.Logger
}

// WithTemplateDir sets the override directory.
func WithTemplateDir(dir string) Option {
	return func(o *rendererOptions) { o.dir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *rendererOptions) { o.logger = l }
}

// NewRenderer loads and parses all templates. Override files that exist but
// fail to parse are reported as errors rather than silently replaced.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := rendererOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{pages: make(map[Name]*template.Template, len(pageNames)), logger: o.logger}

	layout, err := r.load(o.dir, NameLayout)
	if err != nil {
		return nil, err
	}
	r.layout = layout
	for _, name := range pageNames {
		t, err := r.load(o.dir, name)
		if err != nil {
			return nil, err
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) load(dir string, name Name) (*template.Template, error) {
	raw, source, err := r.source(dir, name)
	if err != nil {
		return nil, err
	}
	t, err := template.New(string(name)).Option("missingkey=error").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s template %s: %w", source, name, err)
	}
	return t, nil
}

// source returns the override body when present and non-blank, otherwise the
// embedded default.
func (r *Renderer) source(dir string, name Name) (string, string, error) {
	if dir != "" {
		p := filepath.Join(dir, string(name))
		// #nosec G304 - dir comes from trusted configuration
		b, err := os.ReadFile(p)
		switch {
		case err == nil && strings.TrimSpace(string(b)) != "":
			r.logger.Debug("Loaded template override", logfields.File(string(name)), logfields.Path(p))
			return string(b), "override", nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", "", fmt.Errorf("read template override %s: %w", p, err)
		}
	}
	b, err := embeddedTemplates.ReadFile("templates/" + string(name))
	if err != nil {
		return "", "", fmt.Errorf("embedded template %s missing: %w", name, err)
	}
	return string(b), "embedded", nil
}

// RenderPage executes the named page template with data and wraps the result
// in the layout.
func (r *Renderer) RenderPage(ctx context.Context, name Name, data any, layout Layout) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, ok := r.pages[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}

	var out bytes.Buffer
	// #nosec G203 - body was produced by an html/template execution
	if err := r.layout.Execute(&out, layoutData{Layout: layout, Content: template.HTML(body.String())}); err != nil {
		return "", fmt.Errorf("execute %s for %s: %w", NameLayout, name, err)
	}
	return out.String(), nil
}

// Render renders an envelope.
func (r *Renderer) Render(ctx context.Context, env Envelope) (string, error) {
	return r.RenderPage(ctx, env.Name, env.Data, env.Layout)
}
