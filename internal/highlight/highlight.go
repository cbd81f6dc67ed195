// Package highlight renders source code to themed HTML with chroma.
//
// A Highlighter is a process-wide service: construct it once, Init it, optionally
// Warm the grammars known to be needed, and inject it where code blocks are
// rendered. Grammars are loaded the first time a language is requested and kept
// until Close.
package highlight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUnknownTheme        = errors.New("unknown highlight theme")
	ErrClosed              = errors.New("highlighter is closed")
)

// Highlighter owns the formatter, loaded themes and grammar cache.
type Highlighter struct {
	themes []string
	logger *slog.Logger

	initOnce  sync.Once
	initErr   error
	formatter *chromahtml.Formatter

	mu          sync.RWMutex
	styles      map[string]*chroma.Style
	lexers      map[string]chroma.Lexer
	unsupported map[string]struct{}
	closed      bool
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Highlighter) { h.logger = l }
}

// New creates a Highlighter for themes. The first theme is the default.
func New(themes []string, opts ...Option) *Highlighter {
	h := &Highlighter{
		themes:      slices.Clone(themes),
		logger:      slog.Default(),
		styles:      make(map[string]*chroma.Style),
		lexers:      make(map[string]chroma.Lexer),
		unsupported: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Themes returns the configured themes in order.
func (h *Highlighter) Themes() []string { return slices.Clone(h.themes) }

// Init resolves the configured themes and builds the formatter. It runs once;
// later calls return the first result.
func (h *Highlighter) Init(ctx context.Context) error {
	h.initOnce.Do(func() {
		if err := ctx.Err(); err != nil {
			h.initErr = err
			return
		}
		if len(h.themes) == 0 {
			h.initErr = fmt.Errorf("%w: no themes configured", ErrUnknownTheme)
			return
		}
		h.formatter = chromahtml.New(
			chromahtml.WithClasses(false),
			chromahtml.TabWidth(4),
		)
		for _, theme := range h.themes {
			if _, err := h.style(theme); err != nil {
				h.initErr = err
				return
			}
		}
		h.logger.Debug("Highlighter initialized", slog.Any("themes", h.themes))
	})
	return h.initErr
}

// Warm loads grammars ahead of first use. Unsupported names are reported but
// do not stop the remaining languages from loading.
func (h *Highlighter) Warm(ctx context.Context, langs ...string) error {
	if err := h.Init(ctx); err != nil {
		return err
	}
	var errs []error
	for _, lang := range langs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := h.lexer(lang); err != nil {
			h.logger.Warn("Cannot preload grammar", logfields.Language(lang), logfields.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Highlight renders code in lang with theme. An empty theme selects the
// default. The result is wrapped in a div carrying "highlight" and
// "highlight-{theme}" classes.
func (h *Highlighter) Highlight(ctx context.Context, code, lang, theme string) (string, error) {
	if err := h.Init(ctx); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if theme == "" {
		theme = h.themes[0]
	}

	style, err := h.style(theme)
	if err != nil {
		return "", err
	}
	lexer, err := h.lexer(lang)
	if err != nil {
		return "", err
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", lang, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<div class="highlight highlight-%s" data-lang="%s">`,
		html.EscapeString(theme), html.EscapeString(normalize(lang)))
	if err := h.formatter.Format(&buf, style, it); err != nil {
		return "", fmt.Errorf("format %s: %w", lang, err)
	}
	buf.WriteString("</div>")
	return buf.String(), nil
}

// LoadedLanguages returns the cached grammar names, sorted.
func (h *Highlighter) LoadedLanguages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.lexers))
	for k := range h.lexers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Close drops the caches. Further calls fail with ErrClosed.
func (h *Highlighter) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	clear(h.lexers)
	clear(h.styles)
	clear(h.unsupported)
	return nil
}

func (h *Highlighter) style(theme string) (*chroma.Style, error) {
	h.mu.RLock()
	s, ok := h.styles[theme]
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return s, nil
	}

	s, ok = styles.Registry[strings.ToLower(theme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	h.styles[theme] = s
	return s, nil
}

func (h *Highlighter) lexer(lang string) (chroma.Lexer, error) {
	key := normalize(lang)

	h.mu.RLock()
	l, ok := h.lexers[key]
	_, bad := h.unsupported[key]
	closed := h.closed
	h.mu.RUnlock()
	switch {
	case closed:
		return nil, ErrClosed
	case ok:
		return l, nil
	case bad || key == "":
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	l = lexers.Get(key)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if l == nil {
		h.unsupported[key] = struct{}{}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	if existing, ok := h.lexers[key]; ok {
		return existing, nil
	}
	l = chroma.Coalesce(l)
	h.lexers[key] = l
	h.logger.Debug("Loaded grammar", logfields.Language(key))
	return l, nil
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
