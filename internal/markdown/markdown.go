// Package markdown converts post bodies to HTML with goldmark, routing fenced
// code blocks through a syntax highlighter.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// CodeHighlighter renders one code block for one theme.
type CodeHighlighter interface {
	Highlight(ctx context.Context, code, lang, theme string) (string, error)
}

// Renderer is safe for concurrent use.
type Renderer struct {
	md          goldmark.Markdown
	highlighter CodeHighlighter
	themes      []string
	logger      *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithThemes renders each code block once per theme, in order. The default is
// a single call with an empty theme, leaving the choice to the highlighter.
func WithThemes(themes ...string) Option {
	return func(r *Renderer) { r.themes = slices.Clone(themes) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a Renderer. A nil highlighter leaves every code block plain.
func NewRenderer(hl CodeHighlighter, opts ...Option) *Renderer {
	r := &Renderer{
		highlighter: hl,
		themes:      []string{""},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.themes) == 0 {
		r.themes = []string{""}
	}
	r.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(codeBlockRenderer{}, 100)),
		),
	)
	return r
}

// Render converts body to HTML. Code blocks whose language cannot be
// highlighted are logged and emitted as plain escaped blocks. Context
// cancellation aborts rendering.
func (r *Renderer) Render(ctx context.Context, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc := r.md.Parser().Parse(text.NewReader(body))

	if r.highlighter != nil {
		for _, block := range fencedBlocks(doc) {
			lang := string(block.Language(body))
			if lang == "" {
				continue
			}
			code := blockText(block, body)
			out, err := r.highlightAll(ctx, code, lang)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", ctxErr
				}
				r.logger.Warn("Highlighting failed, using plain code block",
					logfields.Language(lang), logfields.Snippet(code), logfields.Error(err))
				continue
			}
			parent := block.Parent()
			parent.ReplaceChild(parent, block, &highlightedCode{lang: lang, html: out})
		}
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) highlightAll(ctx context.Context, code, lang string) (string, error) {
	var out bytes.Buffer
	for _, theme := range r.themes {
		fragment, err := r.highlighter.Highlight(ctx, code, lang, theme)
		if err != nil {
			return "", err
		}
		out.WriteString(fragment)
	}
	return out.String(), nil
}

func fencedBlocks(doc ast.Node) []*ast.FencedCodeBlock {
	var blocks []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fc, ok := n.(*ast.FencedCodeBlock); ok {
			blocks = append(blocks, fc)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func blockText(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := range lines.Len() {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}
