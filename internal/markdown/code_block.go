package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// KindHighlightedCode identifies a fenced block that was already highlighted.
var KindHighlightedCode = ast.NewNodeKind("HighlightedCode")

type highlightedCode struct {
	ast.BaseBlock
	lang string
	html string
}

func (n *highlightedCode) Kind() ast.NodeKind { return KindHighlightedCode }

func (n *highlightedCode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Language": n.lang}, nil)
}

type codeBlockRenderer struct{}

func (r codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindHighlightedCode, r.render)
}

func (codeBlockRenderer) render(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(n.(*highlightedCode).html)
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}
