package page

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Whitespace inside these elements is significant and passed through.
var preserveTags = map[string]bool{
	"pre": true, "textarea": true, "script": true, "style": true,
}

// Whitespace-only text directly after these tags is dropped.
var blockTags = map[string]bool{
	"!doctype": true, "html": true, "head": true, "body": true, "title": true, "meta": true,
	"link": true, "script": true, "style": true, "header": true, "footer": true,
	"main": true, "nav": true, "section": true, "article": true, "div": true,
	"p": true, "ul": true, "ol": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "table": true,
	"thead": true, "tbody": true, "tr": true, "td": true, "th": true,
	"blockquote": true, "hr": true, "br": true, "figure": true,
}

const unsafeUnquoted = " \t\n\f\r\"'=<>`&"

// Minify strips comments, collapses runs of whitespace outside pre, textarea,
// script and style, and drops attribute quotes where the value allows it.
func Minify(src string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	b.Grow(len(src))

	preserve := 0
	lastTag := ""
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return b.String(), nil
			}
			return "", z.Err()

		case html.CommentToken:
			continue

		case html.DoctypeToken:
			b.Write(z.Raw())
			lastTag = "!doctype"

		case html.TextToken:
			raw := z.Raw()
			if preserve > 0 {
				b.Write(raw)
				continue
			}
			text := collapseSpace(string(raw))
			if strings.TrimSpace(text) == "" && (b.Len() == 0 || blockTags[lastTag]) {
				continue
			}
			b.WriteString(text)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			b.WriteByte('<')
			b.WriteString(tag)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				writeAttr(&b, string(key), string(val), tt == html.SelfClosingTagToken)
			}
			if tt == html.SelfClosingTagToken {
				b.WriteString("/>")
			} else {
				b.WriteByte('>')
				if preserveTags[tag] {
					preserve++
				}
			}
			lastTag = tag

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if preserveTags[tag] && preserve > 0 {
				preserve--
			}
			b.WriteString("</")
			b.WriteString(tag)
			b.WriteByte('>')
			lastTag = tag
		}
	}
}

func writeAttr(b *strings.Builder, key, val string, forceQuote bool) {
	b.WriteByte(' ')
	b.WriteString(key)
	switch {
	case val == "":
	case !forceQuote && !strings.ContainsAny(val, unsafeUnquoted):
		b.WriteByte('=')
		b.WriteString(val)
	default:
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(val))
		b.WriteByte('"')
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
				space = true
			}
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}
