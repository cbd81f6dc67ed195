// Package frontmatter splits and decodes the YAML block leading a markdown document.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoFrontmatter means the document does not open with a --- line.
	ErrNoFrontmatter = errors.New("document has no yaml front matter")
	// ErrMissingClosingDelimiter means the opening --- line was never closed.
	ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")
)

const delimiter = "---"

var bom = []byte{0xEF, 0xBB, 0xBF}

// Split separates the front matter block from the body. Both LF and CRLF line
// endings are accepted and a leading byte order mark is ignored. The closing
// delimiter may be the last line of the file.
func Split(content []byte) (fm []byte, body []byte, err error) {
	content = bytes.TrimPrefix(content, bom)

	line, rest, ok := nextLine(content)
	if !ok || !isDelimiter(line) {
		return nil, content, ErrNoFrontmatter
	}

	start := len(content) - len(rest)
	for pos := start; pos < len(content); {
		line, after, _ := nextLine(content[pos:])
		if isDelimiter(line) {
			return content[start:pos], after, nil
		}
		pos = len(content) - len(after)
	}
	return nil, nil, ErrMissingClosingDelimiter
}

// Decode parses raw YAML front matter into v. Empty input leaves v untouched.
func Decode(fm []byte, v any) error {
	if len(bytes.TrimSpace(fm)) == 0 {
		return nil
	}
	return yaml.Unmarshal(fm, v)
}

// nextLine returns the first line without its terminator and the remainder
// after the terminator. ok is false for empty input.
func nextLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, b[len(b):], true
	}
	return b[:i], b[i+1:], true
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == delimiter
}
