// Package post discovers blog posts on disk and memoizes their rendered bodies.
package post

import (
	"path/filepath"
	"time"
)

// Post is a single parsed source document. Its identity is Path.
type Post struct {
	Path        string
	Title       string
	Date        time.Time
	Tags        []string
	Description string
	Body        []byte
	Permalink   string
}

// Summary is the listing projection of a Post.
type Summary struct {
	Permalink   string
	Title       string
	Date        string
	Description string
}

// Filename returns the base name of the source file.
func (p *Post) Filename() string {
	return filepath.Base(p.Path)
}

// Summary projects the post for listings, formatting the date with layout.
func (p *Post) Summary(layout string) Summary {
	return Summary{
		Permalink:   p.Permalink,
		Title:       p.Title,
		Date:        p.Date.Format(layout),
		Description: p.Description,
	}
}
