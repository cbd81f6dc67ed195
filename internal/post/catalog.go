package post

import (
	"fmt"
	"slices"
)

// Catalog is the ordered, read-only result of discovery.
type Catalog struct {
	posts       []*Post
	byPath      map[string]*Post
	byPermalink map[string]*Post
	skipped     []error
}

// NewCatalog indexes posts in the given order. A post whose permalink is
// already taken by an earlier post is rejected with ErrPermalinkCollision
// and reported by Skipped.
func NewCatalog(posts []*Post) *Catalog {
	c := &Catalog{
		posts:       make([]*Post, 0, len(posts)),
		byPath:      make(map[string]*Post, len(posts)),
		byPermalink: make(map[string]*Post, len(posts)),
	}
	for _, p := range posts {
		if owner, taken := c.byPermalink[p.Permalink]; taken {
			c.skipped = append(c.skipped, &ParseError{
				Path: p.Path,
				Err:  fmt.Errorf("%w: %s is owned by %s", ErrPermalinkCollision, p.Permalink, owner.Path),
			})
			continue
		}
		c.posts = append(c.posts, p)
		c.byPath[p.Path] = p
		c.byPermalink[p.Permalink] = p
	}
	return c
}

// Posts returns the posts in listing order.
func (c *Catalog) Posts() []*Post { return slices.Clone(c.posts) }

// Len returns the number of accepted posts.
func (c *Catalog) Len() int { return len(c.posts) }

// ByPath looks a post up by source path.
func (c *Catalog) ByPath(path string) (*Post, bool) {
	p, ok := c.byPath[path]
	return p, ok
}

// ByPermalink looks a post up by permalink.
func (c *Catalog) ByPermalink(link string) (*Post, bool) {
	p, ok := c.byPermalink[link]
	return p, ok
}

// Summaries projects every post in listing order.
func (c *Catalog) Summaries(dateLayout string) []Summary {
	out := make([]Summary, len(c.posts))
	for i, p := range c.posts {
		out[i] = p.Summary(dateLayout)
	}
	return out
}

// Skipped returns the errors for posts that were not accepted.
func (c *Catalog) Skipped() []error { return slices.Clone(c.skipped) }
