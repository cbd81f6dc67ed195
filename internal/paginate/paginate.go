// Package paginate splits ordered listings into fixed-size pages.
package paginate

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/postbuilder/internal/foundation"
)

// ErrInvalidPageSize is returned for page sizes below 1.
var ErrInvalidPageSize = errors.New("page size must be at least 1")

// Links builds adjacent-page URLs. Root is the first page, Page(n) the n-th
// (1-based, n >= 2).
type Links struct {
	Root string
	Page func(n int) string
}

// BatchLinks produces {base}/ and {base}/page{N}, matching the static output tree.
func BatchLinks(base string) Links {
	return Links{
		Root: base + "/",
		Page: func(n int) string { return fmt.Sprintf("%s/page%d", base, n) },
	}
}

// ServerLinks produces {base}/ and {base}/page/{N}, matching the server routes.
func ServerLinks(base string) Links {
	return Links{
		Root: base + "/",
		Page: func(n int) string { return fmt.Sprintf("%s/page/%d", base, n) },
	}
}

// Page is one listing page.
type Page[T any] struct {
	Number   int
	Total    int
	Items    []T
	Previous foundation.Option[string]
	Next     foundation.Option[string]
}

// HasPrevious reports whether a previous page exists.
func (p Page[T]) HasPrevious() bool { return p.Previous.IsSome() }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.Next.IsSome() }

// PreviousPath returns the previous link or "".
func (p Page[T]) PreviousPath() string { return p.Previous.UnwrapOr("") }

// NextPath returns the next link or "".
func (p Page[T]) NextPath() string { return p.Next.UnwrapOr("") }

// IsEmpty reports whether the page has no items.
func (p Page[T]) IsEmpty() bool { return len(p.Items) == 0 }

// Paginate splits items into consecutive chunks of size. An empty input
// yields one empty page.
//
// For page index i of n: previous is absent for i == 0, Root for i == 1 and
// Page(i) otherwise. Next is Page(i+2) while i < n-1.
func Paginate[T any](items []T, size int, links Links) ([]Page[T], error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}

	n := (len(items) + size - 1) / size
	if n == 0 {
		n = 1
	}

	pages := make([]Page[T], n)
	for i := range pages {
		lo := min(i*size, len(items))
		hi := min(lo+size, len(items))
		p := Page[T]{
			Number: i + 1,
			Total:  n,
			Items:  items[lo:hi:hi],
		}
		switch {
		case i == 1:
			p.Previous = foundation.Some(links.Root)
		case i > 1:
			p.Previous = foundation.Some(links.Page(i))
		}
		if i < n-1 {
			p.Next = foundation.Some(links.Page(i + 2))
		}
		pages[i] = p
	}
	return pages, nil
}
