// Package permalink computes canonical post URLs from a publish date and title.
package permalink

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultPattern renders /{YYYY-MM-DD}/{slug}.
const DefaultPattern = "/:year-:month-:day/:title"

var (
	ErrPatternPrefix  = errors.New("permalink pattern must start with /")
	ErrPatternNoTitle = errors.New("permalink pattern must contain :title")
)

var lower = cases.Lower(language.Und)

// Resolver expands a permalink pattern. The zero value is not usable; use New.
type Resolver struct {
	pattern string
}

var defaultResolver = &Resolver{pattern: DefaultPattern}

// Default returns the resolver for DefaultPattern.
func Default() *Resolver { return defaultResolver }

// New validates pattern. Supported tokens are :year, :month, :day and :title.
func New(pattern string) (*Resolver, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q", ErrPatternPrefix, pattern)
	}
	if !strings.Contains(pattern, ":title") {
		return nil, fmt.Errorf("%w: %q", ErrPatternNoTitle, pattern)
	}
	return &Resolver{pattern: pattern}, nil
}

// Pattern returns the configured pattern.
func (r *Resolver) Pattern() string { return r.pattern }

// Resolve returns the URL path for a post. The date is formatted in its own location.
// Trailing slashes are trimmed so the result can be used as a lookup key.
func (r *Resolver) Resolve(date time.Time, title string) string {
	out := strings.NewReplacer(
		":year", date.Format("2006"),
		":month", date.Format("01"),
		":day", date.Format("02"),
		":title", Slug(title),
	).Replace(r.pattern)
	if len(out) > 1 {
		out = strings.TrimRight(out, "/")
	}
	return out
}

// Resolve expands DefaultPattern.
func Resolve(date time.Time, title string) string {
	return defaultResolver.Resolve(date, title)
}

// Slug lowercases title and replaces every space with a hyphen. Other
// punctuation is kept as is.
func Slug(title string) string {
	return strings.ReplaceAll(lower.String(title), " ", "-")
}
