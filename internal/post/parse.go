package post

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/permalink"
)

// dateLayouts are tried in order for front matter dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type metadata struct {
	Title       string  `yaml:"title"`
	Date        rawDate `yaml:"date"`
	Tags        tagList `yaml:"tags"`
	Description string  `yaml:"description"`
}

// rawDate keeps the scalar text so it can be parsed in the site timezone.
type rawDate string

func (d *rawDate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("date must be a scalar, got %v", node.Tag)
	}
	*d = rawDate(strings.TrimSpace(node.Value))
	return nil
}

// tagList accepts either a sequence or a single scalar.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if v := strings.TrimSpace(node.Value); v != "" && node.Tag != "!!null" {
			*t = tagList{v}
		}
		return nil
	case yaml.SequenceNode:
		var tags []string
		if err := node.Decode(&tags); err != nil {
			return err
		}
		*t = tags
		return nil
	default:
		return fmt.Errorf("tags must be a list of strings")
	}
}

// Parse builds a Post from a source file's content. Dates without an explicit
// offset are interpreted in loc. Failures are returned as *ParseError.
func Parse(path string, content []byte, loc *time.Location, resolver *permalink.Resolver) (*Post, error) {
	fail := func(err error) (*Post, error) { return nil, &ParseError{Path: path, Err: err} }

	fm, body, err := frontmatter.Split(content)
	switch {
	case errors.Is(err, frontmatter.ErrNoFrontmatter):
		return fail(ErrMissingFrontmatter)
	case err != nil:
		return fail(fmt.Errorf("%w: %w", ErrMalformedFrontmatter, err))
	}

	var meta metadata
	if err := frontmatter.Decode(fm, &meta); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrMalformedFrontmatter, err))
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		return fail(ErrMissingTitle)
	}
	if meta.Date == "" {
		return fail(ErrMissingDate)
	}
	date, err := parseDate(string(meta.Date), loc)
	if err != nil {
		return fail(err)
	}

	tags := []string(meta.Tags)
	if tags == nil {
		tags = []string{}
	}

	return &Post{
		Path:        path,
		Title:       title,
		Date:        date,
		Tags:        tags,
		Description: strings.TrimSpace(meta.Description),
		Body:        body,
		Permalink:   resolver.Resolve(date, title),
	}, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}
