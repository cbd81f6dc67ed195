package post

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFrontmatter   = errors.New("front matter is missing")
	ErrMalformedFrontmatter = errors.New("front matter is malformed")
	ErrMissingTitle         = errors.New("front matter has no title")
	ErrMissingDate          = errors.New("front matter has no date")
	ErrInvalidDate          = errors.New("front matter date is not a recognized timestamp")
	ErrPermalinkCollision   = errors.New("permalink already used by another post")
)

// ParseError reports a post that could not be loaded. It only affects that post.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse post %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
