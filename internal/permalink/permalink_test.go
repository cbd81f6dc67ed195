package permalink

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_DefaultPattern(t *testing.T) {
	date := time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC)

	first := Resolve(date, "Hello World")
	second := Resolve(date, "Hello World")

	assert.Equal(t, "/2023-05-01/hello-world", first)
	assert.Equal(t, first, second)
}

func TestResolve_UsesDateLocation(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	utc := time.Date(2023, 4, 30, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "/2023-04-30/x", Resolve(utc, "x"))
	assert.Equal(t, "/2023-05-01/x", Resolve(utc.In(shanghai), "x"))
}

func TestSlug_KeepsPunctuation(t *testing.T) {
	cases := map[string]string{
		"Hello World":          "hello-world",
		"Go: Generics 101?":    "go:-generics-101?",
		"  two  spaces":        "--two--spaces",
		"ÜBER Straße":          "über-straße",
		"already-hyphenated":   "already-hyphenated",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestNew_CustomPatternTrimsTrailingSlash(t *testing.T) {
	r, err := New("/:year/:month/:day/:title/")
	require.NoError(t, err)

	got := r.Resolve(time.Date(2021, 12, 3, 0, 0, 0, 0, time.UTC), "Year End")
	assert.Equal(t, "/2021/12/03/year-end", got)
	assert.Equal(t, "/:year/:month/:day/:title/", r.Pattern())
}

func TestNew_RejectsInvalidPatterns(t *testing.T) {
	_, err := New(":year/:title")
	assert.ErrorIs(t, err, ErrPatternPrefix)

	_, err = New("/:year-:month-:day/")
	assert.ErrorIs(t, err, ErrPatternNoTitle)
}
