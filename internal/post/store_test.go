package post

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

func writePost(t *testing.T, dir, name, title, date string) {
	t.Helper()
	content := fmt.Sprintf("---\ntitle: %s\ndate: %s\n---\nBody of %s\n", title, date, title)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestDiscover_OrdersByFilenameDescending(t *testing.T) {
	dir := t.TempDir()
	// Permalink dates intentionally disagree with filename order.
	writePost(t, dir, "2021-01-01-a.md", "A", "2024-01-01")
	writePost(t, dir, "2023-01-01-c.md", "C", "2020-01-01")
	writePost(t, dir, "2022-01-01-b.markdown", "B", "2022-01-01")

	store := NewStore(dir, &countingRenderer{}, WithLogger(quietLogger()), WithWorkers(2))
	cat, err := store.Discover(context.Background())
	require.NoError(t, err)

	var titles []string
	for _, p := range cat.Posts() {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"C", "B", "A"}, titles)
	assert.Empty(t, cat.Skipped())
}

func TestDiscover_NonRecursiveAndFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "2023-01-01-a.md", "A", "2023-01-01")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("nope"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".2023-02-01-hidden.md"), []byte("nope"), 0o600))
	sub := filepath.Join(dir, "drafts")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writePost(t, sub, "2023-03-01-draft.md", "Draft", "2023-03-01")

	cat, err := NewStore(dir, &countingRenderer{}, WithLogger(quietLogger())).Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
}

func TestDiscover_SkipsBrokenPostsAndKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "2023-01-01-good.md", "Good", "2023-01-01")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023-02-01-bad.md"), []byte("no front matter"), 0o600))

	cat, err := NewStore(dir, &countingRenderer{}, WithLogger(quietLogger())).Discover(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, cat.Len())
	require.Len(t, cat.Skipped(), 1)
	assert.ErrorIs(t, cat.Skipped()[0], ErrMissingFrontmatter)
	ce, isClassified := ferrors.AsClassified(cat.Skipped()[0])
	require.True(t, isClassified)
	assert.Equal(t, ferrors.CategoryParse, ce.Category())
	assert.Equal(t, ferrors.SeverityWarning, ce.Severity())
	assert.Equal(t, filepath.Join(dir, "2023-02-01-bad.md"), ce.Context()["path"])
	_, ok := cat.ByPath(filepath.Join(dir, "2023-01-01-good.md"))
	assert.True(t, ok)
}

func TestDiscover_PermalinkCollisionKeepsFirstInOrder(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "2023-05-01-hello-v1.md", "Hello World", "2023-05-01")
	writePost(t, dir, "2023-05-01-hello-v2.md", "Hello World", "2023-05-01")

	cat, err := NewStore(dir, &countingRenderer{}, WithLogger(quietLogger())).Discover(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, cat.Len())
	winner, ok := cat.ByPermalink("/2023-05-01/hello-world")
	require.True(t, ok)
	assert.Equal(t, "2023-05-01-hello-v2.md", winner.Filename())
	require.Len(t, cat.Skipped(), 1)
	assert.ErrorIs(t, cat.Skipped()[0], ErrPermalinkCollision)
	assert.True(t, ferrors.HasCategory(cat.Skipped()[0], ferrors.CategoryParse))
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "missing"), &countingRenderer{}).Discover(context.Background())
	require.Error(t, err)
}

func TestDiscover_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "2023-01-01-a.md", "A", "2023-01-01")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore(dir, &countingRenderer{}, WithLogger(quietLogger())).Discover(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCatalog_Summaries(t *testing.T) {
	cat := NewCatalog([]*Post{{
		Path:        "a.md",
		Title:       "Hello World",
		Date:        time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		Description: "desc",
		Permalink:   "/2023-05-01/hello-world",
	}})

	assert.Equal(t, []Summary{{
		Permalink:   "/2023-05-01/hello-world",
		Title:       "Hello World",
		Date:        "1 May 2023",
		Description: "desc",
	}}, cat.Summaries("2 Jan 2006"))
}
