package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

func TestParse_EmptyDocument_AppliesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Site.PageSize)
	assert.Equal(t, "/:year-:month-:day/:title", cfg.Site.Permalink)
	assert.Equal(t, "2 Jan 2006", cfg.Site.DateFormat)
	assert.Equal(t, []string{"onedark"}, cfg.Highlight.Themes)
	assert.Equal(t, []string{"javascript"}, cfg.Highlight.Preload)
	assert.Equal(t, "dist", cfg.Output.Directory)
	assert.True(t, cfg.Output.MinifyEnabled())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Positive(t, cfg.Build.Workers)
}

func TestParse_FullDocument(t *testing.T) {
	doc := `
site:
  name: "zoubingwu's blog"
  domain: "https://zoubingwu.com"
  author: {twitter: zoubingwu, github: zoubingwu}
  copyright: {year: 2022, name: zoubingwu}
  timezone: Asia/Shanghai
  page_size: 5
highlight:
  themes: [github, github-dark]
  preload: []
output:
  minify: false
server:
  shutdown_timeout: 2s
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "zoubingwu's blog", cfg.Site.Name)
	assert.Equal(t, 5, cfg.Site.PageSize)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
	assert.Equal(t, 2022, cfg.Site.Copyright.Year)
	assert.Equal(t, []string{"github", "github-dark"}, cfg.Highlight.Themes)
	assert.Empty(t, cfg.Highlight.Preload)
	assert.False(t, cfg.Output.MinifyEnabled())
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
}

func TestParse_InvalidValues_ReturnConfigErrors(t *testing.T) {
	cases := map[string]string{
		"timezone":  "site: {timezone: Asia/Beijing}",
		"page size": "site: {page_size: -1}",
		"permalink": "site: {permalink: ':year/:title'}",
		"log level": "logging: {level: loud}",
		"unknown":   "sitee: {}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig), err.Error())
		})
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("POSTBUILDER_TEST_DOMAIN", "https://blog.test")
	path := filepath.Join(t.TempDir(), "postbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  domain: ${POSTBUILDER_TEST_DOMAIN}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://blog.test", cfg.Site.Domain)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInit_WritesLoadableConfigAndRespectsForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postbuilder.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "github-dark"}, cfg.Highlight.Themes)

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))
}

func TestLoggingConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LoggingConfig{Level: "WARNING"}.SlogLevel(false))
	assert.Equal(t, slog.LevelDebug, LoggingConfig{Level: "error"}.SlogLevel(true))
	assert.Equal(t, slog.LevelInfo, LoggingConfig{Level: "bogus"}.SlogLevel(false))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat(" JSON "))
}
