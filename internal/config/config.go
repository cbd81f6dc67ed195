package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"runtime"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/permalink"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "postbuilder.yaml"

// Config is the full application configuration. It is read-only after Load.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Content   ContentConfig   `yaml:"content"`
	Highlight HighlightConfig `yaml:"highlight"`
	Output    OutputConfig    `yaml:"output"`
	Build     BuildConfig     `yaml:"build"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`

	location *time.Location
}

// SiteConfig describes the blog itself.
type SiteConfig struct {
	Name            string          `yaml:"name"`
	Domain          string          `yaml:"domain"`
	Author          AuthorConfig    `yaml:"author"`
	Copyright       CopyrightConfig `yaml:"copyright"`
	GoogleAnalytics string          `yaml:"google_analytics,omitempty"`
	Timezone        string          `yaml:"timezone"`
	Permalink       string          `yaml:"permalink"`
	PageSize        int             `yaml:"page_size"`
	DateFormat      string          `yaml:"date_format"`
}

// AuthorConfig holds contact handles rendered in the footer.
type AuthorConfig struct {
	Twitter string `yaml:"twitter,omitempty"`
	GitHub  string `yaml:"github,omitempty"`
	Email   string `yaml:"email,omitempty"`
}

// CopyrightConfig is rendered as "©{year} {name}. All rights reserved.".
type CopyrightConfig struct {
	Year int    `yaml:"year"`
	Name string `yaml:"name"`
}

// ContentConfig points at the input trees.
type ContentConfig struct {
	PostsDir     string `yaml:"posts_dir"`
	AssetsDir    string `yaml:"assets_dir"`
	TemplatesDir string `yaml:"templates_dir,omitempty"`
}

// HighlightConfig selects code highlighting themes and grammars to preload.
type HighlightConfig struct {
	Themes  []string `yaml:"themes"`
	Preload []string `yaml:"preload"`
}

// OutputConfig controls batch output.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Minify    *bool  `yaml:"minify,omitempty"`
}

// BuildConfig tunes batch concurrency and metrics export.
type BuildConfig struct {
	Workers     int    `yaml:"workers"`
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// ServerConfig controls the on-demand server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Metrics         bool          `yaml:"metrics"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MinifyEnabled reports whether batch output is minified (default true).
func (o OutputConfig) MinifyEnabled() bool {
	return o.Minify == nil || *o.Minify
}

// Location returns the site timezone. It is UTC until Load or Validate resolved it.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Load reads, expands, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration").
			WithContext("path", path).Fatal().Build()
	}
	return Parse(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
}

// Parse decodes YAML configuration from r, applies defaults and validates.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "decode configuration").Fatal().Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Name == "" {
		c.Site.Name = "My Blog"
	}
	if c.Site.Timezone == "" {
		c.Site.Timezone = "UTC"
	}
	if c.Site.Permalink == "" {
		c.Site.Permalink = permalink.DefaultPattern
	}
	if c.Site.PageSize == 0 {
		c.Site.PageSize = 10
	}
	if c.Site.DateFormat == "" {
		c.Site.DateFormat = "2 Jan 2006"
	}
	if c.Site.Copyright.Name == "" {
		c.Site.Copyright.Name = c.Site.Name
	}
	if c.Site.Copyright.Year == 0 {
		c.Site.Copyright.Year = time.Now().Year()
	}
	if c.Content.PostsDir == "" {
		c.Content.PostsDir = "_posts"
	}
	if c.Content.AssetsDir == "" {
		c.Content.AssetsDir = "assets"
	}
	if len(c.Highlight.Themes) == 0 {
		c.Highlight.Themes = []string{"onedark"}
	}
	if c.Highlight.Preload == nil {
		c.Highlight.Preload = []string{"javascript"}
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "dist"
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = runtime.NumCPU()
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = string(LogFormatText)
	}
}

// Validate checks the configuration and resolves the timezone.
func (c *Config) Validate() error {
	if c.Site.PageSize < 1 {
		return ferrors.ConfigError("site.page_size must be at least 1").
			WithContext("page_size", c.Site.PageSize).Build()
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "site.timezone is not a valid IANA zone").
			WithContext("timezone", c.Site.Timezone).Fatal().Build()
	}
	c.location = loc
	if _, err := permalink.New(c.Site.Permalink); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "site.permalink is invalid").
			WithContext("permalink", c.Site.Permalink).Fatal().Build()
	}
	for _, theme := range c.Highlight.Themes {
		if theme == "" {
			return ferrors.ConfigError("highlight.themes contains an empty entry").Build()
		}
	}
	if _, err := logLevelNormalizer.NormalizeWithError(c.Logging.Level); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "logging.level is invalid").Fatal().Build()
	}
	if _, err := logFormatNormalizer.NormalizeWithError(c.Logging.Format); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "logging.format is invalid").Fatal().Build()
	}
	return nil
}
