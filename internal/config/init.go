package config

import (
	"os"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

const exampleConfig = `# postbuilder configuration
site:
  name: "My Blog"
  domain: "https://example.com"
  author:
    twitter: ""
    github: ""
    email: ""
  copyright:
    year: 2026
    name: "My Blog"
  google_analytics: ""
  timezone: "UTC"
  permalink: "/:year-:month-:day/:title"
  page_size: 10
  date_format: "2 Jan 2006"

content:
  posts_dir: "_posts"
  assets_dir: "assets"
  # templates_dir: "templates"

highlight:
  themes: ["github", "github-dark"]
  preload: ["javascript", "go"]

output:
  directory: "dist"
  minify: true

build:
  workers: 4
  # metrics_file: "postbuilder.prom"

server:
  addr: ":8000"
  metrics: false
  shutdown_timeout: 5s

logging:
  level: "info"
  format: "text"
`

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration").
			WithContext("path", path).Build()
	}
	return nil
}
