package page

import (
	"html/template"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/paginate"
	"git.home.luguber.info/inful/postbuilder/internal/post"
)

// Site is the per-site data every layout sees.
type Site struct {
	Name            string
	Domain          string
	Author          config.AuthorConfig
	Copyright       config.CopyrightConfig
	GoogleAnalytics string
	DateFormat      string
}

// SiteFromConfig projects the site section of cfg.
func SiteFromConfig(cfg *config.Config) Site {
	return Site{
		Name:            cfg.Site.Name,
		Domain:          cfg.Site.Domain,
		Author:          cfg.Site.Author,
		Copyright:       cfg.Site.Copyright,
		GoogleAnalytics: cfg.Site.GoogleAnalytics,
		DateFormat:      cfg.Site.DateFormat,
	}
}

func (s Site) dateFormat() string {
	if s.DateFormat == "" {
		return "2 Jan 2006"
	}
	return s.DateFormat
}

// SEO drives the head metadata of the layout.
type SEO struct {
	Title       string
	Description string
	URL         string
	Next        string
	IsArticle   bool
	PublishTime string
}

// Layout is the envelope wrapped around a rendered page body.
type Layout struct {
	Site Site
	SEO  SEO
}

type layoutData struct {
	Layout
	Content template.HTML
}

// Envelope pairs a page template with its data and layout.
type Envelope struct {
	Name   Name
	Data   any
	Layout Layout
}

// PostData is the data of the post template.
type PostData struct {
	Title    string
	Date     string
	DateTime string
	Tags     []string
	Content  template.HTML
}

// ListData is the data of the list template.
type ListData struct {
	Page paginate.Page[post.Summary]
}

// ArchiveData is the data of the archive template.
type ArchiveData struct {
	Posts []post.Summary
}

// PostEnvelope builds the envelope for a single post. body is trusted HTML
// produced by the markdown renderer.
func PostEnvelope(site Site, p *post.Post, body string) Envelope {
	return Envelope{
		Name: NamePost,
		Data: PostData{
			Title:    p.Title,
			Date:     p.Date.Format(site.dateFormat()),
			DateTime: p.Date.Format(time.RFC3339),
			Tags:     p.Tags,
			// #nosec G203 - body is rendered from local markdown sources
			Content: template.HTML(body),
		},
		Layout: Layout{
			Site: site,
			SEO: SEO{
				Title:       p.Title + " | " + site.Domain,
				Description: p.Description,
				URL:         site.Domain + p.Permalink,
				IsArticle:   true,
				PublishTime: p.Date.Format(time.RFC3339),
			},
		},
	}
}

// ListEnvelope builds the envelope for one listing page.
func ListEnvelope(site Site, pg paginate.Page[post.Summary]) Envelope {
	return Envelope{
		Name: NameList,
		Data: ListData{Page: pg},
		Layout: Layout{
			Site: site,
			SEO: SEO{
				Title:       site.Name,
				Description: site.Name,
				URL:         site.Domain,
				Next:        pg.NextPath(),
			},
		},
	}
}

// ArchiveEnvelope builds the envelope for the archive index.
func ArchiveEnvelope(site Site, summaries []post.Summary) Envelope {
	return Envelope{
		Name: NameArchive,
		Data: ArchiveData{Posts: summaries},
		Layout: Layout{
			Site: site,
			SEO: SEO{
				Title:       site.Name,
				Description: site.Name,
				URL:         site.Domain + "/archive",
			},
		},
	}
}
