package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/page"
	"git.home.luguber.info/inful/postbuilder/internal/version"
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeHTML(w, s.listings[0])
}

// handlePage serves /page/{n}. Anything that is not an existing page number
// redirects home.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 || n > len(s.listings) {
		redirectHome(w, r)
		return
	}
	writeHTML(w, s.listings[n-1])
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	s.servePost(w, r, cleanPath(r.URL.Path))
}

func (s *Server) handleArchive(w http.ResponseWriter, _ *http.Request) {
	writeHTML(w, s.archive)
}

func (s *Server) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(page.RobotsTxt))
}

type healthResponse struct {
	Status  string `json:"status"`
	Posts   int    `json:"posts"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Posts: s.catalog.Len(), Version: version.Version})
}

// handleFallback resolves permalinks that the date route does not cover
// (custom patterns) and redirects everything else home.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		redirectHome(w, r)
		return
	}
	s.servePost(w, r, cleanPath(r.URL.Path))
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request, link string) {
	p, ok := s.catalog.ByPermalink(link)
	if !ok {
		redirectHome(w, r)
		return
	}

	body, err := s.posts.Render(r.Context(), p)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryRender, "render post").
			WithContext("permalink", p.Permalink).Build())
		return
	}
	html, err := s.pages.Render(r.Context(), page.PostEnvelope(s.site, p, body))
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryRender, "render page").
			WithContext("permalink", p.Permalink).Build())
		return
	}
	s.logger.Debug("Served post", logfields.Permalink(p.Permalink), logfields.Path(p.Path))
	writeHTML(w, html)
}

func cleanPath(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func writeHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
