package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/page"
	"git.home.luguber.info/inful/postbuilder/internal/permalink"
	"git.home.luguber.info/inful/postbuilder/internal/post"
)

type slowBody struct {
	calls atomic.Int32
	delay time.Duration
}

func (b *slowBody) Render(_ context.Context, body []byte) (string, error) {
	b.calls.Add(1)
	time.Sleep(b.delay)
	if bytes.Contains(body, []byte("BOOM")) {
		return "", errors.New("renderer exploded")
	}
	return "<p>" + strings.TrimSpace(string(body)) + "</p>", nil
}

type harness struct {
	dir    string
	posts  string
	assets string
	body   *slowBody
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:    dir,
		posts:  filepath.Join(dir, "_posts"),
		assets: filepath.Join(dir, "assets"),
		body:   &slowBody{},
	}
	require.NoError(t, os.MkdirAll(h.posts, 0o750))
	require.NoError(t, os.MkdirAll(h.assets, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(h.assets, "style.css"), []byte("body{}"), 0o600))
	return h
}

func (h *harness) addPost(t *testing.T, day int, title, body string) {
	t.Helper()
	name := fmt.Sprintf("2023-05-%02d-%s.md", day, strings.ReplaceAll(strings.ToLower(title), " ", "-"))
	content := fmt.Sprintf("---\ntitle: %s\ndate: 2023-05-%02d\n---\n%s\n", title, day, body)
	require.NoError(t, os.WriteFile(filepath.Join(h.posts, name), []byte(content), 0o600))
}

func (h *harness) server(t *testing.T, extraYAML string, opts ...Option) *Server {
	t.Helper()
	yml := fmt.Sprintf(`site:
  name: Test Blog
  domain: https://example.com
  page_size: 2
%scontent:
  posts_dir: %q
  assets_dir: %q
`, extraYAML, h.posts, h.assets)
	cfg, err := config.Parse(strings.NewReader(yml))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver, err := permalink.New(cfg.Site.Permalink)
	require.NoError(t, err)
	store := post.NewStore(h.posts, h.body, post.WithLogger(logger), post.WithResolver(resolver))
	pages, err := page.NewRenderer(page.WithLogger(logger))
	require.NoError(t, err)

	opts = append([]Option{WithLogger(logger)}, opts...)
	s, err := New(context.Background(), cfg, store, pages, opts...)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_IndexAndPagination(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "One", "a")
	h.addPost(t, 2, "Two", "b")
	h.addPost(t, 3, "Three", "c")
	s := h.server(t, "")

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `href="/2023-05-03/three"`)
	assert.Contains(t, rec.Body.String(), `href="/2023-05-02/two"`)
	assert.NotContains(t, rec.Body.String(), `href="/2023-05-01/one"`)
	assert.Contains(t, rec.Body.String(), `<a class="next" href="/page/2">`)

	rec = get(t, s.Handler(), "/page/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/2023-05-01/one"`)
	assert.Contains(t, rec.Body.String(), `<a class="previous" href="/">`)

	rec = get(t, s.Handler(), "/page/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/2023-05-03/three"`)

	assert.Zero(t, h.body.calls.Load(), "listings must not render bodies")
}

func TestServer_InvalidPageRedirectsHome(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "One", "a")
	s := h.server(t, "")

	for _, path := range []string{"/page/0", "/page/-1", "/page/abc", "/page/99"} {
		rec := get(t, s.Handler(), path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
	}
}

func TestServer_EmptyBlog(t *testing.T) {
	h := newHarness(t)
	s := h.server(t, "")

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No post found")
	assert.Contains(t, get(t, s.Handler(), "/archive").Body.String(), "No post found")
}

func TestServer_Post(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "Hello World", "hi there")
	s := h.server(t, "")

	rec := get(t, s.Handler(), "/2023-05-01/hello-world")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>hi there</p>")
	assert.Contains(t, rec.Body.String(), "<h1>Hello World</h1>")

	rec = get(t, s.Handler(), "/2023-05-01/hello-world/")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s.Handler(), "/2023-05-01/missing")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = get(t, s.Handler(), "/nowhere/at/all")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestServer_ConcurrentFirstAccessRendersOnce(t *testing.T) {
	h := newHarness(t)
	h.body.delay = 30 * time.Millisecond
	h.addPost(t, 1, "Hot", "popular")
	s := h.server(t, "")

	const n = 32
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/2023-05-01/hot", nil))
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	assert.Equal(t, int32(1), h.body.calls.Load())

	get(t, s.Handler(), "/2023-05-01/hot")
	assert.Equal(t, int32(1), h.body.calls.Load())
}

func TestServer_RenderFailureIsServerError(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "Broken", "BOOM")
	s := h.server(t, "")

	rec := get(t, s.Handler(), "/2023-05-01/broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "render", body["code"])
}

func TestServer_CustomPermalinkPatternUsesFallback(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "Custom Route", "x")
	s := h.server(t, "  permalink: /posts/:year/:title\n")

	rec := get(t, s.Handler(), "/posts/2023/custom-route")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>x</p>")
}

func TestServer_StaticRoutes(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "One", "a")
	s := h.server(t, "")

	rec := get(t, s.Handler(), "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User-agent: *\nAllow: /", rec.Body.String())

	rec = get(t, s.Handler(), "/assets/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())

	rec = get(t, s.Handler(), "/archive/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<a href="/2023-05-01/one">One</a> | 1 May 2023`)

	rec = get(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Posts)
}

func TestServer_MetricsOnlyWhenEnabled(t *testing.T) {
	h := newHarness(t)
	s := h.server(t, "")
	assert.Equal(t, http.StatusFound, get(t, s.Handler(), "/metrics").Code)

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	s = h.server(t, "", WithMetricsHandler(metricsHandler))
	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	h := newHarness(t)
	h.addPost(t, 1, "One", "a")
	s := h.server(t, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/robots.txt")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
