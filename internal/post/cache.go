package post

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/postbuilder/internal/metrics"
)

// BodyRenderer converts a markdown body to HTML.
type BodyRenderer interface {
	Render(ctx context.Context, body []byte) (string, error)
}

// RenderCache memoizes rendered bodies by source path for the process lifetime.
// Concurrent first requests for the same post share one render.
type RenderCache struct {
	renderer BodyRenderer
	recorder metrics.Recorder

	flights  singleflight.Group
	mu       sync.RWMutex
	rendered map[string]string
}

// NewRenderCache wraps renderer.
func NewRenderCache(renderer BodyRenderer) *RenderCache {
	return &RenderCache{
		renderer: renderer,
		recorder: metrics.NoopRecorder{},
		rendered: make(map[string]string),
	}
}

// SetRecorder injects a metrics recorder.
func (c *RenderCache) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	c.recorder = r
}

// Get returns the rendered body of p, rendering it on first use. Failed renders
// are not cached. The shared render ignores cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (c *RenderCache) Get(ctx context.Context, p *Post) (string, error) {
	if html, ok := c.lookup(p.Path); ok {
		c.recorder.IncRenderCache(true)
		return html, nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("render %s: %w", p.Path, err)
	}

	renderCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(p.Path, func() (any, error) {
		// A flight that finished between lookup and DoChan already stored the result.
		if html, ok := c.lookup(p.Path); ok {
			return html, nil
		}
		c.recorder.IncRenderCache(false)

		start := time.Now()
		html, err := c.renderer.Render(renderCtx, p.Body)
		c.recorder.ObserveRenderDuration(time.Since(start), err == nil)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.rendered[p.Path] = html
		c.mu.Unlock()
		return html, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("render %s: %w", p.Path, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("render %s: %w", p.Path, res.Err)
		}
		return res.Val.(string), nil
	}
}

// Len returns the number of cached bodies.
func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rendered)
}

func (c *RenderCache) lookup(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	html, ok := c.rendered[path]
	return html, ok
}
