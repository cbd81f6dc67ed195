package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/page"
	"git.home.luguber.info/inful/postbuilder/internal/paginate"
	"git.home.luguber.info/inful/postbuilder/internal/post"
)

// stagePrepareOutput clears the output directory (best effort) and recreates it.
func (r *Runner) stagePrepareOutput(_ context.Context, st *State) error {
	clean := filepath.Clean(r.outputDir)
	if r.outputDir == "" || clean == "." || clean == string(filepath.Separator) {
		return NewFatalStageError(StagePrepareOutput,
			ferrors.ValidationError("refusing to use output directory").WithContext("dir", r.outputDir).Build())
	}
	if err := os.RemoveAll(clean); err != nil {
		st.Logger.Warn("Could not clear output directory", logfields.Path(clean), logfields.Error(err))
	}
	if err := os.MkdirAll(clean, 0o750); err != nil {
		return NewFatalStageError(StagePrepareOutput,
			ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").WithContext("dir", clean).Build())
	}
	return nil
}

// stageDiscoverPosts lists and parses the sources. Skipped posts make the
// stage a warning.
func (r *Runner) stageDiscoverPosts(ctx context.Context, st *State) error {
	catalog, err := r.posts.Discover(ctx)
	if err != nil {
		return err
	}
	st.catalog = catalog
	skipped := catalog.Skipped()
	st.Report.PostsDiscovered = catalog.Len()
	st.Report.PostsSkipped = len(skipped)
	if len(skipped) > 0 {
		return NewWarnStageError(StageDiscoverPosts, errors.Join(skipped...))
	}
	return nil
}

// stageRenderPosts renders and writes every post through the worker pool.
// A failing post is logged and left out of the listings.
func (r *Runner) stageRenderPosts(ctx context.Context, st *State) error {
	posts := st.catalog.Posts()
	failures := make([]error, len(posts))
	written := make([]bool, len(posts))

	err := runPool(ctx, r.workers, posts, func(ctx context.Context, worker string, i int, p *post.Post) {
		if err := r.writePost(ctx, p); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures[i] = fmt.Errorf("%s: %w", p.Path, err)
			st.Recorder.IncPostsSkipped("render")
			st.Logger.Warn("Skipping post",
				logfields.Worker(worker),
				logfields.Path(p.Path),
				logfields.Permalink(p.Permalink),
				logfields.Error(err))
			return
		}
		written[i] = true
	})
	if err != nil {
		return NewCanceledStageError(StageRenderPosts, err)
	}

	st.summaries = make([]post.Summary, 0, len(posts))
	var failed []error
	for i, p := range posts {
		if written[i] {
			st.summaries = append(st.summaries, p.Summary(r.site.DateFormat))
			continue
		}
		failed = append(failed, failures[i])
	}
	st.Report.PostsRendered = len(st.summaries)
	st.Report.PostsSkipped += len(failed)
	if len(failed) > 0 {
		return NewWarnStageError(StageRenderPosts, errors.Join(failed...))
	}
	return nil
}

func (r *Runner) writePost(ctx context.Context, p *post.Post) error {
	target, err := safeJoin(r.outputDir, p.Permalink)
	if err != nil {
		return err
	}
	body, err := r.posts.Render(ctx, p)
	if err != nil {
		return err
	}
	html, err := r.pages.Render(ctx, page.PostEnvelope(r.site, p, body))
	if err != nil {
		return err
	}
	return r.writePage(filepath.Join(target, "index.html"), html)
}

// stageRenderListings writes index.html and page{N}/index.html.
func (r *Runner) stageRenderListings(ctx context.Context, st *State) error {
	pages, err := paginate.Paginate(st.summaries, r.pageSize, paginate.BatchLinks(r.site.Domain))
	if err != nil {
		return NewFatalStageError(StageRenderListings, err)
	}
	for _, pg := range pages {
		html, err := r.pages.Render(ctx, page.ListEnvelope(r.site, pg))
		if err != nil {
			return err
		}
		rel := "index.html"
		if pg.Number > 1 {
			rel = filepath.Join(fmt.Sprintf("page%d", pg.Number), "index.html")
		}
		if err := r.writePage(filepath.Join(r.outputDir, rel), html); err != nil {
			return err
		}
		st.Logger.Debug("Wrote listing page", logfields.Page(pg.Number))
	}
	st.Report.Pages = len(pages)
	return nil
}

// stageRenderArchive writes archive/index.html.
func (r *Runner) stageRenderArchive(ctx context.Context, st *State) error {
	html, err := r.pages.Render(ctx, page.ArchiveEnvelope(r.site, st.summaries))
	if err != nil {
		return err
	}
	return r.writePage(filepath.Join(r.outputDir, "archive", "index.html"), html)
}

func (r *Runner) writePage(path, html string) error {
	if r.minify {
		minified, err := page.Minify(html)
		if err != nil {
			return fmt.Errorf("minify %s: %w", path, err)
		}
		html = minified
	}
	return writeFileAtomic(path, []byte(html))
}
