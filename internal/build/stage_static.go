package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/page"
)

// ErrAssetsMissing marks a build whose asset directory does not exist.
var ErrAssetsMissing = errors.New("assets directory not found")

func (r *Runner) stageWriteRobots(_ context.Context, _ *State) error {
	return writeFileAtomic(filepath.Join(r.outputDir, "robots.txt"), []byte(page.RobotsTxt))
}

// stageCopyAssets mirrors the asset tree into {output}/assets. Any failure,
// including a missing source, is fatal.
func (r *Runner) stageCopyAssets(_ context.Context, st *State) error {
	info, err := os.Stat(r.assetsDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewFatalStageError(StageCopyAssets,
			ferrors.WrapError(ErrAssetsMissing, ferrors.CategoryFileSystem, "assets directory not found").
				WithContext("dir", r.assetsDir).Build())
	case err != nil:
		return NewFatalStageError(StageCopyAssets,
			ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat assets directory").WithContext("dir", r.assetsDir).Build())
	case !info.IsDir():
		return NewFatalStageError(StageCopyAssets,
			ferrors.FileSystemError("assets path is not a directory").WithContext("dir", r.assetsDir).Build())
	}

	dst := filepath.Join(r.outputDir, "assets")
	if err := CopyDir(r.assetsDir, dst); err != nil {
		return NewFatalStageError(StageCopyAssets,
			ferrors.WrapError(err, ferrors.CategoryFileSystem, "copy assets").
				WithContext("src", r.assetsDir).WithContext("dst", dst).Build())
	}
	st.Report.AssetsCopied = true
	st.Logger.Debug("Copied assets", logfields.Path(dst))
	return nil
}
