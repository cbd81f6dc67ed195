package errors

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_ContextAndSeverity(t *testing.T) {
	err := NewError(CategoryParse, "missing title").
		WithContext("path", "_posts/a.md").
		Warning().
		Build()

	assert.Equal(t, CategoryParse, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	assert.Equal(t, "_posts/a.md", path)
	assert.Equal(t, "[parse:warning] missing title", err.Error())
}

func TestBuilder_BuildDoesNotShareContext(t *testing.T) {
	b := NewError(CategoryRender, "boom").WithContext("a", 1)
	first := b.Build()
	b.WithContext("b", 2)

	_, ok := first.Context().Get("b")
	assert.False(t, ok)
}

func TestAsClassified_FindsWrappedError(t *testing.T) {
	cause := stdErrors.New("disk full")
	ce := WrapError(cause, CategoryFileSystem, "write failed").Build()
	wrapped := fmt.Errorf("stage copy_assets: %w", ce)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, ce, got)
	assert.True(t, HasCategory(wrapped, CategoryFileSystem))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CategoryInternal, GetCategory(cause))
}

func TestWithContext_ReturnsCopy(t *testing.T) {
	base := ConfigError("bad timezone").Build()
	derived := base.WithContext("timezone", "Mars/Base")

	_, ok := base.Context().Get("timezone")
	assert.False(t, ok)
	tz, _ := derived.Context().GetString("timezone")
	assert.Equal(t, "Mars/Base", tz)
	assert.True(t, derived.IsFatal())
}

func TestHTTPAdapter_StatusCodes(t *testing.T) {
	a := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{stdErrors.New("plain"), http.StatusInternalServerError},
		{NewError(CategoryNotFound, "no post").Build(), http.StatusNotFound},
		{ValidationError("bad page").Build(), http.StatusBadRequest},
		{NewError(CategoryRender, "highlight").Build(), http.StatusInternalServerError},
		{NewError(CategoryRuntime, "closed").Build(), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, a.StatusCodeFor(tc.err))
	}
}

func TestHTTPAdapter_WriteErrorResponse(t *testing.T) {
	a := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	a.WriteErrorResponse(rec, req, InternalError("internal server error").WithContext("path", "/x").Build())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal server error","code":"internal","details":{"path":"/x"}}`, rec.Body.String())
}

func TestCLIAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 1, a.ExitCodeFor(stdErrors.New("x")))
	assert.Equal(t, 7, a.ExitCodeFor(ConfigError("c").Build()))
	assert.Equal(t, 2, a.ExitCodeFor(ValidationError("v").Build()))
	assert.Equal(t, 11, a.ExitCodeFor(FileSystemError("f").Build()))
}

func TestCLIAdapter_HandleError_PrintsAndExits(t *testing.T) {
	var out bytes.Buffer
	code := -1
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	a.out = &out
	a.exit = func(c int) { code = c }

	a.HandleError(ConfigError("page_size must be positive").Build())

	assert.Equal(t, 7, code)
	assert.Equal(t, "Error: page_size must be positive (use -v for details)\n", out.String())
}
