// Package logfields defines canonical structured log keys.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyPermalink  = "permalink"
	KeyTitle      = "title"
	KeyLanguage   = "language"
	KeyTheme      = "theme"
	KeySnippet    = "snippet"
	KeyPage       = "page"
	KeyCount      = "count"
	KeyWorker     = "worker"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRequestID  = "request_id"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Permalink(p string) slog.Attr     { return slog.String(KeyPermalink, p) }
func Title(t string) slog.Attr         { return slog.String(KeyTitle, t) }
func Language(l string) slog.Attr      { return slog.String(KeyLanguage, l) }
func Theme(t string) slog.Attr         { return slog.String(KeyTheme, t) }
func Page(n int) slog.Attr             { return slog.Int(KeyPage, n) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Worker(w string) slog.Attr        { return slog.String(KeyWorker, w) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func RemoteAddr(a string) slog.Attr    { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

// Snippet truncates code to a loggable prefix.
func Snippet(code string) slog.Attr {
	const maxLen = 120
	if len(code) > maxLen {
		code = code[:maxLen] + "…"
	}
	return slog.String(KeySnippet, code)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
