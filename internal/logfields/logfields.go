package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyScope      = "scope"
	KeyPageType   = "page_type"
	KeySlug       = "slug"
	KeyPass       = "pass"
	KeyImport     = "import"
	KeyCount      = "count"
	KeyOutput     = "output"
	KeyStatus     = "status"
	KeyEvent      = "event"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Scope(p string) slog.Attr         { return slog.String(KeyScope, p) }
func PageType(t string) slog.Attr      { return slog.String(KeyPageType, t) }
func Slug(s string) slog.Attr          { return slog.String(KeySlug, s) }
func Pass(name string) slog.Attr       { return slog.String(KeyPass, name) }
func Import(from string) slog.Attr     { return slog.String(KeyImport, from) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Output(p string) slog.Attr        { return slog.String(KeyOutput, p) }
func Status(s string) slog.Attr        { return slog.String(KeyStatus, s) }
func Event(name string) slog.Attr      { return slog.String(KeyEvent, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
