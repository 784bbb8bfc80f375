package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyKind       = "kind"
	KeyKey        = "key"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyFormat     = "format"
	KeyWidth      = "width"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyOutput     = "output"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Kind(k string) slog.Attr   { return slog.String(KeyKind, k) }
func Key(k string) slog.Attr    { return slog.String(KeyKey, k) }
func Path(p string) slog.Attr   { return slog.String(KeyPath, p) }
func File(f string) slog.Attr   { return slog.String(KeyFile, f) }
func Format(f string) slog.Attr { return slog.String(KeyFormat, f) }
func Width(w int) slog.Attr     { return slog.Int(KeyWidth, w) }
func Count(n int) slog.Attr     { return slog.Int(KeyCount, n) }
func Output(o string) slog.Attr { return slog.String(KeyOutput, o) }

func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Nanoseconds())/1e6)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
