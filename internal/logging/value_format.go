package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// rawString renders v without quoting, for the header fields of a console
// line.
func rawString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		return anyString(v.Any())
	}
	return formatValue(v)
}

// formatValue renders v for a key=value pair. Durations are rounded to the
// millisecond; strings with spaces or separators are quoted.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		return quoteIfNeeded(anyString(v.Any()))
	}
	return quoteIfNeeded(v.String())
}

func anyString(value any) string {
	switch x := value.(type) {
	case error:
		return x.Error()
	case []string:
		return strings.Join(x, ",")
	}
	return fmt.Sprint(value)
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
