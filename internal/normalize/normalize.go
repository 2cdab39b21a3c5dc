// Package normalize converts loosely typed row values into the shapes used by
// domain.Paper. Every function is total: malformed input degrades to nil, an
// empty value or a single-element list and never returns an error.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Text converts a scalar to a trimmed string. nil becomes "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Bool interprets common truthy encodings (bool, "true", "t", "1", non-zero numbers).
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case int64:
		return t != 0
	case int32:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	default:
		return false
	}
}

// StringList converts a scalar-or-array value into a list of non-empty strings.
//
//   - nil, "" and empty arrays become nil
//   - a bare string becomes a one-element list
//   - a JSON array string ("[\"a\",\"b\"]") or a Postgres array literal
//     ("{a,b}") is decoded; when decoding fails the raw string is kept as the
//     single element
//   - []string and []any are copied, dropping nil and empty elements
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return compact(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s := elementText(el); s != "" {
				out = append(out, s)
			}
		}
		return nilIfEmpty(out)
	case string:
		return stringListFromText(t)
	case []byte:
		return stringListFromText(string(t))
	case map[string]any:
		// A JSON object is not a list; keep its encoded form as one element.
		return []string{elementText(t)}
	default:
		if s := Text(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

func stringListFromText(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		var decoded []any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return StringList(decoded)
		}
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && !strings.Contains(s, ":"):
		var arr pq.StringArray
		if err := arr.Scan(s); err == nil {
			return compact(arr)
		}
	}
	return []string{s}
}

func elementText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return Text(t)
	}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return nilIfEmpty(out)
}

func nilIfEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return in
}

// timestampLayouts are tried in order when a timestamp arrives as text.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp converts v to a UTC time. Missing or unparseable values yield now.
// Numbers are read as Unix seconds, or milliseconds when large enough.
func Timestamp(v any, now time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		if !t.IsZero() {
			return t.UTC()
		}
	case *time.Time:
		if t != nil && !t.IsZero() {
			return t.UTC()
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	case int64:
		return unixTime(float64(t), now)
	case int:
		return unixTime(float64(t), now)
	case float64:
		return unixTime(t, now)
	}
	return now.UTC()
}

func unixTime(n float64, now time.Time) time.Time {
	if n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return now.UTC()
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// Score converts a numeric or numeric-text value to a float. Anything else,
// including NaN, yields nil.
func Score(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
