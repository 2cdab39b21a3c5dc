package normalize

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/helixir/scienceswipe/internal/domain"
)

// shape is the detected form of a raw ai_key_takeaways value.
type shape int

const (
	shapeNull shape = iota
	shapeText
	shapeJSONText
	shapeList
	shapeObject
	shapeOther
)

func detectShape(v any) shape {
	switch t := v.(type) {
	case nil:
		return shapeNull
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return shapeNull
		}
		if looksLikeJSON(s) {
			return shapeJSONText
		}
		return shapeText
	case []byte:
		return detectShape(string(t))
	case []any, []string:
		return shapeList
	case map[string]any:
		return shapeObject
	default:
		return shapeOther
	}
}

func looksLikeJSON(s string) bool {
	return (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"))
}

// Takeaways parses the heterogeneous ai_key_takeaways payload into an ordered
// list of tagged takeaways. Recognized shapes:
//
//   - plain text, one takeaway per non-empty line (leading bullets removed)
//   - JSON text, decoded and parsed again; undecodable JSON is kept as text
//   - a list of strings and/or objects
//   - an object mapping takeaway names to text or to nested name/text objects
//
// A "why it matters" entry, whether a key or a "Why it matters:" prefix, is
// tagged domain.TakeawayWhyItMatters. The result is nil when nothing usable
// remains.
//
// Lists keep their order. Object keys carry no order once stored in a jsonb
// column, so object entries and nested insights are emitted sorted by key,
// with the "why it matters" entry last.
func Takeaways(v any) []domain.Takeaway {
	var out []domain.Takeaway
	switch detectShape(v) {
	case shapeNull:
		return nil
	case shapeText:
		out = fromText(Text(v))
	case shapeJSONText:
		var decoded any
		if err := json.Unmarshal([]byte(Text(v)), &decoded); err != nil {
			out = []domain.Takeaway{textTakeaway(Text(v))}
		} else {
			out = Takeaways(decoded)
		}
	case shapeList:
		out = fromList(v)
	case shapeObject:
		out = fromObject(v.(map[string]any))
	default:
		if s := Text(v); s != "" {
			out = []domain.Takeaway{textTakeaway(s)}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fromText(s string) []domain.Takeaway {
	var out []domain.Takeaway
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, textTakeaway(line))
		}
	}
	return out
}

func fromList(v any) []domain.Takeaway {
	var items []any
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []any:
		items = t
	}

	var out []domain.Takeaway
	for _, item := range items {
		switch el := item.(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(el); s != "" {
				out = append(out, textTakeaway(s))
			}
		case map[string]any:
			if t, ok := fromListObject(el); ok {
				out = append(out, t)
			}
		default:
			if s := elementText(el); s != "" {
				out = append(out, textTakeaway(s))
			}
		}
	}
	return out
}

// fromListObject handles one object inside a takeaway list. It accepts
// {title, text}, {title, insights: {...}} and bare name/text maps.
func fromListObject(obj map[string]any) (domain.Takeaway, bool) {
	title := firstString(obj, "title", "heading", "name")
	text := firstString(obj, "text", "content", "description", "summary")

	if nested, ok := firstObject(obj, "insights", "points", "details"); ok {
		t := domain.Takeaway{Kind: domain.TakeawayStructured, Title: title, Text: text, Insights: insights(nested)}
		return t, title != "" || text != "" || len(t.Insights) > 0
	}

	if title != "" || text != "" {
		if isWhyItMatters(title) {
			return domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: text}, text != ""
		}
		if title == "" {
			return textTakeaway(text), true
		}
		return domain.Takeaway{Kind: domain.TakeawayText, Title: title, Text: text}, true
	}

	ins := insights(obj)
	if len(ins) == 0 {
		return domain.Takeaway{}, false
	}
	if len(ins) == 1 && isWhyItMatters(ins[0].Name) {
		return domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: ins[0].Text}, true
	}
	return domain.Takeaway{Kind: domain.TakeawayStructured, Insights: ins}, true
}

// fromObject handles a top-level object. Keys are emitted in sorted order with
// the "why it matters" entry last.
func fromObject(obj map[string]any) []domain.Takeaway {
	var (
		out []domain.Takeaway
		why *domain.Takeaway
	)
	for _, key := range sortedKeys(obj) {
		switch val := obj[key].(type) {
		case string:
			text := strings.TrimSpace(val)
			if text == "" {
				continue
			}
			if isWhyItMatters(key) {
				why = &domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: text}
				continue
			}
			out = append(out, domain.Takeaway{Kind: domain.TakeawayText, Title: humanize(key), Text: text})
		case map[string]any:
			ins := insights(val)
			if len(ins) > 0 {
				out = append(out, domain.Takeaway{Kind: domain.TakeawayStructured, Title: humanize(key), Insights: ins})
			}
		case []any, []string:
			for _, t := range fromList(val) {
				if t.Title == "" && t.Kind == domain.TakeawayText {
					t.Title = humanize(key)
				}
				out = append(out, t)
			}
		case nil:
			continue
		default:
			if s := elementText(val); s != "" {
				out = append(out, domain.Takeaway{Kind: domain.TakeawayText, Title: humanize(key), Text: s})
			}
		}
	}
	if why != nil {
		out = append(out, *why)
	}
	return out
}

func textTakeaway(s string) domain.Takeaway {
	if rest, ok := trimWhyItMattersPrefix(s); ok {
		return domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: rest}
	}
	return domain.Takeaway{Kind: domain.TakeawayText, Text: s}
}

func insights(obj map[string]any) []domain.Insight {
	var out []domain.Insight
	for _, key := range sortedKeys(obj) {
		if text := elementText(obj[key]); text != "" {
			out = append(out, domain.Insight{Name: humanize(key), Text: text})
		}
	}
	return out
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstObject(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := obj[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func canonicalKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func isWhyItMatters(key string) bool {
	return canonicalKey(key) == "why it matters"
}

func trimWhyItMattersPrefix(s string) (string, bool) {
	const prefix = "why it matters:"
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):]), true
	}
	return s, false
}

// humanize turns snake_case and kebab-case keys into a display label.
func humanize(key string) string {
	label := canonicalKey(key)
	if label == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(r)) + label[size:]
}
