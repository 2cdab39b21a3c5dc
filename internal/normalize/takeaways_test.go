package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scienceswipe/internal/domain"
)

func TestTakeaways_Null(t *testing.T) {
	assert.Nil(t, Takeaways(nil))
	assert.Nil(t, Takeaways(""))
	assert.Nil(t, Takeaways([]any{}))
	assert.Nil(t, Takeaways(map[string]any{}))
	assert.Nil(t, Takeaways("[]"))
}

func TestTakeaways_PlainText(t *testing.T) {
	got := Takeaways("- Neurons fire in bursts\n\n• Sleep consolidates memory\nWhy it matters: better therapies")

	require.Len(t, got, 3)
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayText, Text: "Neurons fire in bursts"}, got[0])
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayText, Text: "Sleep consolidates memory"}, got[1])
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: "better therapies"}, got[2])
}

func TestTakeaways_StringList(t *testing.T) {
	got := Takeaways([]any{"First", nil, "  ", "Second"})

	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Text)
	assert.Equal(t, "Second", got[1].Text)

	fromStrings := Takeaways([]string{"Only"})
	require.Len(t, fromStrings, 1)
	assert.Equal(t, domain.TakeawayText, fromStrings[0].Kind)
}

func TestTakeaways_JSONText(t *testing.T) {
	t.Run("decodes a JSON array string", func(t *testing.T) {
		got := Takeaways(`["Alpha", "Beta"]`)
		require.Len(t, got, 2)
		assert.Equal(t, "Beta", got[1].Text)
	})

	t.Run("malformed JSON falls back to a single text takeaway", func(t *testing.T) {
		got := Takeaways(`{"broken": }`)
		require.Len(t, got, 1)
		assert.Equal(t, domain.TakeawayText, got[0].Kind)
		assert.Equal(t, `{"broken": }`, got[0].Text)
	})
}

func TestTakeaways_ObjectList(t *testing.T) {
	got := Takeaways([]any{
		map[string]any{"title": "Main finding", "text": "Mice live longer"},
		map[string]any{
			"title":    "Mechanism",
			"insights": map[string]any{"what": "Less inflammation", "how": "Diet change"},
		},
		map[string]any{"why_it_matters": "Could translate to humans"},
		map[string]any{},
	})

	require.Len(t, got, 3)

	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayText, Title: "Main finding", Text: "Mice live longer"}, got[0])

	assert.Equal(t, domain.TakeawayStructured, got[1].Kind)
	assert.Equal(t, "Mechanism", got[1].Title)
	assert.Equal(t, []domain.Insight{
		{Name: "How", Text: "Diet change"},
		{Name: "What", Text: "Less inflammation"},
	}, got[1].Insights)

	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: "Could translate to humans"}, got[2])
}

func TestTakeaways_Object(t *testing.T) {
	got := Takeaways(map[string]any{
		"why_it_matters": "Cheaper solar cells",
		"key_finding":    "Perovskites are stable",
		"details":        map[string]any{"efficiency": "25%", "lifetime": "10 years"},
		"empty":          "",
	})

	require.Len(t, got, 3)
	assert.Equal(t, domain.TakeawayStructured, got[0].Kind)
	assert.Equal(t, "Details", got[0].Title)
	assert.Len(t, got[0].Insights, 2)
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayText, Title: "Key finding", Text: "Perovskites are stable"}, got[1])

	// The distinguished entry is always last.
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayWhyItMatters, Text: "Cheaper solar cells"}, got[2])

	p := domain.Paper{AIKeyTakeaways: got}
	why, ok := p.WhyItMatters()
	require.True(t, ok)
	assert.Equal(t, "Cheaper solar cells", why.Text)
}

func TestTakeaways_ObjectNonASCIIKeys(t *testing.T) {
	got := Takeaways(map[string]any{
		"über_die_studie": "Text",
		"étude":           "Autre",
		"ökologie":        map[string]any{"ämter": "Zahl"},
	})

	require.Len(t, got, 3)
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayText, Title: "Étude", Text: "Autre"}, got[0])
	assert.Equal(t, "Ökologie", got[1].Title)
	assert.Equal(t, []domain.Insight{{Name: "Ämter", Text: "Zahl"}}, got[1].Insights)
	assert.Equal(t, domain.Takeaway{Kind: domain.TakeawayText, Title: "Über die studie", Text: "Text"}, got[2])
	for _, tk := range got {
		assert.True(t, utf8.ValidString(tk.Title), tk.Title)
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Key finding", humanize("key_finding"))
	assert.Equal(t, "Ça marche", humanize("ça-marche"))
	assert.Equal(t, "", humanize("  "))
}

func TestTakeaways_UnknownScalar(t *testing.T) {
	got := Takeaways(float64(3))
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].Text)
}

func TestDetectShape(t *testing.T) {
	assert.Equal(t, shapeNull, detectShape(nil))
	assert.Equal(t, shapeNull, detectShape("  "))
	assert.Equal(t, shapeText, detectShape("hello"))
	assert.Equal(t, shapeJSONText, detectShape(`["a"]`))
	assert.Equal(t, shapeJSONText, detectShape(`{"a":"b"}`))
	assert.Equal(t, shapeList, detectShape([]any{"a"}))
	assert.Equal(t, shapeObject, detectShape(map[string]any{}))
	assert.Equal(t, shapeOther, detectShape(true))
}
