package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

const commandsYAML = `Tools:
  - display_name: Alpha
    aliases:
      - a
      - al
    link: https://x.test/a
  - display_name: Beta
    aliases:
      - b
    link: https://x.test/b
Phones:
  - display_name: Phone (2)
    aliases:
      - phone 2
      - p2
    link: https://x.test/p2
`

func TestParse(t *testing.T) {
	doc, err := NewYAML().Parse(commandsYAML)
	require.NoError(t, err)

	assert.Equal(t, []string{"Tools", "Phones"}, doc.Categories())
	assert.Equal(t, 3, doc.Len())

	e, err := doc.Entry(domain.Position{Category: "Phones", Index: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.Entry{
		DisplayName: "Phone (2)",
		Aliases:     []string{"phone 2", "p2"},
		Link:        "https://x.test/p2",
	}, e)
}

func TestSerializeIsVerbatimForCanonicalText(t *testing.T) {
	c := NewYAML()
	doc, err := c.Parse(commandsYAML)
	require.NoError(t, err)

	out, err := c.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, commandsYAML, out)
}

func TestRoundTripPreservesOrder(t *testing.T) {
	docs := map[string]func(t *testing.T) *domain.Document{
		"empty": func(t *testing.T) *domain.Document { return domain.NewDocument() },
		"reverse alphabetical categories": func(t *testing.T) *domain.Document {
			d := domain.NewDocument()
			require.NoError(t, d.AppendCategory("Zulu", domain.Entry{DisplayName: "Z", Aliases: []string{"z"}, Link: "https://z.test"}))
			require.NoError(t, d.AppendCategory("Alpha", domain.Entry{DisplayName: "A", Aliases: []string{"a"}, Link: "https://a.test"}))
			return d
		},
		"empty category and empty fields": func(t *testing.T) *domain.Document {
			d := domain.NewDocument()
			require.NoError(t, d.AppendCategory("Empty"))
			require.NoError(t, d.AppendCategory("Partial", domain.Entry{DisplayName: "", Aliases: []string{}, Link: ""}))
			return d
		},
		"scalars that look typed": func(t *testing.T) *domain.Document {
			d := domain.NewDocument()
			require.NoError(t, d.AppendCategory("yes", domain.Entry{DisplayName: "true", Aliases: []string{"no", "1.5", "null", "~"}, Link: "https://x.test/#a: b"}))
			return d
		},
	}

	c := NewYAML()
	for name, build := range docs {
		t.Run(name, func(t *testing.T) {
			d := build(t)
			text, err := c.Serialize(d)
			require.NoError(t, err)

			back, err := c.Parse(text)
			require.NoError(t, err)
			assert.True(t, d.Equal(back), "round trip changed the document:\n%s", text)
		})
	}
}

func TestParseEmptyText(t *testing.T) {
	for _, text := range []string{"", "  \n", "---\n", "{}\n", "# only a comment\n"} {
		doc, err := NewYAML().Parse(text)
		require.NoError(t, err, "text %q", text)
		assert.Equal(t, 0, doc.Len())
	}
}

func TestParseNullCategory(t *testing.T) {
	doc, err := NewYAML().Parse("Tools:\n")
	require.NoError(t, err)
	entries, ok := doc.Category("Tools")
	require.True(t, ok)
	assert.Empty(t, entries)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "top level list", text: "- a\n- b\n"},
		{name: "category is scalar", text: "Tools: nope\n"},
		{name: "entry is scalar list", text: "Tools:\n  - display_name: [1, 2]\n"},
		{name: "duplicate category", text: "Tools: []\nTools: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAML().Parse(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := NewYAML().Parse("Tools: [\n")
	assert.Error(t, err)
}
