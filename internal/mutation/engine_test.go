package mutation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

func toolsDoc(t *testing.T) *domain.Document {
	t.Helper()
	d := domain.NewDocument()
	require.NoError(t, d.AppendCategory("Tools", domain.Entry{
		DisplayName: "Alpha",
		Aliases:     []string{"a", "al"},
		Link:        "https://x.test/a",
	}))
	return d
}

func newEngine(t *testing.T, d *domain.Document) *Engine {
	t.Helper()
	return New(d, logger.Nop())
}

func TestDeleteLastEntryRemovesCategory(t *testing.T) {
	e := newEngine(t, toolsDoc(t))

	removed, err := e.Delete(domain.Position{Category: "Tools", Index: 0}, Always)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", removed.DisplayName)
	assert.Empty(t, e.Document().Categories())
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	e := newEngine(t, toolsDoc(t))
	before := e.Document().Clone()

	_, err := e.Delete(domain.Position{Category: "Tools", Index: 0}, Never)
	require.ErrorIs(t, err, ErrDeclined)
	assert.True(t, e.Document().Equal(before))

	_, err = e.Delete(domain.Position{Category: "Tools", Index: 0}, nil)
	require.ErrorIs(t, err, ErrDeclined)
}

func TestDeleteAsksAboutTheAddressedEntry(t *testing.T) {
	d := toolsDoc(t)
	require.NoError(t, d.InsertEntry("Tools", 1, domain.Entry{DisplayName: "Beta", Aliases: []string{"b"}, Link: "https://x.test/b"}))
	e := newEngine(t, d)

	var asked string
	c := Funcs{Delete: func(_ domain.Position, entry domain.Entry) bool {
		asked = entry.DisplayName
		return true
	}}
	_, err := e.Delete(domain.Position{Category: "Tools", Index: 1}, c)
	require.NoError(t, err)
	assert.Equal(t, "Beta", asked)
	assert.Equal(t, []string{"Tools"}, d.Categories())
}

func TestCreateReportsCollisionWithProvenance(t *testing.T) {
	e := newEngine(t, toolsDoc(t))

	var got []domain.Collision
	c := Funcs{Collision: func(col domain.Collision) bool {
		got = append(got, col)
		return false
	}}

	_, err := e.Create(NewEntry{
		Category:    "Tools",
		DisplayName: "Almanac",
		Aliases:     []string{"AL"},
		Link:        "https://x.test/alm",
	}, c)
	require.ErrorIs(t, err, ErrDeclined)

	require.Len(t, got, 1)
	assert.Equal(t, "al", got[0].Alias)
	assert.Equal(t, "Tools", got[0].Category)
	assert.Equal(t, "Alpha", got[0].DisplayName)
	assert.Equal(t, 0, got[0].Index)

	entries, _ := e.Document().Category("Tools")
	assert.Len(t, entries, 1, "declined create must not mutate")
}

func TestCreateProceedsWhenEveryCollisionConfirmed(t *testing.T) {
	d := toolsDoc(t)
	require.NoError(t, d.AppendCategory("Wiki", domain.Entry{DisplayName: "Wiki A", Aliases: []string{"a"}, Link: "https://x.test/w"}))
	e := newEngine(t, d)

	asked := 0
	c := Funcs{Collision: func(domain.Collision) bool { asked++; return true }}
	pos, err := e.Create(NewEntry{Category: "Wiki", DisplayName: "New", Aliases: []string{"a", "al", "fresh"}, Link: "https://x.test/n"}, c)
	require.NoError(t, err)

	// "a" is held twice, "al" once.
	assert.Equal(t, 3, asked)
	assert.Equal(t, domain.Position{Category: "Wiki", Index: 1}, pos)
}

func TestCreatePartialConfirmationDeclines(t *testing.T) {
	e := newEngine(t, toolsDoc(t))
	c := AllowAliases{Aliases: []string{"a"}}

	_, err := e.Create(NewEntry{Category: "Tools", DisplayName: "X", Aliases: []string{"a", "al"}, Link: "https://x.test/x"}, c)
	require.ErrorIs(t, err, ErrDeclined)

	_, err = e.Create(NewEntry{Category: "Tools", DisplayName: "X", Aliases: []string{"a", "al"}, Link: "https://x.test/x"}, AllowAliases{Aliases: []string{"A", "al"}})
	require.NoError(t, err)
}

func TestCreateNormalizesAndTrims(t *testing.T) {
	e := newEngine(t, domain.NewDocument())
	pos, err := e.Create(NewEntry{
		Category:    "  Phones ",
		DisplayName: " Phone (2) ",
		Aliases:     []string{" Phone 2", "", "P2 "},
		Link:        " https://x.test/p2 ",
	}, Never)
	require.NoError(t, err)

	got, err := e.Document().Entry(pos)
	require.NoError(t, err)
	assert.Equal(t, domain.Entry{DisplayName: "Phone (2)", Aliases: []string{"phone 2", "p2"}, Link: "https://x.test/p2"}, got)
}

func TestCreateRejectsBlankRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		in     NewEntry
		fields []string
	}{
		{name: "no category", in: NewEntry{DisplayName: "X", Link: "https://x"}, fields: []string{"category"}},
		{name: "blank name", in: NewEntry{Category: "C", DisplayName: "  ", Link: "https://x"}, fields: []string{"display_name"}},
		{name: "everything blank", in: NewEntry{}, fields: []string{"category", "display_name", "link"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, toolsDoc(t))
			_, err := e.Create(tt.in, Always)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			require.ErrorIs(t, err, domain.ErrInvalid)

			var fields []string
			for _, v := range verr.Violations {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tt.fields, fields)
			assert.Equal(t, 1, e.Document().Len())
		})
	}
}

func TestEditField(t *testing.T) {
	e := newEngine(t, toolsDoc(t))
	pos := domain.Position{Category: "Tools", Index: 0}

	require.NoError(t, e.EditField(pos, domain.FieldAliases, " X, ,y "))
	require.NoError(t, e.EditField(pos, domain.FieldDisplayName, "   "))

	got, err := e.Document().Entry(pos)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got.Aliases)
	assert.Equal(t, "", got.DisplayName, "empty values are stored, not rejected")

	assert.ErrorIs(t, e.EditField(domain.Position{Category: "Tools", Index: 5}, domain.FieldLink, "x"), domain.ErrPositionOutOfRange)
}

func TestMove(t *testing.T) {
	d := toolsDoc(t)
	require.NoError(t, d.AppendCategory("Wiki", domain.Entry{DisplayName: "W", Aliases: []string{"w"}, Link: "https://x.test/w"}))
	e := newEngine(t, d)

	t.Run("onto itself", func(t *testing.T) {
		before := d.Clone()
		pos := domain.Position{Category: "Tools", Index: 0}
		require.NoError(t, e.Move(pos, pos))
		assert.True(t, d.Equal(before))
	})

	t.Run("onto itself out of range", func(t *testing.T) {
		pos := domain.Position{Category: "Tools", Index: 4}
		assert.ErrorIs(t, e.Move(pos, pos), domain.ErrPositionOutOfRange)
	})

	t.Run("emptying source prunes it", func(t *testing.T) {
		require.NoError(t, e.Move(domain.Position{Category: "Tools", Index: 0}, domain.Position{Category: "Wiki", Index: 0}))
		assert.Equal(t, []string{"Wiki"}, d.Categories())
		entries, _ := d.Category("Wiki")
		require.Len(t, entries, 2)
		assert.Equal(t, "Alpha", entries[0].DisplayName)
	})

	t.Run("into new category", func(t *testing.T) {
		require.NoError(t, e.Move(domain.Position{Category: "Wiki", Index: 1}, domain.Position{Category: "Misc", Index: 0}))
		assert.Equal(t, []string{"Wiki", "Misc"}, d.Categories())
		assert.Equal(t, 2, d.Len())
	})
}

func TestValidateCollectsAllViolations(t *testing.T) {
	d := domain.NewDocument()
	require.NoError(t, d.AppendCategory("Tools",
		domain.Entry{DisplayName: "Good", Aliases: []string{"g"}, Link: "https://x.test/g"},
		domain.Entry{DisplayName: "", Aliases: []string{}, Link: "not a url"},
		domain.Entry{DisplayName: "Relative", Aliases: []string{"r"}, Link: "/relative/path"},
		domain.Entry{DisplayName: "Mail", Aliases: []string{"m"}, Link: "mailto:someone@x.test"},
	))
	require.NoError(t, d.AppendCategory("Wiki",
		domain.Entry{DisplayName: "  ", Aliases: []string{"w"}, Link: ""},
	))

	err := newEngine(t, d).Validate()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))

	type key struct {
		category string
		index    int
		field    string
	}
	got := map[key]bool{}
	for _, v := range verr.Violations {
		got[key{v.Category, v.Index, v.Field}] = true
	}

	want := []key{
		{"Tools", 1, "display_name"},
		{"Tools", 1, "aliases"},
		{"Tools", 1, "link"},
		{"Tools", 2, "link"},
		{"Tools", 3, "link"},
		{"Wiki", 0, "display_name"},
		{"Wiki", 0, "link"},
	}
	for _, k := range want {
		assert.True(t, got[k], "missing violation %+v", k)
	}
	assert.Len(t, verr.Violations, len(want))
}

func TestValidateCleanDocument(t *testing.T) {
	assert.NoError(t, newEngine(t, toolsDoc(t)).Validate())
	assert.NoError(t, newEngine(t, domain.NewDocument()).Validate())
}

func TestDuplicates(t *testing.T) {
	d := toolsDoc(t)
	require.NoError(t, d.InsertEntry("Tools", 1, domain.Entry{DisplayName: "Alt", Aliases: []string{"al", "al"}, Link: "https://x.test/alt"}))
	require.NoError(t, d.AppendCategory("Wiki", domain.Entry{DisplayName: "Wiki", Aliases: []string{"AL", "w"}, Link: "https://x.test/w"}))

	dups := newEngine(t, d).Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "al", dups[0].Alias)
	assert.Equal(t, []domain.Holder{
		{Category: "Tools", Index: 0, DisplayName: "Alpha"},
		{Category: "Tools", Index: 1, DisplayName: "Alt"},
		{Category: "Wiki", Index: 0, DisplayName: "Wiki"},
	}, dups[0].Holders)
}

func TestDuplicatesNone(t *testing.T) {
	assert.Empty(t, newEngine(t, toolsDoc(t)).Duplicates())
}
