package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

var testSettings = schema.Settings{
	ListingRecords:  10,
	RecordsPerPage:  20,
	AcceptFileTypes: []string{"jpg", "png", "pdf", "txt"},
}

func parseDoc(t *testing.T, doc string, locales []string) (*schema.Result, error) {
	t.Helper()
	var raw schema.OrderedMap
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))
	return schema.NewParser(testSettings, locales).Parse(&raw)
}

func mustParse(t *testing.T, doc string) *schema.Result {
	t.Helper()
	res, err := parseDoc(t, doc, nil)
	require.NoError(t, err)
	return res
}

func TestParseRequiredKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name and slug",
			doc: `
pages:
    singular_name: Page
    fields:
        title: {type: text}
`,
			want: "neither 'name' nor 'slug' is set",
		},
		{
			name: "missing singular name and slug",
			doc: `
pages:
    name: Pages
    fields:
        title: {type: text}
`,
			want: "neither 'singular_name' nor 'singular_slug' is set",
		},
		{
			name: "missing fields",
			doc: `
pages:
    name: Pages
    singular_name: Page
`,
			want: "no 'fields' are set",
		},
		{
			name: "field without type",
			doc: `
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {label: Title}
`,
			want: "has no 'type' set",
		},
		{
			name: "field with unknown type",
			doc: `
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {type: sparkles}
`,
			want: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDoc(t, tt.doc, nil)
			require.Error(t, err)

			var confErr *schema.ConfigurationError
			require.ErrorAs(t, err, &confErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDerivesNamesAndSlugs(t *testing.T) {
	res := mustParse(t, `
Fancy Pages:
    name: Fancy Pages
    singular_slug: fancy-page
    fields:
        title: {type: text}
`)

	ct, ok := res.Set.Get("fancy-pages")
	require.True(t, ok)
	assert.Equal(t, "Fancy Pages", ct.Name)
	assert.Equal(t, "fancy-page", ct.SingularSlug)
	assert.Equal(t, "Fancy Page", ct.SingularName)
}

func TestParseDefaults(t *testing.T) {
	res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {type: text}
`)

	ct, ok := res.Set.Get("pages")
	require.True(t, ok)

	assert.True(t, ct.ShowOnDashboard)
	assert.True(t, ct.ShowInMenu)
	assert.Equal(t, schema.StatusPublished, ct.DefaultStatus)
	assert.False(t, ct.Viewless)
	assert.True(t, ct.Searchable)
	assert.False(t, ct.Singleton)
	assert.False(t, ct.AllowNumericSlugs)
	assert.Equal(t, "fa-file", ct.IconOne)
	assert.Equal(t, "fa-copy", ct.IconMany)
	assert.Equal(t, "page.html", ct.RecordTemplate)
	assert.Equal(t, "pages.html", ct.ListingTemplate)
	assert.Equal(t, 10, ct.ListingRecords)
	assert.Equal(t, 20, ct.RecordsPerPage)
	assert.Equal(t, "-createdAt", ct.Order)

	// The slug field is synthesized and hidden when not declared.
	slugField, ok := ct.Fields.Get("slug")
	require.True(t, ok)
	assert.Equal(t, schema.KindSlug, slugField.Kind)
	assert.True(t, slugField.Hidden)
}

func TestParseViewlessForcesUnsearchable(t *testing.T) {
	res := mustParse(t, `
blocks:
    name: Blocks
    singular_name: Block
    viewless: true
    searchable: true
    fields:
        title: {type: text}
`)

	ct, _ := res.Set.Get("blocks")
	assert.True(t, ct.Viewless)
	assert.False(t, ct.Searchable)
}

func TestParseInvalidDefaultStatusFallsBack(t *testing.T) {
	res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    default_status: scheduled
    fields:
        title: {type: text}
`)

	ct, _ := res.Set.Get("pages")
	assert.Equal(t, schema.StatusPublished, ct.DefaultStatus)
}

func TestParseIconShorthand(t *testing.T) {
	res := mustParse(t, `
books:
    name: Books
    singular_name: Book
    icon_one: "fa:book"
    icon_many: "fa:books"
    fields:
        title: {type: text}
`)

	ct, _ := res.Set.Get("books")
	assert.Equal(t, "fa-book", ct.IconOne)
	assert.Equal(t, "fa-books", ct.IconMany)
}

func TestParseSingletonPagination(t *testing.T) {
	res := mustParse(t, `
homepage:
    name: Homepage
    singular_name: Homepage item
    singleton: true
    listing_records: 50
    fields:
        title: {type: text}
`)

	ct, _ := res.Set.Get("homepage")
	assert.Equal(t, 1, ct.ListingRecords)
	assert.Equal(t, 1, ct.RecordsPerPage)
}

func TestParseLocaleRestriction(t *testing.T) {
	doc := `
pages:
    name: Pages
    singular_name: Page
    locales: [en, fr, de]
    fields:
        title: {type: text}
`

	t.Run("permitted subset succeeds", func(t *testing.T) {
		res, err := parseDoc(t, doc, []string{"en", "fr", "de", "nl"})
		require.NoError(t, err)
		ct, _ := res.Set.Get("pages")
		assert.Equal(t, []string{"en", "fr", "de"}, ct.Locales)
		assert.Equal(t, "en", ct.DefaultLocale())
	})

	t.Run("forbidden locales are named", func(t *testing.T) {
		_, err := parseDoc(t, doc, []string{"en", "nl"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fr, de")
		assert.Contains(t, err.Error(), "en, nl")
	})

	t.Run("no restriction permits everything", func(t *testing.T) {
		_, err := parseDoc(t, doc, nil)
		require.NoError(t, err)
	})
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name  string
		order string
		want  string
	}{
		{"declared field is kept", "title", "title"},
		{"descending field is kept", "-title", "-title"},
		{"unknown column falls back", "bogus", "-createdAt"},
		{"legacy created alias", "-created", "-createdAt"},
		{"legacy createdat alias", "createdat", "createdAt"},
		{"canonical name survives the alias pass", "createdAt", "createdAt"},
		{"legacy datepublish alias", "datepublish", "publishedAt"},
		{"modifiedat alias", "-modifiedat", "-modifiedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    order: "`+tt.order+`"
    fields:
        title: {type: text}
`)
			ct, _ := res.Set.Get("pages")
			assert.Equal(t, tt.want, ct.Order)
		})
	}
}

func TestParseDeprecatedSortKey(t *testing.T) {
	res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    sort: "-title"
    fields:
        title: {type: text}
`)
	ct, _ := res.Set.Get("pages")
	assert.Equal(t, "-title", ct.Order)
}

func TestParseSelectValues(t *testing.T) {
	t.Run("indexed list labels itself", func(t *testing.T) {
		res := mustParse(t, `
entries:
    name: Entries
    singular_name: Entry
    fields:
        genre:
            type: select
            values: [fiction, non-fiction, poetry]
`)
		ct, _ := res.Set.Get("entries")
		genre, ok := ct.Fields.Get("genre")
		require.True(t, ok)
		require.NotNil(t, genre.Values)
		assert.Equal(t, []string{"fiction", "non-fiction", "poetry"}, genre.Values.Keys())
		assert.Equal(t, "poetry", genre.Values.Get("poetry"))
	})

	t.Run("mapping is kept as-is", func(t *testing.T) {
		res := mustParse(t, `
entries:
    name: Entries
    singular_name: Entry
    fields:
        genre:
            type: select
            values: {f: Fiction, nf: Non-Fiction}
`)
		ct, _ := res.Set.Get("entries")
		genre, _ := ct.Fields.Get("genre")
		assert.Equal(t, []string{"f", "nf"}, genre.Values.Keys())
		assert.Equal(t, "Fiction", genre.Values.Get("f"))
	})
}

func TestParseFileAndImageExtensions(t *testing.T) {
	res := mustParse(t, `
entries:
    name: Entries
    singular_name: Entry
    fields:
        attachment: {type: file}
        picture: {type: image}
        logo:
            type: image
            extensions: [svg]
`)
	ct, _ := res.Set.Get("entries")

	attachment, _ := ct.Fields.Get("attachment")
	assert.Equal(t, testSettings.AcceptFileTypes, attachment.Extensions)

	// Image fields only accept the image subset of the global list.
	picture, _ := ct.Fields.Get("picture")
	assert.Equal(t, []string{"jpg", "png"}, picture.Extensions)

	logo, _ := ct.Fields.Get("logo")
	assert.Equal(t, []string{"svg"}, logo.Extensions)
}

func TestParseGroupFold(t *testing.T) {
	res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    taxonomy: [tags]
    fields:
        title: {type: text}
        teaser: {type: textarea}
        picture:
            type: image
            group: media
        caption: {type: text}
        summary:
            type: textarea
            group: meta
`)
	ct, _ := res.Set.Get("pages")

	title, _ := ct.Fields.Get("title")
	assert.Equal(t, "content", title.Group)

	// A group switch carries through the following ungrouped fields.
	caption, _ := ct.Fields.Get("caption")
	assert.Equal(t, "media", caption.Group)

	summary, _ := ct.Fields.Get("summary")
	assert.Equal(t, "meta", summary.Group)

	assert.Equal(t, []string{"content", "media", "meta", "Relations"}, ct.Groups)
}

func TestParseRepeaters(t *testing.T) {
	t.Run("non repeating kind with nested fields is dropped", func(t *testing.T) {
		res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {type: text}
        broken:
            type: text
            fields:
                inner: {type: text}
`)
		ct, _ := res.Set.Get("pages")
		assert.False(t, ct.Fields.Has("broken"))
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, "broken", res.Warnings[0].Field)
	})

	t.Run("blacklisted nested kinds are stripped", func(t *testing.T) {
		res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    fields:
        blocks:
            type: collection
            fields:
                heading: {type: text}
                nested_slug: {type: slug}
                nested_repeater: {type: repeater}
`)
		ct, _ := res.Set.Get("pages")
		blocks, ok := ct.Fields.Get("blocks")
		require.True(t, ok)
		require.NotNil(t, blocks.Fields)
		assert.True(t, blocks.Fields.Has("heading"))
		assert.False(t, blocks.Fields.Has("nested_slug"))
		assert.False(t, blocks.Fields.Has("nested_repeater"))
		assert.Len(t, res.Warnings, 2)
	})

	t.Run("set may nest a collection", func(t *testing.T) {
		res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    fields:
        block:
            type: set
            fields:
                items:
                    type: collection
                    fields:
                        label: {type: text}
`)
		ct, _ := res.Set.Get("pages")
		block, _ := ct.Fields.Get("block")
		items, ok := block.Fields.Get("items")
		require.True(t, ok)
		assert.True(t, items.Fields.Has("label"))
		assert.Empty(t, res.Warnings)
	})

	t.Run("nested group stays inside the repeater", func(t *testing.T) {
		res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {type: text}
        block:
            type: set
            fields:
                inner:
                    type: text
                    group: innergroup
        after: {type: text}
`)
		ct, _ := res.Set.Get("pages")

		block, _ := ct.Fields.Get("block")
		inner, ok := block.Fields.Get("inner")
		require.True(t, ok)
		assert.Equal(t, "innergroup", inner.Group)

		after, _ := ct.Fields.Get("after")
		assert.Equal(t, "content", after.Group)
		assert.Equal(t, []string{"content"}, ct.Groups)
	})
}

func TestParseTwiceYieldsSameSnapshot(t *testing.T) {
	doc := `
entries:
    name: Entries
    singular_name: Entry
    taxonomy: [tags]
    fields:
        title: {type: text, group: content}
        color:
            type: select
            values: [red, green]
        blocks:
            type: collection
            fields:
                heading: {type: text}
                bad: {type: repeater}
`
	var raw schema.OrderedMap
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))

	first, err := schema.NewParser(testSettings, nil).Parse(&raw)
	require.NoError(t, err)
	second, err := schema.NewParser(testSettings, nil).Parse(&raw)
	require.NoError(t, err)

	assert.Equal(t, first.Set.Slugs(), second.Set.Slugs())
	assert.Equal(t, first.Warnings, second.Warnings)

	ct1, _ := first.Set.Get("entries")
	ct2, _ := second.Set.Get("entries")
	assert.Equal(t, ct1.Fields.Names(), ct2.Fields.Names())
	assert.Equal(t, ct1.Groups, ct2.Groups)
	assert.Equal(t, ct1.Order, ct2.Order)
	assert.Equal(t, ct1, ct2)
}

func TestParseTitleFormatFromSlugUses(t *testing.T) {
	res := mustParse(t, `
people:
    name: People
    singular_name: Person
    fields:
        firstname: {type: text}
        lastname: {type: text}
        slug:
            type: slug
            uses: [firstname, lastname]
`)
	ct, _ := res.Set.Get("people")
	assert.Equal(t, []string{"firstname", "lastname"}, ct.TitleFormat)
}

func TestParseRelationsKeyedBySlug(t *testing.T) {
	res := mustParse(t, `
entries:
    name: Entries
    singular_name: Entry
    relations:
        Fancy Pages:
            multiple: false
    fields:
        title: {type: text}
`)
	ct, _ := res.Set.Get("entries")
	assert.True(t, ct.Relations.Has("fancy-pages"))
	assert.Contains(t, ct.Groups, "Relations")
}

func TestParseSkipsCommentBlocks(t *testing.T) {
	res := mustParse(t, `
__comment:
    anything: goes
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {type: text}
`)
	assert.Equal(t, []string{"pages"}, res.Set.Slugs())
}

func TestParseDuplicateSlugsRejected(t *testing.T) {
	_, err := parseDoc(t, `
pages:
    name: Pages
    singular_name: Page
    fields:
        title: {type: text}
pages2:
    slug: pages
    name: Pages
    singular_slug: page-two
    fields:
        title: {type: text}
`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}

func TestParseEndToEnd(t *testing.T) {
	res := mustParse(t, `
pages:
    name: Pages
    singular_name: Page
    icon_one: "fa:file"
    records_per_page: 5
    order: title
    fields:
        title:
            type: text
            localize: true
        body:
            type: markdown
            allow_twig: true
        picture:
            type: image
entries:
    name: Entries
    singular_name: Entry
    viewless: true
    fields:
        title: {type: text}
`)

	assert.Equal(t, []string{"pages", "entries"}, res.Set.Slugs())
	assert.Equal(t, 2, res.Set.Len())
	assert.Equal(t, "pages|page|entries|entry", res.Set.RouteRequirement())

	pages, _ := res.Set.Get("pages")
	assert.Equal(t, "title", pages.Order)
	assert.Equal(t, 5, pages.RecordsPerPage)

	title, _ := pages.Fields.Get("title")
	assert.True(t, title.IsTranslatable())
	assert.Equal(t, "Title", title.Label)

	body, _ := pages.Fields.Get("body")
	assert.True(t, body.AllowTemplate)
	assert.True(t, body.AllowHTML)

	byEntry, ok := res.Set.BySingularSlug("entry")
	require.True(t, ok)
	assert.Equal(t, "entries", byEntry.Slug)
}
