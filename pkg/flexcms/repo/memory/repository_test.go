package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/query"
	"github.com/tendant/flex-cms/pkg/flexcms/repo/memory"
	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// makeRecord builds a stored entry with a title, slug, and timestamps offset
// by n hours so ordering is deterministic.
func makeRecord(contentType, title, slug string, n int, status schema.Status) *flexcms.Content {
	created := baseTime.Add(time.Duration(n) * time.Hour)

	titleField := flexcms.NewDetachedField("title", nil)
	titleField.SetValue("", title)
	slugField := flexcms.NewDetachedField("slug", schema.OrderedMapOf("type", "slug"))
	slugField.SetValue("", slug)

	c := &flexcms.Content{
		ContentType: contentType,
		Status:      status,
		CreatedAt:   created,
		ModifiedAt:  created,
		Fields:      []*flexcms.Field{titleField, slugField},
	}
	if status == schema.StatusPublished {
		published := created
		c.PublishedAt = &published
	}
	return c
}

func seedRecords(t *testing.T, repo *memory.Repository, records ...*flexcms.Content) {
	t.Helper()
	for _, c := range records {
		require.NoError(t, repo.SaveContent(context.Background(), c))
	}
}

func TestSaveAndGetContent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	record := makeRecord("entries", "First", "first", 0, schema.StatusPublished)
	require.NoError(t, repo.SaveContent(ctx, record))
	assert.NotEqual(t, uuid.Nil, record.ID)

	got, err := repo.GetContent(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "First", got.Field("title").ParsedValue(""))

	// The stored copy is isolated from later mutations of the original.
	record.Field("title").SetValue("", "Changed")
	got, err = repo.GetContent(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Field("title").ParsedValue(""))
}

func TestGetContentNotFound(t *testing.T) {
	repo := memory.New()
	_, err := repo.GetContent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)
}

func TestDeleteContent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	record := makeRecord("entries", "First", "first", 0, schema.StatusPublished)
	seedRecords(t, repo, record)

	require.NoError(t, repo.DeleteContent(ctx, record.ID))
	_, err := repo.GetContent(ctx, record.ID)
	assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)

	assert.ErrorIs(t, repo.DeleteContent(ctx, record.ID), flexcms.ErrRecordNotFound)
}

func TestListContent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seedRecords(t, repo,
		makeRecord("entries", "Banana", "banana", 0, schema.StatusPublished),
		makeRecord("entries", "Apple", "apple", 1, schema.StatusPublished),
		makeRecord("entries", "Cherry", "cherry", 2, schema.StatusDraft),
		makeRecord("pages", "About", "about", 3, schema.StatusPublished),
	)

	t.Run("filters by content type", func(t *testing.T) {
		page, err := repo.ListContent(ctx, "entries", flexcms.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("only published", func(t *testing.T) {
		page, err := repo.ListContent(ctx, "entries", flexcms.ListOptions{OnlyPublished: true})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("orders by native column", func(t *testing.T) {
		page, err := repo.ListContent(ctx, "entries", flexcms.ListOptions{Order: "-createdAt"})
		require.NoError(t, err)
		require.Len(t, page.Records, 3)
		assert.Equal(t, "Cherry", page.Records[0].Field("title").ParsedValue(""))
	})

	t.Run("orders by field value", func(t *testing.T) {
		page, err := repo.ListContent(ctx, "entries", flexcms.ListOptions{Order: "title"})
		require.NoError(t, err)
		require.Len(t, page.Records, 3)
		assert.Equal(t, "Apple", page.Records[0].Field("title").ParsedValue(""))
		assert.Equal(t, "Cherry", page.Records[2].Field("title").ParsedValue(""))
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := repo.ListContent(ctx, "entries", flexcms.ListOptions{Order: "title", Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "Cherry", page.Records[0].Field("title").ParsedValue(""))
	})
}

func TestFindOneBySlug(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seedRecords(t, repo,
		makeRecord("entries", "First", "first", 0, schema.StatusPublished),
		makeRecord("entries", "Second", "second", 1, schema.StatusPublished),
	)

	got, err := repo.FindOneBySlug(ctx, "entries", "second", "")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Field("title").ParsedValue(""))

	_, err = repo.FindOneBySlug(ctx, "entries", "missing", "")
	assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)

	_, err = repo.FindOneBySlug(ctx, "pages", "first", "")
	assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)
}

func TestFindOneByFieldValue(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seedRecords(t, repo,
		makeRecord("entries", "First", "first", 0, schema.StatusPublished),
	)

	got, err := repo.FindOneByFieldValue(ctx, "entries", "title", "First")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Field("slug").ParsedValue(""))

	_, err = repo.FindOneByFieldValue(ctx, "entries", "title", "Nope")
	assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)
}

func TestFindLatest(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seedRecords(t, repo,
		makeRecord("entries", "Old", "old", 0, schema.StatusPublished),
		makeRecord("entries", "Mid", "mid", 1, schema.StatusDraft),
		makeRecord("entries", "New", "new", 2, schema.StatusPublished),
	)

	latest, err := repo.FindLatest(ctx, "entries", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "New", latest[0].Field("title").ParsedValue(""))
	assert.Equal(t, "Mid", latest[1].Field("title").ParsedValue(""))
}

func TestFindForTaxonomy(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tagged := makeRecord("entries", "Tagged", "tagged", 0, schema.StatusPublished)
	tagged.Taxonomies = []flexcms.TaxonomyLink{{Type: "tags", Slug: "cooking"}}
	draft := makeRecord("entries", "Draft", "draft", 1, schema.StatusDraft)
	draft.Taxonomies = []flexcms.TaxonomyLink{{Type: "tags", Slug: "cooking"}}
	other := makeRecord("entries", "Other", "other", 2, schema.StatusPublished)
	other.Taxonomies = []flexcms.TaxonomyLink{{Type: "tags", Slug: "travel"}}
	seedRecords(t, repo, tagged, draft, other)

	page, err := repo.FindForTaxonomy(ctx, "tags", "cooking", flexcms.ListOptions{OnlyPublished: true})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Tagged", page.Records[0].Field("title").ParsedValue(""))
}

func TestFindAdjacent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	first := makeRecord("entries", "First", "first", 0, schema.StatusPublished)
	second := makeRecord("entries", "Second", "second", 1, schema.StatusDraft)
	third := makeRecord("entries", "Third", "third", 2, schema.StatusPublished)
	seedRecords(t, repo, first, second, third)

	t.Run("next skips unpublished records", func(t *testing.T) {
		got, err := repo.FindAdjacent(ctx, "entries", "createdAt", first.CreatedAt, true)
		require.NoError(t, err)
		assert.Equal(t, "Third", got.Field("title").ParsedValue(""))
	})

	t.Run("previous", func(t *testing.T) {
		got, err := repo.FindAdjacent(ctx, "entries", "createdAt", third.CreatedAt, false)
		require.NoError(t, err)
		assert.Equal(t, "First", got.Field("title").ParsedValue(""))
	})

	t.Run("strict comparison excludes the pivot", func(t *testing.T) {
		_, err := repo.FindAdjacent(ctx, "entries", "createdAt", third.CreatedAt, true)
		assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)
	})
}

func TestSearchNaive(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seedRecords(t, repo,
		makeRecord("entries", "Cooking with gas", "cooking-gas", 0, schema.StatusPublished),
		makeRecord("entries", "Slow cooking", "slow-cooking", 1, schema.StatusDraft),
		makeRecord("pages", "Cooking page", "cooking-page", 2, schema.StatusPublished),
		makeRecord("entries", "Gardening", "gardening", 3, schema.StatusPublished),
	)

	t.Run("matches are case-insensitive and published-only", func(t *testing.T) {
		page, err := repo.SearchNaive(ctx, "COOKING", nil, flexcms.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		// Newest modified first.
		assert.Equal(t, "Cooking page", page.Records[0].Field("title").ParsedValue(""))
	})

	t.Run("type filter narrows the result", func(t *testing.T) {
		page, err := repo.SearchNaive(ctx, "cooking", []string{"entries"}, flexcms.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("no matches yields an empty page", func(t *testing.T) {
		page, err := repo.SearchNaive(ctx, "xyzzy", nil, flexcms.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.Empty(t, page.Records)
	})
}

func TestQuery(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	seedRecords(t, repo,
		makeRecord("entries", "Alpha", "alpha", 0, schema.StatusPublished),
		makeRecord("entries", "Beta", "beta", 1, schema.StatusPublished),
		makeRecord("entries", "Gamma", "gamma", 2, schema.StatusDraft),
		makeRecord("pages", "About", "about", 3, schema.StatusPublished),
	)

	parse := func(t *testing.T, input string) *query.Query {
		t.Helper()
		q, err := query.Parse(input)
		require.NoError(t, err)
		return q
	}

	t.Run("selects by type with a limit", func(t *testing.T) {
		q := parse(t, "records = entries limit 2 order title")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{OnlyPublished: true})
		require.NoError(t, err)
		require.NotNil(t, res.Page)
		require.Len(t, res.Page.Records, 2)
		assert.Equal(t, "Alpha", res.Page.Records[0].Field("title").ParsedValue(""))
		assert.Equal(t, 2, res.Page.Total)
	})

	t.Run("where with wildcard", func(t *testing.T) {
		q := parse(t, "records = entries where { title: '%eta%' }")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{OnlyPublished: true, PerPage: 10})
		require.NoError(t, err)
		require.Len(t, res.Page.Records, 1)
		assert.Equal(t, "Beta", res.Page.Records[0].Field("title").ParsedValue(""))
	})

	t.Run("where on a native column", func(t *testing.T) {
		q := parse(t, "records = entries where { status: draft }")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{PerPage: 10})
		require.NoError(t, err)
		require.Len(t, res.Page.Records, 1)
		assert.Equal(t, "Gamma", res.Page.Records[0].Field("title").ParsedValue(""))
	})

	t.Run("multiple types", func(t *testing.T) {
		q := parse(t, "records = entries,pages limit 10")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{OnlyPublished: true})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Page.Total)
	})

	t.Run("returnsingle yields one record", func(t *testing.T) {
		q := parse(t, "record = entries where { slug: beta } returnsingle")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{OnlyPublished: true})
		require.NoError(t, err)
		require.NotNil(t, res.Single)
		assert.Nil(t, res.Page)
		assert.Equal(t, "Beta", res.Single.Field("title").ParsedValue(""))
	})

	t.Run("returnsingle without matches is not found", func(t *testing.T) {
		q := parse(t, "record = entries where { slug: nope } returnsingle")
		_, err := repo.Query(ctx, q, flexcms.ListOptions{})
		assert.ErrorIs(t, err, flexcms.ErrRecordNotFound)
	})

	t.Run("paging honors the requested page", func(t *testing.T) {
		q := parse(t, "records = entries limit 1 order title paging")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{OnlyPublished: true, Page: 2})
		require.NoError(t, err)
		require.Len(t, res.Page.Records, 1)
		assert.Equal(t, 2, res.Page.Page)
		assert.Equal(t, "Beta", res.Page.Records[0].Field("title").ParsedValue(""))
	})

	t.Run("printquery exposes the executed plan", func(t *testing.T) {
		q := parse(t, "records = entries limit 2 printquery")
		res, err := repo.Query(ctx, q, flexcms.ListOptions{})
		require.NoError(t, err)
		assert.Contains(t, res.QueryText, "contenttype=entries")
		assert.Contains(t, res.QueryText, "limit=2")
	})
}

func TestMedia(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m := &flexcms.Media{Filename: "kitten.jpg", Path: "2026-03", Alt: "A kitten"}
	require.NoError(t, repo.SaveMedia(ctx, m))
	require.NotEqual(t, uuid.Nil, m.ID)

	t.Run("by id", func(t *testing.T) {
		got, err := repo.MediaByID(ctx, m.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "kitten.jpg", got.Filename)
	})

	t.Run("by path-qualified filename", func(t *testing.T) {
		got, err := repo.MediaByFilename(ctx, "2026-03/kitten.jpg")
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		_, err := repo.MediaByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, flexcms.ErrMediaNotFound)
	})

	t.Run("unknown filename is not found", func(t *testing.T) {
		_, err := repo.MediaByFilename(ctx, "gone.jpg")
		assert.ErrorIs(t, err, flexcms.ErrMediaNotFound)
	})
}

func TestUsers(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("no admin user", func(t *testing.T) {
		_, err := repo.FirstAdminUser(ctx)
		assert.ErrorIs(t, err, flexcms.ErrNoAdminUser)
	})

	editor := &flexcms.User{Username: "editor"}
	admin := &flexcms.User{Username: "admin", Admin: true}
	later := &flexcms.User{Username: "later", Admin: true}
	for i, u := range []*flexcms.User{editor, admin, later} {
		u.DisplayName = fmt.Sprintf("User %d", i)
		require.NoError(t, repo.SaveUser(ctx, u))
	}

	t.Run("get user", func(t *testing.T) {
		got, err := repo.GetUser(ctx, editor.ID)
		require.NoError(t, err)
		assert.Equal(t, "editor", got.Username)
	})

	t.Run("first admin in insertion order", func(t *testing.T) {
		got, err := repo.FirstAdminUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, "admin", got.Username)
	})
}
