package flexcms_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/repo/memory"
	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

const testSchemaDoc = `
entries:
    name: Entries
    singular_name: Entry
    listing_records: 5
    order: title
    fields:
        title: {type: text}
        teaser: {type: textarea}
        color:
            type: select
            values: [red, green]
            default: red
pages:
    name: Pages
    singular_name: Page
    viewless: true
    fields:
        title: {type: text}
people:
    name: People
    singular_name: Person
    fields:
        firstname: {type: text}
        lastname: {type: text}
        slug:
            type: slug
            uses: [firstname, lastname]
`

func setupTestService(t *testing.T) (flexcms.Service, *memory.Repository) {
	t.Helper()

	var raw schema.OrderedMap
	require.NoError(t, yaml.Unmarshal([]byte(testSchemaDoc), &raw))
	settings := schema.Settings{ListingRecords: 10, RecordsPerPage: 20, AcceptFileTypes: []string{"jpg", "png"}}
	result, err := schema.NewParser(settings, nil).Parse(&raw)
	require.NoError(t, err)

	repo := memory.New()
	require.NoError(t, repo.SaveUser(context.Background(), &flexcms.User{Username: "admin", Admin: true}))

	svc, err := flexcms.New(
		flexcms.WithRepository(repo),
		flexcms.WithSchema(result.Set, result.Warnings),
	)
	require.NoError(t, err)
	return svc, repo
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Run("missing repository", func(t *testing.T) {
		_, err := flexcms.New()
		assert.ErrorIs(t, err, flexcms.ErrNoRepository)
	})

	t.Run("missing schema", func(t *testing.T) {
		_, err := flexcms.New(flexcms.WithRepository(memory.New()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema is required")
	})
}

func TestCreateRecord(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	t.Run("applies definition defaults", func(t *testing.T) {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Values:      map[string]any{"title": "Hello"},
		})
		require.NoError(t, err)

		assert.Equal(t, schema.StatusPublished, record.Status)
		assert.NotNil(t, record.PublishedAt)
		assert.NotEqual(t, uuid.Nil, record.AuthorID)
		require.NotNil(t, record.Definition())
		assert.Equal(t, "entries", record.Definition().Slug)

		// Fields come in declaration order with the declared defaults.
		assert.Equal(t, "Hello", record.Field("title").ParsedValue(""))
		assert.Equal(t, "red", record.Field("color").ParsedValue(""))
		assert.True(t, record.HasField("slug"))
	})

	t.Run("unknown content type", func(t *testing.T) {
		_, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{ContentType: "widgets"})
		assert.ErrorIs(t, err, flexcms.ErrUnknownContentType)
	})

	t.Run("unknown value key fails", func(t *testing.T) {
		_, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Values:      map[string]any{"bogus": "x"},
		})
		require.Error(t, err)
		var fieldErr *flexcms.FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "bogus", fieldErr.Field)
	})

	t.Run("invalid status fails", func(t *testing.T) {
		_, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Status:      "scheduled",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid status")
	})

	t.Run("draft gets no publication timestamp", func(t *testing.T) {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Status:      schema.StatusDraft,
		})
		require.NoError(t, err)
		assert.Nil(t, record.PublishedAt)
	})
}

func TestCreateRecordWithoutAdminUser(t *testing.T) {
	var raw schema.OrderedMap
	require.NoError(t, yaml.Unmarshal([]byte(testSchemaDoc), &raw))
	result, err := schema.NewParser(schema.Settings{ListingRecords: 10, RecordsPerPage: 20}, nil).Parse(&raw)
	require.NoError(t, err)

	svc, err := flexcms.New(
		flexcms.WithRepository(memory.New()),
		flexcms.WithSchema(result.Set, result.Warnings),
	)
	require.NoError(t, err)

	_, err = svc.CreateRecord(context.Background(), flexcms.CreateRecordRequest{ContentType: "entries"})
	assert.ErrorIs(t, err, flexcms.ErrNoAdminUser)
}

func TestSaveAndGetRecord(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
		ContentType: "entries",
		Values:      map[string]any{"title": "Hello", "slug": "hello"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.SaveRecord(ctx, record))

	got, err := svc.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Field("title").ParsedValue(""))

	// Loaded records come back bound to their definition.
	require.NotNil(t, got.Definition())
	assert.Equal(t, "entries", got.Definition().Slug)
	assert.Equal(t, schema.KindText, got.Field("title").Definition().Kind)

	bySlug, err := svc.GetRecordBySlug(ctx, "entry", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, record.ID, bySlug.ID)
}

func TestListRecordsUsesDefinitionDefaults(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for _, title := range []string{"Cherry", "Apple", "Banana"} {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Values:      map[string]any{"title": title},
		})
		require.NoError(t, err)
		require.NoError(t, svc.SaveRecord(ctx, record))
	}

	page, err := svc.ListRecords(ctx, flexcms.ListRecordsRequest{ContentType: "entries"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 5, page.PerPage)
	// The declared order sorts on the title field.
	assert.Equal(t, "Apple", page.Records[0].Field("title").ParsedValue(""))
}

func TestSearchRecordsSkipsViewlessTypes(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for _, ct := range []string{"entries", "pages"} {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: ct,
			Values:      map[string]any{"title": "Shared needle"},
		})
		require.NoError(t, err)
		require.NoError(t, svc.SaveRecord(ctx, record))
	}

	page, err := svc.SearchRecords(ctx, flexcms.SearchRecordsRequest{Term: "needle"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "entries", page.Records[0].ContentType)
}

func TestQueryRecords(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Values:      map[string]any{"title": title},
		})
		require.NoError(t, err)
		require.NoError(t, svc.SaveRecord(ctx, record))
	}

	t.Run("singular slug resolves to the type", func(t *testing.T) {
		res, err := svc.QueryRecords(ctx, "records = entry limit 10", flexcms.QueryOptions{})
		require.NoError(t, err)
		require.NotNil(t, res.Page)
		assert.Equal(t, 3, res.Page.Total)
	})

	t.Run("definition order applies when unordered", func(t *testing.T) {
		res, err := svc.QueryRecords(ctx, "records = entries", flexcms.QueryOptions{})
		require.NoError(t, err)
		require.NotEmpty(t, res.Page.Records)
		assert.Equal(t, "Alpha", res.Page.Records[0].Field("title").ParsedValue(""))
	})

	t.Run("returnsingle", func(t *testing.T) {
		res, err := svc.QueryRecords(ctx, "record = entries where { title: Beta } returnsingle", flexcms.QueryOptions{})
		require.NoError(t, err)
		require.NotNil(t, res.Single)
		assert.Equal(t, "Beta", res.Single.Field("title").ParsedValue(""))
		require.NotNil(t, res.Single.Definition())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.QueryRecords(ctx, "records = widgets", flexcms.QueryOptions{})
		assert.ErrorIs(t, err, flexcms.ErrUnknownContentType)
	})

	t.Run("malformed directive", func(t *testing.T) {
		_, err := svc.QueryRecords(ctx, "records entries", flexcms.QueryOptions{})
		assert.Error(t, err)
	})
}

func TestDisplayTitle(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	t.Run("declared title format joins its fields", func(t *testing.T) {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "people",
			Values:      map[string]any{"firstname": "Ada", "lastname": "Lovelace"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", svc.DisplayTitle(record, ""))
	})

	t.Run("falls back to the title field", func(t *testing.T) {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Values:      map[string]any{"title": "Hello"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello", svc.DisplayTitle(record, ""))
	})

	t.Run("untitled placeholder", func(t *testing.T) {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{ContentType: "pages"})
		require.NoError(t, err)
		assert.Equal(t, "(untitled)", svc.DisplayTitle(record, ""))
	})
}

func TestAdjacentRecord(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	var records []*flexcms.Content
	for _, title := range []string{"One", "Two", "Three"} {
		record, err := svc.CreateRecord(ctx, flexcms.CreateRecordRequest{
			ContentType: "entries",
			Values:      map[string]any{"title": title},
		})
		require.NoError(t, err)
		require.NoError(t, svc.SaveRecord(ctx, record))
		records = append(records, record)
	}

	next, err := svc.AdjacentRecord(ctx, records[0], "createdAt", true)
	require.NoError(t, err)
	assert.Equal(t, records[1].ID, next.ID)

	prev, err := svc.AdjacentRecord(ctx, records[2], "createdAt", false)
	require.NoError(t, err)
	assert.Equal(t, records[1].ID, prev.ID)
}
