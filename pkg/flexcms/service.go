package flexcms

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

// Service defines the main interface for the flex-cms library
type Service interface {
	// Schema operations
	Schema() *schema.Set
	SchemaWarnings() []schema.Warning

	// Record operations
	CreateRecord(ctx context.Context, req CreateRecordRequest) (*Content, error)
	SaveRecord(ctx context.Context, content *Content) error
	GetRecord(ctx context.Context, id uuid.UUID) (*Content, error)
	DeleteRecord(ctx context.Context, id uuid.UUID) error
	ListRecords(ctx context.Context, req ListRecordsRequest) (*RecordPage, error)

	// Record lookups
	GetRecordBySlug(ctx context.Context, contentType, slug, locale string) (*Content, error)
	LatestRecords(ctx context.Context, contentType string, amount int) ([]*Content, error)
	AdjacentRecord(ctx context.Context, record *Content, column string, next bool) (*Content, error)
	RecordsForTaxonomy(ctx context.Context, taxonomyType, slug string, req ListRecordsRequest) (*RecordPage, error)
	SearchRecords(ctx context.Context, req SearchRecordsRequest) (*RecordPage, error)

	// QueryRecords parses and executes a content selection directive such
	// as `entries = entries where {status: published} limit 5`.
	QueryRecords(ctx context.Context, directive string, opts QueryOptions) (*QueryResult, error)

	// Presentation helpers
	DisplayTitle(record *Content, locale string) string

	// Media operations
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error)
	GetMediaByID(ctx context.Context, id string) (*Media, error)
	GetMediaByFilename(ctx context.Context, filename string) (*Media, error)
	DownloadMedia(ctx context.Context, media *Media) (io.ReadCloser, error)
}

// CreateRecordRequest contains parameters for creating a record
type CreateRecordRequest struct {
	ContentType string
	AuthorID    uuid.UUID
	Status      schema.Status
	// Locale receives the initial field values; empty selects the
	// definition's default locale.
	Locale string
	Values map[string]any
}

// ListRecordsRequest contains parameters for listing records
type ListRecordsRequest struct {
	ContentType string
	Page        int
	PerPage     int
	// Order overrides the definition's configured order when set.
	Order              string
	Locale             string
	IncludeUnpublished bool
}

// SearchRecordsRequest contains parameters for naive content search
type SearchRecordsRequest struct {
	Term string
	// Types restricts the search; empty searches every searchable type.
	Types   []string
	Page    int
	PerPage int
}

// QueryOptions carries the request context a directive executes under
type QueryOptions struct {
	Locale             string
	Page               int
	PerPage            int
	IncludeUnpublished bool
}

// UploadMediaRequest contains parameters for storing an uploaded file
type UploadMediaRequest struct {
	Filename string
	Path     string
	Alt      string
	Type     string
	Reader   io.Reader
}
