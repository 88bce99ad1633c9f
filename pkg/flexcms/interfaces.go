package flexcms

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms/query"
)

// ListOptions controls listing queries.
type ListOptions struct {
	// Page is 1-based; values below 1 read as 1.
	Page    int
	PerPage int
	// Order is an unresolved sort expression, resolved with ResolveSort.
	Order string
	// Locale selects the translation slot joined for field-value sorts.
	Locale        string
	OnlyPublished bool
}

// QueryResult is the outcome of a directive query.
type QueryResult struct {
	Page *RecordPage
	// Single is set instead of Page when the query asked for one record.
	Single *Content
	// QueryText carries the backend's query representation when the
	// directive asked for it.
	QueryText string
}

// Repository defines the interface for record, media and user persistence
type Repository interface {
	// Record operations
	SaveContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	DeleteContent(ctx context.Context, id uuid.UUID) error
	ListContent(ctx context.Context, contentType string, opts ListOptions) (*RecordPage, error)

	// Lookup operations
	FindLatest(ctx context.Context, contentType string, amount int) ([]*Content, error)
	FindOneBySlug(ctx context.Context, contentType, slug, locale string) (*Content, error)
	FindOneByFieldValue(ctx context.Context, contentType, fieldName string, value any) (*Content, error)
	FindForTaxonomy(ctx context.Context, taxonomyType, slug string, opts ListOptions) (*RecordPage, error)
	// FindAdjacent returns the nearest published record strictly beyond
	// the given column value, in either direction.
	FindAdjacent(ctx context.Context, contentType, column string, value any, next bool) (*Content, error)

	// SearchNaive finds published records whose stored translations
	// contain the term as a substring, newest modified first.
	SearchNaive(ctx context.Context, term string, types []string, opts ListOptions) (*RecordPage, error)

	// Query executes a parsed directive query.
	Query(ctx context.Context, q *query.Query, opts ListOptions) (*QueryResult, error)

	// Media operations
	SaveMedia(ctx context.Context, media *Media) error
	MediaByID(ctx context.Context, id string) (*Media, error)
	MediaByFilename(ctx context.Context, filename string) (*Media, error)

	// User operations
	SaveUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// FirstAdminUser returns the earliest created admin account, or
	// ErrNoAdminUser when none exists.
	FirstAdminUser(ctx context.Context) (*User, error)
}

// MediaStore defines the interface for media file storage backends
type MediaStore interface {
	// Upload stores a file under the given key
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download reads a stored file back
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes a stored file
	Delete(ctx context.Context, objectKey string) error

	// PublicURL returns the address the file is served from
	PublicURL(ctx context.Context, objectKey string) (string, error)

	// GetObjectMeta retrieves metadata for a stored file
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about a stored media file
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}
