package flexcms

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

// Content is one stored record of a content type. The definition is bound
// from the schema snapshot when the record is loaded or created; it is not
// persisted with the record.
type Content struct {
	ID            uuid.UUID      `json:"id"`
	ContentType   string         `json:"content_type"`
	AuthorID      uuid.UUID      `json:"author_id"`
	Status        schema.Status  `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ModifiedAt    time.Time      `json:"modified_at"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	DepublishedAt *time.Time     `json:"depublished_at,omitempty"`
	Fields        []*Field       `json:"fields"`
	Taxonomies    []TaxonomyLink `json:"taxonomies,omitempty"`

	definition *schema.ContentType
}

// Definition returns the bound content type definition, or nil for a
// detached record.
func (c *Content) Definition() *schema.ContentType {
	return c.definition
}

// Field returns the named field, or nil when the record does not carry it.
func (c *Content) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasField reports whether the record carries the named field.
func (c *Content) HasField(name string) bool {
	return c.Field(name) != nil
}

// Slug returns the record's slug field value for the given locale, or ""
// when absent.
func (c *Content) Slug(locale string) string {
	f := c.Field("slug")
	if f == nil {
		return ""
	}
	s, _ := f.ParsedValue(locale).(string)
	return s
}

// IsPublished reports whether the record is in the published status.
func (c *Content) IsPublished() bool {
	return c.Status == schema.StatusPublished
}

// BindDefinition attaches the schema definition the record was created
// under. Fields keep their own definitions; this only covers the record.
func (c *Content) BindDefinition(def *schema.ContentType) {
	c.definition = def
}

// Clone returns a copy with independently cloned fields and taxonomy
// links. Timestamps and the bound definition are shared by value.
func (c *Content) Clone() *Content {
	out := *c
	out.Fields = make([]*Field, len(c.Fields))
	for i, f := range c.Fields {
		out.Fields[i] = f.Clone()
	}
	out.Taxonomies = make([]TaxonomyLink, len(c.Taxonomies))
	copy(out.Taxonomies, c.Taxonomies)
	return &out
}

// TaxonomyLink attaches a record to one taxonomy term.
type TaxonomyLink struct {
	Type string `json:"type"`
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

// Media is an uploaded asset record image and file fields can link to.
type Media struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Alt       string    `json:"alt,omitempty"`
	Type      string    `json:"type,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	FileSize  int64     `json:"file_size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullFilename returns the path-qualified filename media lookups key on.
func (m *Media) FullFilename() string {
	if m.Path == "" {
		return m.Filename
	}
	return m.Path + "/" + m.Filename
}

// User is the minimal author reference records carry.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Admin       bool      `json:"admin"`
}

// RecordPage is one page of an ordered, offset-paginated record listing.
type RecordPage struct {
	Records    []*Content `json:"records"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// NewRecordPage assembles the page envelope from a full result count.
func NewRecordPage(records []*Content, page, perPage, total int) *RecordPage {
	if perPage < 1 {
		perPage = 1
	}
	totalPages := (total + perPage - 1) / perPage
	return &RecordPage{
		Records:    records,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
