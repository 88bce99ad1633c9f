package flexcms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms/query"
	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

type service struct {
	repo     Repository
	set      *schema.Set
	warnings []schema.Warning
	renderer Renderer
	thumbs   Thumbnailer
	media    MediaStore
}

// Option is a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithSchema sets the parsed content type snapshot and its parse warnings
func WithSchema(set *schema.Set, warnings []schema.Warning) Option {
	return func(s *service) {
		s.set = set
		s.warnings = warnings
	}
}

// WithRenderer sets the template renderer bound to loaded fields
func WithRenderer(r Renderer) Option {
	return func(s *service) {
		s.renderer = r
	}
}

// WithThumbnailer sets the thumbnail path builder bound to loaded fields
func WithThumbnailer(t Thumbnailer) Option {
	return func(s *service) {
		s.thumbs = t
	}
}

// WithMediaStore sets the backend media files are stored in
func WithMediaStore(store MediaStore) Option {
	return func(s *service) {
		s.media = store
	}
}

// New creates a new service with the given options
func New(options ...Option) (Service, error) {
	s := &service{}
	for _, option := range options {
		option(s)
	}
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	if s.set == nil {
		return nil, fmt.Errorf("content type schema is required")
	}
	return s, nil
}

// Schema operations

func (s *service) Schema() *schema.Set {
	return s.set
}

func (s *service) SchemaWarnings() []schema.Warning {
	out := make([]schema.Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Record operations

func (s *service) CreateRecord(ctx context.Context, req CreateRecordRequest) (*Content, error) {
	def, ok := s.set.Get(req.ContentType)
	if !ok {
		return nil, ErrUnknownContentType
	}

	status := req.Status
	if status == "" {
		status = def.DefaultStatus
	}
	if !schema.ValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	locale := req.Locale
	if locale == "" {
		locale = def.DefaultLocale()
	}
	if !def.HasLocale(locale) {
		return nil, fmt.Errorf("locale %q is not enabled for %q", locale, def.Slug)
	}

	now := time.Now().UTC()
	content := &Content{
		ID:          uuid.New(),
		ContentType: def.Slug,
		AuthorID:    req.AuthorID,
		Status:      status,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	content.BindDefinition(def)

	for key := range req.Values {
		if !def.Fields.Has(key) {
			return nil, &FieldError{Field: key, Op: "create", Err: fmt.Errorf("not defined for content type %q", def.Slug)}
		}
	}

	for i, ft := range def.Fields.All() {
		f := NewField(ft)
		f.ID = uuid.New()
		f.SortOrder = i
		f.BindRenderer(s.renderer)
		f.BindThumbnailer(s.thumbs)

		if v, ok := req.Values[ft.Name]; ok {
			f.SetValue(locale, v)
		} else if ft.Default != nil {
			f.SetValue(locale, ft.Default)
		}
		content.Fields = append(content.Fields, f)
	}

	if err := s.fillRecord(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

// fillRecord applies the save-time defaults: an author when none is set
// and a publication timestamp for records entering the published status.
func (s *service) fillRecord(ctx context.Context, content *Content) error {
	if content.AuthorID == uuid.Nil {
		admin, err := s.repo.FirstAdminUser(ctx)
		if err != nil {
			return err
		}
		content.AuthorID = admin.ID
	}
	if content.Status == schema.StatusPublished && content.PublishedAt == nil {
		now := time.Now().UTC()
		content.PublishedAt = &now
	}
	return nil
}

func (s *service) SaveRecord(ctx context.Context, content *Content) error {
	if content.Definition() == nil {
		s.bindRecord(content)
	}
	if err := s.fillRecord(ctx, content); err != nil {
		return err
	}
	content.ModifiedAt = time.Now().UTC()
	if err := s.repo.SaveContent(ctx, content); err != nil {
		return &RecordError{RecordID: content.ID, Op: "save", Err: err}
	}
	return nil
}

func (s *service) GetRecord(ctx context.Context, id uuid.UUID) (*Content, error) {
	content, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.bindRecord(content)
	return content, nil
}

func (s *service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteContent(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return &RecordError{RecordID: id, Op: "delete", Err: err}
	}
	return nil
}

func (s *service) ListRecords(ctx context.Context, req ListRecordsRequest) (*RecordPage, error) {
	def, ok := s.set.Get(req.ContentType)
	if !ok {
		return nil, ErrUnknownContentType
	}

	opts := s.listOptions(def, req)
	page, err := s.repo.ListContent(ctx, def.Slug, opts)
	if err != nil {
		return nil, err
	}
	s.bindPage(page)
	return page, nil
}

// Record lookups

func (s *service) GetRecordBySlug(ctx context.Context, contentType, slug, locale string) (*Content, error) {
	def, ok := s.resolveType(contentType)
	if !ok {
		return nil, ErrUnknownContentType
	}
	content, err := s.repo.FindOneBySlug(ctx, def.Slug, slug, locale)
	if err != nil {
		return nil, err
	}
	s.bindRecord(content)
	return content, nil
}

func (s *service) LatestRecords(ctx context.Context, contentType string, amount int) ([]*Content, error) {
	def, ok := s.resolveType(contentType)
	if !ok {
		return nil, ErrUnknownContentType
	}
	if amount < 1 {
		amount = def.ListingRecords
	}
	records, err := s.repo.FindLatest(ctx, def.Slug, amount)
	if err != nil {
		return nil, err
	}
	for _, c := range records {
		s.bindRecord(c)
	}
	return records, nil
}

func (s *service) AdjacentRecord(ctx context.Context, record *Content, column string, next bool) (*Content, error) {
	if column == "" {
		column = "id"
	}
	value := adjacentValue(record, column)
	content, err := s.repo.FindAdjacent(ctx, record.ContentType, column, value, next)
	if err != nil {
		return nil, err
	}
	s.bindRecord(content)
	return content, nil
}

func (s *service) RecordsForTaxonomy(ctx context.Context, taxonomyType, slug string, req ListRecordsRequest) (*RecordPage, error) {
	opts := ListOptions{
		Page:          req.Page,
		PerPage:       req.PerPage,
		Order:         req.Order,
		Locale:        req.Locale,
		OnlyPublished: !req.IncludeUnpublished,
	}
	if opts.Order == "" {
		opts.Order = "-createdAt"
	}
	page, err := s.repo.FindForTaxonomy(ctx, taxonomyType, slug, opts)
	if err != nil {
		return nil, err
	}
	s.bindPage(page)
	return page, nil
}

func (s *service) SearchRecords(ctx context.Context, req SearchRecordsRequest) (*RecordPage, error) {
	types := req.Types
	if len(types) == 0 {
		// Viewless types opt out of search entirely.
		for _, def := range s.set.All() {
			if def.Searchable {
				types = append(types, def.Slug)
			}
		}
	}

	opts := ListOptions{Page: req.Page, PerPage: req.PerPage, OnlyPublished: true}
	if opts.PerPage < 1 {
		opts.PerPage = 20
	}
	page, err := s.repo.SearchNaive(ctx, req.Term, types, opts)
	if err != nil {
		return nil, err
	}
	s.bindPage(page)
	return page, nil
}

func (s *service) QueryRecords(ctx context.Context, directive string, opts QueryOptions) (*QueryResult, error) {
	q, err := query.Parse(directive)
	if err != nil {
		return nil, err
	}

	// Resolve each named type, accepting singular slugs the same way the
	// routing layer does.
	names := strings.Split(q.ContentType, ",")
	resolved := make([]string, 0, len(names))
	var first *schema.ContentType
	for _, name := range names {
		def, ok := s.resolveType(strings.TrimSpace(name))
		if !ok {
			return nil, ErrUnknownContentType
		}
		if first == nil {
			first = def
		}
		resolved = append(resolved, def.Slug)
	}
	q.ContentType = strings.Join(resolved, ",")

	listOpts := ListOptions{
		Page:          opts.Page,
		PerPage:       opts.PerPage,
		Locale:        opts.Locale,
		OnlyPublished: !opts.IncludeUnpublished,
	}
	if q.Order == "" {
		listOpts.Order = first.Order
	}
	if listOpts.PerPage < 1 {
		listOpts.PerPage = first.ListingRecords
	}

	result, err := s.repo.Query(ctx, q, listOpts)
	if err != nil {
		return nil, err
	}
	if result.Single != nil {
		s.bindRecord(result.Single)
	}
	if result.Page != nil {
		s.bindPage(result.Page)
	}
	return result, nil
}

// Presentation helpers

// titleFallbackFields are tried in order when a type configures no title
// format.
var titleFallbackFields = []string{"title", "name", "caption", "subject"}

func (s *service) DisplayTitle(record *Content, locale string) string {
	def := record.Definition()

	var fields []string
	if def != nil && len(def.TitleFormat) > 0 {
		fields = def.TitleFormat
	} else {
		for _, name := range titleFallbackFields {
			if record.HasField(name) {
				fields = []string{name}
				break
			}
		}
	}

	var parts []string
	for _, name := range fields {
		f := record.Field(name)
		if f == nil {
			continue
		}
		if v, ok := f.ParsedValue(locale).(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "(untitled)"
	}
	return strings.Join(parts, " ")
}

// Media operations

func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error) {
	if s.media == nil {
		return nil, fmt.Errorf("no media store configured")
	}

	now := time.Now().UTC()
	media := &Media{
		ID:        uuid.New(),
		Filename:  req.Filename,
		Path:      req.Path,
		Alt:       req.Alt,
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.media.Upload(ctx, media.FullFilename(), req.Reader); err != nil {
		return nil, fmt.Errorf("failed to store media file: %w", err)
	}
	if err := s.repo.SaveMedia(ctx, media); err != nil {
		return nil, err
	}
	return media, nil
}

func (s *service) GetMediaByID(ctx context.Context, id string) (*Media, error) {
	return s.repo.MediaByID(ctx, id)
}

func (s *service) GetMediaByFilename(ctx context.Context, filename string) (*Media, error) {
	return s.repo.MediaByFilename(ctx, filename)
}

func (s *service) DownloadMedia(ctx context.Context, media *Media) (io.ReadCloser, error) {
	if s.media == nil {
		return nil, fmt.Errorf("no media store configured")
	}
	return s.media.Download(ctx, media.FullFilename())
}

// Internal helpers

// resolveType accepts either the plural or the singular slug.
func (s *service) resolveType(slug string) (*schema.ContentType, bool) {
	if def, ok := s.set.Get(slug); ok {
		return def, true
	}
	return s.set.BySingularSlug(slug)
}

func (s *service) listOptions(def *schema.ContentType, req ListRecordsRequest) ListOptions {
	opts := ListOptions{
		Page:          req.Page,
		PerPage:       req.PerPage,
		Order:         req.Order,
		Locale:        req.Locale,
		OnlyPublished: !req.IncludeUnpublished,
	}
	if opts.Order == "" {
		opts.Order = def.Order
	}
	if opts.PerPage < 1 {
		opts.PerPage = def.ListingRecords
	}
	if opts.Locale == "" {
		opts.Locale = def.DefaultLocale()
	}
	return opts
}

// bindRecord attaches the schema definition and runtime collaborators to a
// record loaded from storage.
func (s *service) bindRecord(content *Content) {
	def, ok := s.set.Get(content.ContentType)
	if !ok {
		return
	}
	content.BindDefinition(def)
	for _, f := range content.Fields {
		if ft, ok := def.Fields.Get(f.Name); ok {
			f.Rebind(ft)
		}
		f.BindRenderer(s.renderer)
		f.BindThumbnailer(s.thumbs)
	}
}

func (s *service) bindPage(page *RecordPage) {
	for _, c := range page.Records {
		s.bindRecord(c)
	}
}

func adjacentValue(record *Content, column string) any {
	switch column {
	case "id":
		return record.ID
	case "createdAt":
		return record.CreatedAt
	case "modifiedAt":
		return record.ModifiedAt
	case "publishedAt":
		if record.PublishedAt != nil {
			return *record.PublishedAt
		}
		return record.CreatedAt
	}
	return record.ID
}
