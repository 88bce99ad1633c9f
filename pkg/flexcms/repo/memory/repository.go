// Package memory provides an in-memory repository, primarily for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/query"
)

// Repository implements flexcms.Repository using in-memory storage
type Repository struct {
	mu              sync.RWMutex
	contents        map[uuid.UUID]*flexcms.Content
	contentOrder    []uuid.UUID
	media           map[uuid.UUID]*flexcms.Media
	mediaByFilename map[string]uuid.UUID
	users           map[uuid.UUID]*flexcms.User
	userOrder       []uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		contents:        make(map[uuid.UUID]*flexcms.Content),
		media:           make(map[uuid.UUID]*flexcms.Media),
		mediaByFilename: make(map[string]uuid.UUID),
		users:           make(map[uuid.UUID]*flexcms.User),
	}
}

// Record operations

func (r *Repository) SaveContent(ctx context.Context, content *flexcms.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	if _, exists := r.contents[content.ID]; !exists {
		r.contentOrder = append(r.contentOrder, content.ID)
	}
	// Store a copy to avoid external modifications
	r.contents[content.ID] = content.Clone()

	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*flexcms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, flexcms.ErrRecordNotFound
	}
	return content.Clone(), nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[id]; !exists {
		return flexcms.ErrRecordNotFound
	}
	delete(r.contents, id)
	for i, cid := range r.contentOrder {
		if cid == id {
			r.contentOrder = append(r.contentOrder[:i], r.contentOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Repository) ListContent(ctx context.Context, contentType string, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.collect(func(c *flexcms.Content) bool {
		if c.ContentType != contentType {
			return false
		}
		return !opts.OnlyPublished || c.IsPublished()
	})

	sortRecords(matches, opts.Order, opts.Locale)
	return paginate(matches, opts), nil
}

// Lookup operations

func (r *Repository) FindLatest(ctx context.Context, contentType string, amount int) ([]*flexcms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.collect(func(c *flexcms.Content) bool {
		return c.ContentType == contentType
	})
	sortRecords(matches, "-createdAt", "")
	if amount > 0 && len(matches) > amount {
		matches = matches[:amount]
	}
	return matches, nil
}

func (r *Repository) FindOneBySlug(ctx context.Context, contentType, slug, locale string) (*flexcms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.ordered() {
		if c.ContentType != contentType {
			continue
		}
		if c.Slug(locale) == slug {
			return c.Clone(), nil
		}
	}
	return nil, flexcms.ErrRecordNotFound
}

func (r *Repository) FindOneByFieldValue(ctx context.Context, contentType, fieldName string, value any) (*flexcms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := valueString(value)
	for _, c := range r.ordered() {
		if c.ContentType != contentType {
			continue
		}
		if fieldMatches(c, fieldName, want) {
			return c.Clone(), nil
		}
	}
	return nil, flexcms.ErrRecordNotFound
}

func (r *Repository) FindForTaxonomy(ctx context.Context, taxonomyType, slug string, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.collect(func(c *flexcms.Content) bool {
		if opts.OnlyPublished && !c.IsPublished() {
			return false
		}
		for _, t := range c.Taxonomies {
			if t.Type == taxonomyType && t.Slug == slug {
				return true
			}
		}
		return false
	})

	sortRecords(matches, opts.Order, opts.Locale)
	return paginate(matches, opts), nil
}

func (r *Repository) FindAdjacent(ctx context.Context, contentType, column string, value any, next bool) (*flexcms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pivot := valueString(value)
	var best *flexcms.Content
	var bestKey string

	for _, c := range r.ordered() {
		if c.ContentType != contentType || !c.IsPublished() {
			continue
		}
		key := nativeSortKey(c, column)
		if next {
			if key <= pivot {
				continue
			}
			if best == nil || key < bestKey {
				best, bestKey = c, key
			}
		} else {
			if key >= pivot {
				continue
			}
			if best == nil || key > bestKey {
				best, bestKey = c, key
			}
		}
	}
	if best == nil {
		return nil, flexcms.ErrRecordNotFound
	}
	return best.Clone(), nil
}

// SearchNaive runs the two-phase substring search: first gather the ids of
// records with a matching stored translation, then page through the full
// published rows newest modified first.
func (r *Repository) SearchNaive(ctx context.Context, term string, types []string, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term = strings.ToLower(term)
	matched := make(map[uuid.UUID]bool)
	for _, c := range r.ordered() {
		for _, f := range c.Fields {
			if translationContains(f, term) {
				matched[c.ID] = true
				break
			}
		}
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	matches := r.collect(func(c *flexcms.Content) bool {
		if !matched[c.ID] || !c.IsPublished() {
			return false
		}
		return len(typeSet) == 0 || typeSet[c.ContentType]
	})

	sortRecords(matches, "-modifiedAt", "")
	return paginate(matches, opts), nil
}

// Query executes a parsed directive query against the stored records.
func (r *Repository) Query(ctx context.Context, q *query.Query, opts flexcms.ListOptions) (*flexcms.QueryResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := splitTypes(q.ContentType)
	matches := r.collect(func(c *flexcms.Content) bool {
		if !containsString(types, c.ContentType) {
			return false
		}
		if opts.OnlyPublished && !c.IsPublished() {
			return false
		}
		return whereMatches(c, q.Where, opts.Locale)
	})

	order := q.Order
	if order == "" {
		order = opts.Order
	}
	sortRecords(matches, order, opts.Locale)

	result := &flexcms.QueryResult{}
	if q.PrintQuery {
		result.QueryText = describeQuery(q, opts)
	}

	if q.ReturnSingle {
		if len(matches) == 0 {
			return nil, flexcms.ErrRecordNotFound
		}
		result.Single = matches[0]
		return result, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = opts.PerPage
	}
	pageOpts := flexcms.ListOptions{Page: 1, PerPage: limit}
	if q.Paging {
		pageOpts.Page = opts.Page
		if q.Page > 0 {
			pageOpts.Page = q.Page
		}
	}
	result.Page = paginate(matches, pageOpts)
	return result, nil
}

// Media operations

func (r *Repository) SaveMedia(ctx context.Context, media *flexcms.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	mediaCopy := *media
	r.media[media.ID] = &mediaCopy
	r.mediaByFilename[media.FullFilename()] = media.ID
	return nil
}

func (r *Repository) MediaByID(ctx context.Context, id string) (*flexcms.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, flexcms.ErrMediaNotFound
	}
	media, exists := r.media[parsed]
	if !exists {
		return nil, flexcms.ErrMediaNotFound
	}
	mediaCopy := *media
	return &mediaCopy, nil
}

func (r *Repository) MediaByFilename(ctx context.Context, filename string) (*flexcms.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.mediaByFilename[filename]
	if !exists {
		return nil, flexcms.ErrMediaNotFound
	}
	mediaCopy := *r.media[id]
	return &mediaCopy, nil
}

// User operations

func (r *Repository) SaveUser(ctx context.Context, user *flexcms.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := r.users[user.ID]; !exists {
		r.userOrder = append(r.userOrder, user.ID)
	}
	userCopy := *user
	r.users[user.ID] = &userCopy
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*flexcms.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, flexcms.ErrRecordNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *Repository) FirstAdminUser(ctx context.Context) (*flexcms.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.userOrder {
		if u := r.users[id]; u.Admin {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, flexcms.ErrNoAdminUser
}

// Internal helpers. Callers hold at least the read lock.

// collect returns clones of every stored record matching the predicate, in
// insertion order.
func (r *Repository) collect(match func(*flexcms.Content) bool) []*flexcms.Content {
	var out []*flexcms.Content
	for _, id := range r.contentOrder {
		c := r.contents[id]
		if match(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (r *Repository) ordered() []*flexcms.Content {
	out := make([]*flexcms.Content, 0, len(r.contentOrder))
	for _, id := range r.contentOrder {
		out = append(out, r.contents[id])
	}
	return out
}

func sortRecords(records []*flexcms.Content, order, locale string) {
	if order == "" {
		return
	}
	spec := flexcms.ResolveSort(order)
	sort.SliceStable(records, func(i, j int) bool {
		var ki, kj string
		if spec.ByField {
			ki = fieldSortKey(records[i], spec.Column, locale)
			kj = fieldSortKey(records[j], spec.Column, locale)
		} else {
			ki = nativeSortKey(records[i], spec.Column)
			kj = nativeSortKey(records[j], spec.Column)
		}
		if spec.Descending {
			return ki > kj
		}
		return ki < kj
	})
}

// sortTimeFormat is a fixed-width RFC 3339 layout, so lexical order on the
// keys equals chronological order.
const sortTimeFormat = "2006-01-02T15:04:05.000000000Z"

// nativeSortKey produces a lexically ordered key for a content row column.
func nativeSortKey(c *flexcms.Content, column string) string {
	switch column {
	case "id":
		return c.ID.String()
	case "author":
		return c.AuthorID.String()
	case "contentType":
		return c.ContentType
	case "status":
		return string(c.Status)
	case "createdAt":
		return c.CreatedAt.UTC().Format(sortTimeFormat)
	case "modifiedAt":
		return c.ModifiedAt.UTC().Format(sortTimeFormat)
	case "publishedAt":
		if c.PublishedAt == nil {
			return ""
		}
		return c.PublishedAt.UTC().Format(sortTimeFormat)
	case "depublishedAt":
		if c.DepublishedAt == nil {
			return ""
		}
		return c.DepublishedAt.UTC().Format(sortTimeFormat)
	}
	return ""
}

func fieldSortKey(c *flexcms.Content, fieldName, locale string) string {
	f := c.Field(fieldName)
	if f == nil {
		return ""
	}
	return strings.ToLower(valueString(f.ParsedValue(locale)))
}

func fieldMatches(c *flexcms.Content, fieldName, want string) bool {
	f := c.Field(fieldName)
	if f == nil {
		return false
	}
	for _, locale := range f.Locales() {
		if valueString(f.ParsedValue(locale)) == want {
			return true
		}
	}
	return false
}

// whereMatches evaluates a directive where clause. Keys name either native
// columns or content fields; a value containing "%" matches as a substring.
func whereMatches(c *flexcms.Content, where map[string]any, locale string) bool {
	for key, want := range where {
		var got string
		if isNative(key) {
			got = nativeWhereValue(c, key)
		} else {
			f := c.Field(key)
			if f == nil {
				return false
			}
			got = valueString(f.ParsedValue(locale))
		}

		wantStr := valueString(want)
		if strings.Contains(wantStr, "%") {
			needle := strings.ToLower(strings.ReplaceAll(wantStr, "%", ""))
			if !strings.Contains(strings.ToLower(got), needle) {
				return false
			}
		} else if got != wantStr {
			return false
		}
	}
	return true
}

func nativeWhereValue(c *flexcms.Content, column string) string {
	switch column {
	case "id":
		return c.ID.String()
	case "author":
		return c.AuthorID.String()
	case "status":
		return string(c.Status)
	case "contentType":
		return c.ContentType
	}
	return nativeSortKey(c, column)
}

func isNative(name string) bool {
	for _, col := range flexcms.ContentColumns {
		if col == name {
			return true
		}
	}
	return false
}

func translationContains(f *flexcms.Field, lowerTerm string) bool {
	for _, locale := range f.Locales() {
		v := valueString(f.ParsedValue(locale))
		if v != "" && strings.Contains(strings.ToLower(v), lowerTerm) {
			return true
		}
	}
	return false
}

func paginate(records []*flexcms.Content, opts flexcms.ListOptions) *flexcms.RecordPage {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = len(records)
		if perPage < 1 {
			perPage = 1
		}
	}

	total := len(records)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return flexcms.NewRecordPage(records[start:end], page, perPage, total)
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		// Match the key format nativeSortKey produces so timestamp pivots
		// compare correctly.
		return t.UTC().Format(sortTimeFormat)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(sortTimeFormat)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func splitTypes(expr string) []string {
	parts := strings.Split(expr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func describeQuery(q *query.Query, opts flexcms.ListOptions) string {
	var sb strings.Builder
	sb.WriteString("memory scan contenttype=" + q.ContentType)
	if len(q.Where) > 0 {
		keys := make([]string, 0, len(q.Where))
		for k := range q.Where {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " where %s=%v", k, q.Where[k])
		}
	}
	if q.Order != "" {
		sb.WriteString(" order=" + q.Order)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " limit=%d", q.Limit)
	}
	if q.Paging {
		fmt.Fprintf(&sb, " page=%d", opts.Page)
	}
	return sb.String()
}
