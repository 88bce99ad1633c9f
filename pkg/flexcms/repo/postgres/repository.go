// Package postgres implements the repository on PostgreSQL. Field values
// are stored per locale as JSONB rows; queries that sort or filter on a
// field join through the translation rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/query"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements flexcms.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// nativeColumns maps resolved sort columns onto content table columns.
// Anything not listed here sorts or filters through a field join.
var nativeColumns = map[string]string{
	"id":            "id",
	"author":        "author_id",
	"contentType":   "content_type",
	"status":        "status",
	"createdAt":     "created_at",
	"modifiedAt":    "modified_at",
	"publishedAt":   "published_at",
	"depublishedAt": "depublished_at",
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required column %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return flexcms.ErrRecordNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Record operations

func (r *Repository) SaveContent(ctx context.Context, content *flexcms.Content) error {
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}

	q := `
		INSERT INTO content (
			id, content_type, author_id, status,
			created_at, modified_at, published_at, depublished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			author_id = EXCLUDED.author_id,
			status = EXCLUDED.status,
			modified_at = EXCLUDED.modified_at,
			published_at = EXCLUDED.published_at,
			depublished_at = EXCLUDED.depublished_at`

	_, err := r.db.Exec(ctx, q,
		content.ID, content.ContentType, content.AuthorID, content.Status,
		content.CreatedAt, content.ModifiedAt, content.PublishedAt, content.DepublishedAt)
	if err != nil {
		return r.handlePostgresError("save content", err)
	}

	if err := r.saveFields(ctx, content); err != nil {
		return err
	}
	return r.saveTaxonomies(ctx, content)
}

func (r *Repository) saveFields(ctx context.Context, content *flexcms.Content) error {
	// Replace wholesale; partial field updates are not worth the
	// bookkeeping at this write volume.
	if _, err := r.db.Exec(ctx,
		`DELETE FROM content_fields WHERE content_id = $1`, content.ID); err != nil {
		return r.handlePostgresError("save content fields", err)
	}

	for _, f := range content.Fields {
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO content_fields (id, content_id, name, sort_order) VALUES ($1, $2, $3, $4)`,
			f.ID, content.ID, f.Name, f.SortOrder)
		if err != nil {
			return r.handlePostgresError("save content fields", err)
		}
		for _, locale := range f.Locales() {
			payload, err := json.Marshal(f.Translation(locale))
			if err != nil {
				return &flexcms.FieldError{Field: f.Name, Op: "save", Err: err}
			}
			_, err = r.db.Exec(ctx,
				`INSERT INTO field_translations (field_id, locale, value) VALUES ($1, $2, $3)`,
				f.ID, locale, payload)
			if err != nil {
				return r.handlePostgresError("save field translations", err)
			}
		}
	}
	return nil
}

func (r *Repository) saveTaxonomies(ctx context.Context, content *flexcms.Content) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM content_taxonomies WHERE content_id = $1`, content.ID); err != nil {
		return r.handlePostgresError("save content taxonomies", err)
	}
	for _, t := range content.Taxonomies {
		_, err := r.db.Exec(ctx,
			`INSERT INTO content_taxonomies (content_id, type, slug, name) VALUES ($1, $2, $3, $4)`,
			content.ID, t.Type, t.Slug, t.Name)
		if err != nil {
			return r.handlePostgresError("save content taxonomies", err)
		}
	}
	return nil
}

const contentColumnsSQL = `c.id, c.content_type, c.author_id, c.status,
	c.created_at, c.modified_at, c.published_at, c.depublished_at`

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*flexcms.Content, error) {
	q := `SELECT ` + contentColumnsSQL + ` FROM content c WHERE c.id = $1`

	content, err := scanContent(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flexcms.ErrRecordNotFound
		}
		return nil, r.handlePostgresError("get content", err)
	}
	if err := r.loadRecordDetails(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return flexcms.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) ListContent(ctx context.Context, contentType string, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	b := newQueryBuilder()
	b.where("c.content_type = "+b.arg(contentType))
	if opts.OnlyPublished {
		b.where("c.status = "+b.arg("published"))
	}
	b.orderBy(opts.Order, opts.Locale)
	return r.runPaged(ctx, "list content", b, opts)
}

// Lookup operations

func (r *Repository) FindLatest(ctx context.Context, contentType string, amount int) ([]*flexcms.Content, error) {
	b := newQueryBuilder()
	b.where("c.content_type = "+b.arg(contentType))
	b.orderBy("-createdAt", "")
	q := b.selectSQL() + fmt.Sprintf(" LIMIT %d", amount)

	records, err := r.queryRecords(ctx, "find latest", q, b.args...)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Repository) FindOneBySlug(ctx context.Context, contentType, slug, locale string) (*flexcms.Content, error) {
	return r.findOneByField(ctx, contentType, "slug", slug, locale)
}

func (r *Repository) FindOneByFieldValue(ctx context.Context, contentType, fieldName string, value any) (*flexcms.Content, error) {
	return r.findOneByField(ctx, contentType, fieldName, fmt.Sprintf("%v", value), "")
}

func (r *Repository) findOneByField(ctx context.Context, contentType, fieldName, value, locale string) (*flexcms.Content, error) {
	b := newQueryBuilder()
	b.where("c.content_type = "+b.arg(contentType))
	b.whereField(fieldName, value, locale, false)
	q := b.selectSQL() + " LIMIT 1"

	records, err := r.queryRecords(ctx, "find one by field", q, b.args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, flexcms.ErrRecordNotFound
	}
	return records[0], nil
}

func (r *Repository) FindForTaxonomy(ctx context.Context, taxonomyType, slug string, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	b := newQueryBuilder()
	b.where(fmt.Sprintf(
		`EXISTS (SELECT 1 FROM content_taxonomies ct
		 WHERE ct.content_id = c.id AND ct.type = %s AND ct.slug = %s)`,
		b.arg(taxonomyType), b.arg(slug)))
	if opts.OnlyPublished {
		b.where("c.status = "+b.arg("published"))
	}
	b.orderBy(opts.Order, opts.Locale)
	return r.runPaged(ctx, "find for taxonomy", b, opts)
}

func (r *Repository) FindAdjacent(ctx context.Context, contentType, column string, value any, next bool) (*flexcms.Content, error) {
	col, ok := nativeColumns[column]
	if !ok {
		return nil, fmt.Errorf("adjacency requires a content column, got %q", column)
	}

	op, dir := "<", "DESC"
	if next {
		op, dir = ">", "ASC"
	}
	q := fmt.Sprintf(`SELECT %s FROM content c
		WHERE c.content_type = $1 AND c.status = 'published' AND c.%s %s $2
		ORDER BY c.%s %s LIMIT 1`, contentColumnsSQL, col, op, col, dir)

	content, err := scanContent(r.db.QueryRow(ctx, q, contentType, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flexcms.ErrRecordNotFound
		}
		return nil, r.handlePostgresError("find adjacent", err)
	}
	if err := r.loadRecordDetails(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

// SearchNaive runs the two-phase substring search: collect candidate ids
// from the translation rows, then page through the matching published
// records newest modified first.
func (r *Repository) SearchNaive(ctx context.Context, term string, types []string, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT f.content_id
		FROM content_fields f
		JOIN field_translations t ON t.field_id = f.id
		WHERE t.value::text ILIKE $1`,
		"%"+term+"%")
	if err != nil {
		return nil, r.handlePostgresError("search", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, r.handlePostgresError("search", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("search", err)
	}
	if len(ids) == 0 {
		return flexcms.NewRecordPage(nil, opts.Page, opts.PerPage, 0), nil
	}

	b := newQueryBuilder()
	b.where("c.id = ANY("+b.arg(ids)+")")
	b.where("c.status = "+b.arg("published"))
	if len(types) > 0 {
		b.where("c.content_type = ANY("+b.arg(types)+")")
	}
	b.orderBy("-modifiedAt", "")
	return r.runPaged(ctx, "search", b, opts)
}

// Query executes a parsed directive query.
func (r *Repository) Query(ctx context.Context, q *query.Query, opts flexcms.ListOptions) (*flexcms.QueryResult, error) {
	b := newQueryBuilder()

	types := strings.Split(q.ContentType, ",")
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}
	if len(types) == 1 {
		b.where("c.content_type = "+b.arg(types[0]))
	} else {
		b.where("c.content_type = ANY("+b.arg(types)+")")
	}
	if opts.OnlyPublished {
		b.where("c.status = "+b.arg("published"))
	}

	for key, value := range q.Where {
		text := fmt.Sprintf("%v", value)
		wildcard := strings.Contains(text, "%")
		if col, ok := nativeColumns[key]; ok {
			if wildcard {
				b.where(fmt.Sprintf("c.%s::text ILIKE %s", col, b.arg(text)))
			} else {
				b.where(fmt.Sprintf("c.%s::text = %s", col, b.arg(text)))
			}
			continue
		}
		b.whereField(key, text, opts.Locale, wildcard)
	}

	order := q.Order
	if order == "" {
		order = opts.Order
	}
	b.orderBy(order, opts.Locale)

	result := &flexcms.QueryResult{}

	if q.ReturnSingle {
		sql := b.selectSQL() + " LIMIT 1"
		if q.PrintQuery {
			result.QueryText = describeSQL(sql, b.args)
		}
		records, err := r.queryRecords(ctx, "directive query", sql, b.args...)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, flexcms.ErrRecordNotFound
		}
		result.Single = records[0]
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
	if q.PrintQuery {
		result.QueryText = describeSQL(b.selectSQL(), b.args)
	}
	page, err := r.runPaged(ctx, "directive query", b, pageOpts)
	if err != nil {
		return nil, err
	}
	result.Page = page
	return result, nil
}

// Media operations

func (r *Repository) SaveMedia(ctx context.Context, media *flexcms.Media) error {
	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	q := `
		INSERT INTO media (
			id, filename, path, alt, type, width, height, file_size, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename, path = EXCLUDED.path, alt = EXCLUDED.alt,
			type = EXCLUDED.type, width = EXCLUDED.width, height = EXCLUDED.height,
			file_size = EXCLUDED.file_size, updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, q,
		media.ID, media.Filename, media.Path, media.Alt, media.Type,
		media.Width, media.Height, media.FileSize, media.CreatedAt, media.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("save media", err)
	}
	return nil
}

const mediaColumnsSQL = `id, filename, path, alt, type, width, height, file_size, created_at, updated_at`

func (r *Repository) MediaByID(ctx context.Context, id string) (*flexcms.Media, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, flexcms.ErrMediaNotFound
	}
	return r.scanMedia(r.db.QueryRow(ctx,
		`SELECT `+mediaColumnsSQL+` FROM media WHERE id = $1`, parsed))
}

func (r *Repository) MediaByFilename(ctx context.Context, filename string) (*flexcms.Media, error) {
	return r.scanMedia(r.db.QueryRow(ctx,
		`SELECT `+mediaColumnsSQL+` FROM media
		 WHERE CASE WHEN path = '' THEN filename ELSE path || '/' || filename END = $1
		 OR filename = $1 LIMIT 1`, filename))
}

func (r *Repository) scanMedia(row pgx.Row) (*flexcms.Media, error) {
	var m flexcms.Media
	err := row.Scan(&m.ID, &m.Filename, &m.Path, &m.Alt, &m.Type,
		&m.Width, &m.Height, &m.FileSize, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flexcms.ErrMediaNotFound
		}
		return nil, r.handlePostgresError("get media", err)
	}
	return &m, nil
}

// User operations

func (r *Repository) SaveUser(ctx context.Context, user *flexcms.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	q := `
		INSERT INTO users (id, username, display_name, admin, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			admin = EXCLUDED.admin`

	_, err := r.db.Exec(ctx, q, user.ID, user.Username, user.DisplayName, user.Admin)
	if err != nil {
		return r.handlePostgresError("save user", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*flexcms.User, error) {
	var u flexcms.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, display_name, admin FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Admin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flexcms.ErrRecordNotFound
		}
		return nil, r.handlePostgresError("get user", err)
	}
	return &u, nil
}

func (r *Repository) FirstAdminUser(ctx context.Context) (*flexcms.User, error) {
	var u flexcms.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, display_name, admin FROM users
		 WHERE admin ORDER BY created_at ASC LIMIT 1`).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Admin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flexcms.ErrNoAdminUser
		}
		return nil, r.handlePostgresError("first admin user", err)
	}
	return &u, nil
}

// Row loading helpers

func scanContent(row pgx.Row) (*flexcms.Content, error) {
	var c flexcms.Content
	err := row.Scan(&c.ID, &c.ContentType, &c.AuthorID, &c.Status,
		&c.CreatedAt, &c.ModifiedAt, &c.PublishedAt, &c.DepublishedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// loadRecordDetails attaches field and taxonomy rows to a scanned record.
func (r *Repository) loadRecordDetails(ctx context.Context, content *flexcms.Content) error {
	rows, err := r.db.Query(ctx, `
		SELECT f.id, f.name, f.sort_order, t.locale, t.value
		FROM content_fields f
		LEFT JOIN field_translations t ON t.field_id = f.id
		WHERE f.content_id = $1
		ORDER BY f.sort_order, f.name, t.locale`, content.ID)
	if err != nil {
		return r.handlePostgresError("load fields", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*flexcms.Field)
	for rows.Next() {
		var (
			fieldID   uuid.UUID
			name      string
			sortOrder int
			locale    *string
			payload   []byte
		)
		if err := rows.Scan(&fieldID, &name, &sortOrder, &locale, &payload); err != nil {
			return r.handlePostgresError("load fields", err)
		}
		f, seen := byID[fieldID]
		if !seen {
			f = flexcms.NewStoredField(fieldID, name, sortOrder)
			byID[fieldID] = f
			content.Fields = append(content.Fields, f)
		}
		if locale == nil {
			continue
		}
		var value any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &value); err != nil {
				return &flexcms.FieldError{Field: name, Op: "load", Err: err}
			}
		}
		f.SetTranslation(*locale, value)
	}
	if err := rows.Err(); err != nil {
		return r.handlePostgresError("load fields", err)
	}

	taxRows, err := r.db.Query(ctx, `
		SELECT type, slug, name FROM content_taxonomies WHERE content_id = $1`, content.ID)
	if err != nil {
		return r.handlePostgresError("load taxonomies", err)
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var t flexcms.TaxonomyLink
		if err := taxRows.Scan(&t.Type, &t.Slug, &t.Name); err != nil {
			return r.handlePostgresError("load taxonomies", err)
		}
		content.Taxonomies = append(content.Taxonomies, t)
	}
	return taxRows.Err()
}

func (r *Repository) queryRecords(ctx context.Context, operation, sql string, args ...any) ([]*flexcms.Content, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var records []*flexcms.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		records = append(records, content)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}

	for _, content := range records {
		if err := r.loadRecordDetails(ctx, content); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *Repository) runPaged(ctx context.Context, operation string, b *queryBuilder, opts flexcms.ListOptions) (*flexcms.RecordPage, error) {
	var total int
	if err := r.db.QueryRow(ctx, b.countSQL(), b.args...).Scan(&total); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 20
	}

	sql := b.selectSQL() + fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)
	records, err := r.queryRecords(ctx, operation, sql, b.args...)
	if err != nil {
		return nil, err
	}
	return flexcms.NewRecordPage(records, page, perPage, total), nil
}

func describeSQL(sql string, args []any) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(strings.Fields(sql), " "))
	for i, arg := range args {
		fmt.Fprintf(&sb, " $%d=%v", i+1, arg)
	}
	return sb.String()
}
