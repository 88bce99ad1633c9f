package postgres

import "context"

// ddl holds the table definitions in dependency order.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS content (
		id UUID PRIMARY KEY,
		content_type VARCHAR(191) NOT NULL,
		author_id UUID,
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		modified_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		depublished_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS content_type_status_idx ON content (content_type, status)`,
	`CREATE TABLE IF NOT EXISTS content_fields (
		id UUID PRIMARY KEY,
		content_id UUID NOT NULL REFERENCES content(id) ON DELETE CASCADE,
		name VARCHAR(191) NOT NULL,
		sort_order INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS content_fields_content_idx ON content_fields (content_id, name)`,
	`CREATE TABLE IF NOT EXISTS field_translations (
		field_id UUID NOT NULL REFERENCES content_fields(id) ON DELETE CASCADE,
		locale VARCHAR(10) NOT NULL DEFAULT '',
		value JSONB,
		PRIMARY KEY (field_id, locale)
	)`,
	`CREATE TABLE IF NOT EXISTS content_taxonomies (
		content_id UUID NOT NULL REFERENCES content(id) ON DELETE CASCADE,
		type VARCHAR(191) NOT NULL,
		slug VARCHAR(191) NOT NULL,
		name VARCHAR(191) NOT NULL DEFAULT '',
		PRIMARY KEY (content_id, type, slug)
	)`,
	`CREATE TABLE IF NOT EXISTS media (
		id UUID PRIMARY KEY,
		filename VARCHAR(255) NOT NULL,
		path VARCHAR(255) NOT NULL DEFAULT '',
		alt VARCHAR(255) NOT NULL DEFAULT '',
		type VARCHAR(100) NOT NULL DEFAULT '',
		width INT NOT NULL DEFAULT 0,
		height INT NOT NULL DEFAULT 0,
		file_size BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(191) NOT NULL UNIQUE,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		admin BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables if they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return r.handlePostgresError("migrate", err)
		}
	}
	return nil
}
