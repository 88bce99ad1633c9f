package render

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms"
)

// RecordExport is the normalized JSON shape of one record.
type RecordExport struct {
	ID          string              `json:"id"`
	ContentType string              `json:"content_type"`
	Status      string              `json:"status"`
	AuthorID    string              `json:"author_id,omitempty"`
	CreatedAt   string              `json:"created_at"`
	ModifiedAt  string              `json:"modified_at"`
	PublishedAt string              `json:"published_at,omitempty"`
	FieldValues map[string]any      `json:"field_values"`
	Taxonomies  map[string][]string `json:"taxonomies,omitempty"`
}

// ExportRecord flattens a record for JSON output. Field values use the
// API shape, translatable fields keyed by locale.
func ExportRecord(c *flexcms.Content) RecordExport {
	exp := RecordExport{
		ID:          c.ID.String(),
		ContentType: c.ContentType,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		ModifiedAt:  c.ModifiedAt.UTC().Format(time.RFC3339),
		FieldValues: map[string]any{},
	}
	if c.AuthorID != uuid.Nil {
		exp.AuthorID = c.AuthorID.String()
	}
	if c.PublishedAt != nil {
		exp.PublishedAt = c.PublishedAt.UTC().Format(time.RFC3339)
	}
	for _, f := range c.Fields {
		exp.FieldValues[f.Name] = f.APIValue()
	}
	if len(c.Taxonomies) > 0 {
		exp.Taxonomies = map[string][]string{}
		for _, t := range c.Taxonomies {
			exp.Taxonomies[t.Type] = append(exp.Taxonomies[t.Type], t.Slug)
		}
	}
	return exp
}

// RecordsJSON serializes records as a JSON array of normalized exports.
func RecordsJSON(records []*flexcms.Content) (string, error) {
	exports := make([]RecordExport, 0, len(records))
	for _, c := range records {
		exports = append(exports, ExportRecord(c))
	}
	out, err := json.Marshal(exports)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsJSON reports whether s is a valid JSON document.
func IsJSON(s string) bool {
	return json.Valid([]byte(s))
}
