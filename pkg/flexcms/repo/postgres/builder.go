package postgres

import (
	"fmt"
	"strings"

	"github.com/tendant/flex-cms/pkg/flexcms"
)

// queryBuilder accumulates conditions, joins and ordering for record
// selections. Identifiers come from the fixed column map or are bound as
// parameters; caller input never lands in the SQL text.
type queryBuilder struct {
	conds []string
	joins []string
	order string
	args  []any
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// arg binds a value and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

// whereField adds a condition on a content field value. The locale slot ''
// carries values of fields that are not translated.
func (b *queryBuilder) whereField(name, value, locale string, wildcard bool) {
	op := "="
	if wildcard {
		op = "ILIKE"
	}
	b.where(fmt.Sprintf(
		`EXISTS (SELECT 1 FROM content_fields wf
		 JOIN field_translations wt ON wt.field_id = wf.id
		 WHERE wf.content_id = c.id AND wf.name = %s
		   AND (wt.locale = %s OR wt.locale = '')
		   AND wt.value #>> '{}' %s %s)`,
		b.arg(name), b.arg(locale), op, b.arg(value)))
}

// orderBy resolves a sort expression. Content columns order on the row
// itself; anything else joins the translated field value.
func (b *queryBuilder) orderBy(order, locale string) {
	if order == "" {
		order = "-createdAt"
	}
	spec := flexcms.ResolveSort(order)

	dir := "ASC"
	if spec.Descending {
		dir = "DESC"
	}

	if col, ok := nativeColumns[spec.Column]; ok && !spec.ByField {
		b.order = fmt.Sprintf("ORDER BY c.%s %s", col, dir)
		return
	}

	// A field can hold both the requested locale slot and the '' slot. The
	// lateral picks a single value per content row, preferring the requested
	// locale, so the sort join never multiplies rows.
	name := b.arg(spec.Column)
	loc := b.arg(locale)
	b.joins = append(b.joins, fmt.Sprintf(
		`LEFT JOIN LATERAL (
		 SELECT st.value #>> '{}' AS sort_value
		 FROM content_fields sf
		 JOIN field_translations st ON st.field_id = sf.id
		 WHERE sf.content_id = c.id AND sf.name = %s
		   AND (st.locale = %s OR st.locale = '')
		 ORDER BY st.locale = %s DESC
		 LIMIT 1) sv ON true`,
		name, loc, loc))
	b.order = fmt.Sprintf("ORDER BY sv.sort_value %s", dir)
}

func (b *queryBuilder) fromSQL() string {
	var sb strings.Builder
	sb.WriteString("FROM content c")
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(b.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.conds, " AND "))
	}
	return sb.String()
}

func (b *queryBuilder) selectSQL() string {
	q := "SELECT " + contentColumnsSQL + " " + b.fromSQL()
	if b.order != "" {
		q += " " + b.order
	}
	return q
}

func (b *queryBuilder) countSQL() string {
	return "SELECT COUNT(DISTINCT c.id) " + b.fromSQL()
}
